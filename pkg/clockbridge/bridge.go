// ABOUTME: Bridge between the engine clock and the clock config store
// ABOUTME: Throttled engine->store writes and best-effort store->engine applies
package clockbridge

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/globesync/globesync-go/pkg/clockconfig"
	"github.com/globesync/globesync-go/pkg/engine"
)

// Handle is the externally owned engine handle. It may be torn down at any
// time, after which IsDestroyed reports true.
type Handle interface {
	Clock() *engine.Clock
	// Timeline returns nil when the engine has no timeline widget
	Timeline() *engine.Timeline
	IsDestroyed() bool
}

// Config holds bridge configuration
type Config struct {
	// Throttle is the minimum interval between tick-driven store writes (default: 500ms)
	Throttle time.Duration

	// Clock is the wall-clock source for throttling (default: system time)
	Clock Clock

	// Debug logs skipped fields and swallowed zoom failures
	Debug bool
}

// Stats counts bridge activity.
type Stats struct {
	TicksSeen      int64
	TicksAccepted  int64
	ConfigsApplied int64
	FieldsSkipped  int64
	// Zooms counts zooms the timeline accepted
	Zooms          int64
}

// Bridge keeps a ClockConfig store and an engine clock in step.
type Bridge struct {
	store    *clockconfig.Store
	throttle *Throttle
	debug    bool

	mu          sync.Mutex
	handle      Handle
	tickEvent   *engine.Event
	tickID      engine.ListenerID
	unsubscribe func()

	ticksSeen      atomic.Int64
	ticksAccepted  atomic.Int64
	configsApplied atomic.Int64
	fieldsSkipped  atomic.Int64
	zooms          atomic.Int64
}

// New creates a bridge over store. It does nothing until Attach is called.
func New(store *clockconfig.Store, config Config) *Bridge {
	if config.Throttle <= 0 {
		config.Throttle = DefaultThrottleWindow
	}

	return &Bridge{
		store:    store,
		throttle: NewThrottle(config.Throttle, config.Clock),
		debug:    config.Debug,
	}
}

// Attach binds the bridge to h, replacing any previous binding. Both
// subscriptions are established from scratch and the current config is
// applied once. A nil or destroyed handle detaches instead.
func (b *Bridge) Attach(h Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.detachLocked()

	if h == nil || h.IsDestroyed() {
		return
	}

	b.handle = h
	b.tickEvent = h.Clock().OnTick()
	b.tickID = b.tickEvent.AddEventListener(b.onTick)
	b.unsubscribe = b.store.Subscribe(b.onConfigChange)
	b.throttle.Reset()

	log.Printf("Clock bridge attached (throttle %v)", b.throttle.Window())

	cfg := b.store.Get()
	b.apply(h, cfg)
	b.zoom(h, cfg)
}

// Detach removes both subscriptions. The tick listener is left in place
// when the handle reports itself destroyed. Safe to call repeatedly.
func (b *Bridge) Detach() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.detachLocked()
}

// Attached reports whether a live handle is bound.
func (b *Bridge) Attached() bool {
	return b.liveHandle() != nil
}

// Stats returns activity counters.
func (b *Bridge) Stats() Stats {
	return Stats{
		TicksSeen:      b.ticksSeen.Load(),
		TicksAccepted:  b.ticksAccepted.Load(),
		ConfigsApplied: b.configsApplied.Load(),
		FieldsSkipped:  b.fieldsSkipped.Load(),
		Zooms:          b.zooms.Load(),
	}
}

func (b *Bridge) detachLocked() {
	if b.unsubscribe != nil {
		b.unsubscribe()
		b.unsubscribe = nil
	}

	if b.handle != nil && b.tickEvent != nil {
		if b.handle.IsDestroyed() {
			log.Printf("Clock bridge detached from destroyed engine, skipping listener removal")
		} else {
			b.tickEvent.RemoveEventListener(b.tickID)
			log.Printf("Clock bridge detached")
		}
	}

	b.handle = nil
	b.tickEvent = nil
	b.tickID = 0
}

// liveHandle returns the bound handle, or nil if none is bound or it has
// been destroyed.
func (b *Bridge) liveHandle() Handle {
	b.mu.Lock()
	h := b.handle
	b.mu.Unlock()

	if h == nil || h.IsDestroyed() {
		return nil
	}
	return h
}

// onTick mirrors the engine's current time into the store, at most once
// per throttle window.
func (b *Bridge) onTick(current engine.JulianDate) {
	if b.liveHandle() == nil {
		return
	}

	b.ticksSeen.Add(1)
	if !b.throttle.Allow() {
		return
	}

	b.ticksAccepted.Add(1)
	b.store.SetCurrentTime(current.String())
}

// onConfigChange applies every change to the engine and zooms the timeline
// when the bounds moved.
func (b *Bridge) onConfigChange(prev, next clockconfig.ClockConfig) {
	h := b.liveHandle()
	if h == nil {
		return
	}

	b.apply(h, next)
	if prev.BoundsChanged(next) {
		b.zoom(h, next)
	}
}

func (b *Bridge) apply(h Handle, cfg clockconfig.ClockConfig) {
	res := Apply(h.Clock(), cfg)
	b.configsApplied.Add(1)

	if len(res.Skipped) > 0 {
		b.fieldsSkipped.Add(int64(len(res.Skipped)))
		if b.debug {
			log.Printf("Clock bridge skipped %v: %v", res.Skipped, res.Err)
		}
	}
}

func (b *Bridge) zoom(h Handle, cfg clockconfig.ClockConfig) {
	tl := h.Timeline()
	if tl == nil {
		return
	}

	start, stop, ok := ParseBounds(cfg)
	if !ok {
		return
	}

	if err := tl.ZoomTo(start, stop); err != nil {
		if b.debug {
			log.Printf("Clock bridge timeline zoom ignored: %v", err)
		}
		return
	}
	b.zooms.Add(1)
}
