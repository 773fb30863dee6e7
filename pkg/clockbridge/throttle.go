// ABOUTME: Wall-clock throttle for engine ticks
// ABOUTME: Accepts at most one event per window, boundary inclusive
package clockbridge

import (
	"sync"
	"time"
)

// DefaultThrottleWindow bounds how often engine ticks may write to the store.
const DefaultThrottleWindow = 500 * time.Millisecond

// Clock provides wall-clock time. Tests inject a manual clock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }

// Throttle accepts an event when at least window has elapsed since the
// last accepted one. The first event is always accepted.
type Throttle struct {
	mu       sync.Mutex
	window   time.Duration
	clock    Clock
	last     time.Time
	accepted bool
}

// NewThrottle creates a throttle. A nil clock uses system time.
func NewThrottle(window time.Duration, clock Clock) *Throttle {
	if clock == nil {
		clock = SystemClock()
	}
	return &Throttle{window: window, clock: clock}
}

// Allow reports whether an event arriving now is accepted, recording it
// as the last accepted event if so.
func (t *Throttle) Allow() bool {
	now := t.clock.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.accepted && now.Sub(t.last) < t.window {
		return false
	}
	t.last = now
	t.accepted = true
	return true
}

// Reset forgets the last accepted event.
func (t *Throttle) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = time.Time{}
	t.accepted = false
}

// Window returns the throttle window.
func (t *Throttle) Window() time.Duration {
	return t.window
}
