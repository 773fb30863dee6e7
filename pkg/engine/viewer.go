// ABOUTME: Viewer handle owning the engine clock and timeline
// ABOUTME: Drives the frame loop and reports its own liveness
package engine

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultFrameRate is the frame loop rate used when none is configured.
const DefaultFrameRate = 60

// ViewerOptions configures a viewer.
type ViewerOptions struct {
	// FrameRate is the number of ticks per second (default: 60)
	FrameRate int

	// Start is the initial clock time (default: now)
	Start time.Time

	// NoTimeline disables the timeline widget
	NoTimeline bool
}

// Viewer is the engine handle. It owns a Clock and an optional Timeline
// and may be destroyed at any time by its owner.
type Viewer struct {
	clock     *Clock
	timeline  *Timeline
	frameRate int

	destroyed atomic.Bool
	frames    atomic.Int64

	mu        sync.Mutex
	lastFrame time.Time
	cancel    context.CancelFunc
}

// NewViewer creates a viewer with its clock and timeline.
func NewViewer(opts ViewerOptions) *Viewer {
	if opts.FrameRate <= 0 {
		opts.FrameRate = DefaultFrameRate
	}
	if opts.Start.IsZero() {
		opts.Start = time.Now()
	}

	clock := NewClock(opts.Start)

	v := &Viewer{
		clock:     clock,
		frameRate: opts.FrameRate,
	}
	if !opts.NoTimeline {
		v.timeline = NewTimeline(clock.StartTime(), clock.StopTime())
	}
	return v
}

// Clock returns the viewer's clock.
func (v *Viewer) Clock() *Clock {
	return v.clock
}

// Timeline returns the timeline widget, or nil if the viewer has none.
func (v *Viewer) Timeline() *Timeline {
	return v.timeline
}

// FrameRate returns the configured frames per second.
func (v *Viewer) FrameRate() int {
	return v.frameRate
}

// Frames returns the number of frames rendered so far.
func (v *Viewer) Frames() int64 {
	return v.frames.Load()
}

// IsDestroyed reports whether Destroy has been called.
func (v *Viewer) IsDestroyed() bool {
	return v.destroyed.Load()
}

// Step renders one frame that advances the clock by elapsed.
// It is a no-op once the viewer is destroyed.
func (v *Viewer) Step(elapsed time.Duration) {
	if v.IsDestroyed() {
		return
	}
	v.frames.Add(1)
	v.clock.Tick(elapsed)
}

// Run drives the frame loop until ctx is cancelled or the viewer is
// destroyed. Each frame advances the clock by the measured frame delta.
func (v *Viewer) Run(ctx context.Context) {
	if v.IsDestroyed() {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	v.mu.Lock()
	v.cancel = cancel
	v.lastFrame = time.Now()
	v.mu.Unlock()
	defer cancel()

	ticker := time.NewTicker(time.Second / time.Duration(v.frameRate))
	defer ticker.Stop()

	log.Printf("Engine frame loop started at %d fps", v.frameRate)

	for {
		select {
		case <-ctx.Done():
			log.Printf("Engine frame loop stopped after %d frames", v.Frames())
			return
		case now := <-ticker.C:
			if v.IsDestroyed() {
				return
			}

			v.mu.Lock()
			elapsed := now.Sub(v.lastFrame)
			v.lastFrame = now
			v.mu.Unlock()

			v.Step(elapsed)
		}
	}
}

// Destroy tears the viewer down and stops its frame loop. Safe to call
// more than once.
func (v *Viewer) Destroy() {
	if !v.destroyed.CompareAndSwap(false, true) {
		return
	}

	v.mu.Lock()
	cancel := v.cancel
	v.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}
