// ABOUTME: Timeline widget showing a visible time range
// ABOUTME: Can be zoomed to an explicit start/stop pair
package engine

import (
	"errors"
	"fmt"
	"sync"
)

// ErrInvalidRange is returned by ZoomTo when stop is not after start.
var ErrInvalidRange = errors.New("invalid timeline range")

// Timeline is the time-axis widget attached to a viewer.
type Timeline struct {
	mu    sync.RWMutex
	start JulianDate
	stop  JulianDate
	zooms int
}

// NewTimeline creates a timeline showing [start, stop].
func NewTimeline(start, stop JulianDate) *Timeline {
	return &Timeline{start: start, stop: stop}
}

// ZoomTo sets the visible range to exactly [start, stop].
func (tl *Timeline) ZoomTo(start, stop JulianDate) error {
	if !stop.After(start) {
		return fmt.Errorf("%w: start=%s stop=%s", ErrInvalidRange, start, stop)
	}

	tl.mu.Lock()
	defer tl.mu.Unlock()
	tl.start = start
	tl.stop = stop
	tl.zooms++
	return nil
}

// VisibleRange returns the currently visible range.
func (tl *Timeline) VisibleRange() (start, stop JulianDate) {
	tl.mu.RLock()
	defer tl.mu.RUnlock()
	return tl.start, tl.stop
}

// ZoomCount returns how many zooms have been applied.
func (tl *Timeline) ZoomCount() int {
	tl.mu.RLock()
	defer tl.mu.RUnlock()
	return tl.zooms
}
