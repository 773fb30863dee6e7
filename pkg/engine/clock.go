// ABOUTME: Engine animation clock
// ABOUTME: Advances current time per frame by multiplier and applies range behaviour
package engine

import (
	"fmt"
	"sync"
	"time"
)

// ClockRange determines how the clock behaves when current time reaches a
// bound. Values are stable and part of the engine's contract.
type ClockRange int

const (
	// RangeUnbounded advances past the bounds in either direction.
	RangeUnbounded ClockRange = 0
	// RangeClamped stops at the bound that was reached.
	RangeClamped ClockRange = 1
	// RangeLoopStop wraps to the start when passing the stop time moving
	// forward, and holds at the start moving backward.
	RangeLoopStop ClockRange = 2
)

func (r ClockRange) String() string {
	switch r {
	case RangeUnbounded:
		return "unbounded"
	case RangeClamped:
		return "clamped"
	case RangeLoopStop:
		return "loop-stop"
	default:
		return fmt.Sprintf("ClockRange(%d)", int(r))
	}
}

// Clock holds the live temporal state of the engine.
type Clock struct {
	mu sync.RWMutex

	startTime   JulianDate
	stopTime    JulianDate
	currentTime JulianDate

	multiplier    float64
	shouldAnimate bool
	clockRange    ClockRange

	onTick *Event
}

// NewClock creates a clock starting at now, with a one day range, real time
// multiplier and animation off.
func NewClock(now time.Time) *Clock {
	start := FromTime(now)
	return &Clock{
		startTime:   start,
		stopTime:    start.AddSeconds(secondsPerDay),
		currentTime: start,
		multiplier:  1,
		clockRange:  RangeUnbounded,
		onTick:      NewEvent(),
	}
}

// OnTick returns the event raised after every tick.
func (c *Clock) OnTick() *Event {
	return c.onTick
}

// Tick advances the clock by elapsed real time scaled by the multiplier,
// applies the range behaviour and raises OnTick. Returns the new current time.
func (c *Clock) Tick(elapsed time.Duration) JulianDate {
	c.mu.Lock()
	if c.shouldAnimate {
		c.currentTime = c.currentTime.AddSeconds(elapsed.Seconds() * c.multiplier)
	}
	c.currentTime = c.constrain(c.currentTime)
	current := c.currentTime
	c.mu.Unlock()

	c.onTick.Raise(current)
	return current
}

// constrain applies the clock range to t. Caller holds mu.
func (c *Clock) constrain(t JulianDate) JulianDate {
	switch c.clockRange {
	case RangeClamped:
		if t.Before(c.startTime) {
			return c.startTime
		}
		if t.After(c.stopTime) {
			return c.stopTime
		}
	case RangeLoopStop:
		if t.Before(c.startTime) {
			return c.startTime
		}
		if t.After(c.stopTime) {
			return c.startTime
		}
	}
	return t
}

// CurrentTime returns the current time.
func (c *Clock) CurrentTime() JulianDate {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentTime
}

// StartTime returns the start bound.
func (c *Clock) StartTime() JulianDate {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.startTime
}

// StopTime returns the stop bound.
func (c *Clock) StopTime() JulianDate {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stopTime
}

// Multiplier returns the time scale factor.
func (c *Clock) Multiplier() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.multiplier
}

// ShouldAnimate reports whether the clock advances on tick.
func (c *Clock) ShouldAnimate() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.shouldAnimate
}

// ClockRange returns the range behaviour.
func (c *Clock) ClockRange() ClockRange {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.clockRange
}

func (c *Clock) SetStartTime(t JulianDate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startTime = t
}

func (c *Clock) SetStopTime(t JulianDate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTime = t
}

func (c *Clock) SetCurrentTime(t JulianDate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentTime = t
}

func (c *Clock) SetMultiplier(m float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.multiplier = m
}

func (c *Clock) SetShouldAnimate(animate bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shouldAnimate = animate
}

func (c *Clock) SetClockRange(r ClockRange) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clockRange = r
}
