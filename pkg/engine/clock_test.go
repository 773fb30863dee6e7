// ABOUTME: Tests for the engine clock
// ABOUTME: Covers multiplier scaling, pause, range behaviours, and tick events
package engine

import (
	"testing"
	"time"
)

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestClockDefaults(t *testing.T) {
	c := NewClock(base)

	if c.Multiplier() != 1 {
		t.Errorf("expected multiplier 1, got %v", c.Multiplier())
	}
	if c.ShouldAnimate() {
		t.Error("expected clock paused by default")
	}
	if c.ClockRange() != RangeUnbounded {
		t.Errorf("expected unbounded range, got %v", c.ClockRange())
	}
	if d := c.StopTime().SecondsDifference(c.StartTime()); d != 86400 {
		t.Errorf("expected one day range, got %vs", d)
	}
}

func TestTickPausedDoesNotAdvance(t *testing.T) {
	c := NewClock(base)
	before := c.CurrentTime()

	c.Tick(time.Second)

	if !c.CurrentTime().Equal(before) {
		t.Error("paused clock advanced")
	}
}

func TestTickAppliesMultiplier(t *testing.T) {
	c := NewClock(base)
	c.SetShouldAnimate(true)
	c.SetMultiplier(60)

	start := c.CurrentTime()
	c.Tick(500 * time.Millisecond)

	if d := c.CurrentTime().SecondsDifference(start); d != 30 {
		t.Errorf("expected 30s advance, got %v", d)
	}
}

func TestTickClamped(t *testing.T) {
	c := NewClock(base)
	c.SetShouldAnimate(true)
	c.SetClockRange(RangeClamped)
	c.SetStopTime(c.StartTime().AddSeconds(10))
	c.SetMultiplier(100)

	c.Tick(time.Second)
	if !c.CurrentTime().Equal(c.StopTime()) {
		t.Errorf("expected clamp to stop, got %s", c.CurrentTime())
	}

	c.SetMultiplier(-1000)
	c.Tick(time.Second)
	if !c.CurrentTime().Equal(c.StartTime()) {
		t.Errorf("expected clamp to start, got %s", c.CurrentTime())
	}
}

func TestTickLoopStop(t *testing.T) {
	c := NewClock(base)
	c.SetShouldAnimate(true)
	c.SetClockRange(RangeLoopStop)
	c.SetStopTime(c.StartTime().AddSeconds(10))
	c.SetMultiplier(4)

	c.Tick(2 * time.Second) // +8s, inside range
	if d := c.CurrentTime().SecondsDifference(c.StartTime()); d != 8 {
		t.Errorf("expected 8s into range, got %v", d)
	}

	c.Tick(time.Second) // +4s, passes stop
	if !c.CurrentTime().Equal(c.StartTime()) {
		t.Errorf("expected wrap to start, got %s", c.CurrentTime())
	}
}

func TestTickUnboundedPassesStop(t *testing.T) {
	c := NewClock(base)
	c.SetShouldAnimate(true)
	c.SetStopTime(c.StartTime().AddSeconds(1))

	c.Tick(5 * time.Second)
	if !c.CurrentTime().After(c.StopTime()) {
		t.Error("unbounded clock should run past stop")
	}
}

func TestTickRaisesEvent(t *testing.T) {
	c := NewClock(base)
	c.SetShouldAnimate(true)

	var got []JulianDate
	id := c.OnTick().AddEventListener(func(now JulianDate) {
		got = append(got, now)
	})

	c.Tick(time.Second)
	c.Tick(time.Second)

	if len(got) != 2 {
		t.Fatalf("expected 2 tick notifications, got %d", len(got))
	}
	if d := got[1].SecondsDifference(got[0]); d != 1 {
		t.Errorf("expected 1s between ticks, got %v", d)
	}

	if !c.OnTick().RemoveEventListener(id) {
		t.Error("expected listener removal to succeed")
	}
	c.Tick(time.Second)
	if len(got) != 2 {
		t.Error("removed listener was still called")
	}
}

func TestClockRangeValuesDistinct(t *testing.T) {
	seen := map[ClockRange]bool{}
	for _, r := range []ClockRange{RangeUnbounded, RangeClamped, RangeLoopStop} {
		if seen[r] {
			t.Errorf("duplicate clock range value %d", r)
		}
		seen[r] = true
	}
}
