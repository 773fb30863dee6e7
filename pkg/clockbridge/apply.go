// ABOUTME: Best-effort application of a clock config to the engine clock
// ABOUTME: Each timestamp is parsed independently; failures skip one field
package clockbridge

import (
	"errors"
	"fmt"

	"github.com/globesync/globesync-go/pkg/clockconfig"
	"github.com/globesync/globesync-go/pkg/engine"
	"github.com/globesync/globesync-go/pkg/timefmt"
)

// Field names used in ApplyResult.
const (
	FieldStartTime     = "startTime"
	FieldStopTime      = "stopTime"
	FieldCurrentTime   = "currentTime"
	FieldMultiplier    = "multiplier"
	FieldShouldAnimate = "shouldAnimate"
	FieldClockRange    = "clockRange"
)

// ClockTarget is the writable part of an engine clock.
type ClockTarget interface {
	SetStartTime(engine.JulianDate)
	SetStopTime(engine.JulianDate)
	SetCurrentTime(engine.JulianDate)
	SetMultiplier(float64)
	SetShouldAnimate(bool)
	SetClockRange(engine.ClockRange)
}

// ApplyResult records which fields were written and which were skipped.
type ApplyResult struct {
	Applied []string
	Skipped []string
	// Err joins the parse errors of skipped fields
	Err error
}

// Apply writes cfg to clk. Absent timestamps are left alone; malformed
// ones are skipped while every other field is still written.
func Apply(clk ClockTarget, cfg clockconfig.ClockConfig) ApplyResult {
	var res ApplyResult
	var errs []error

	setTime := func(name string, value *string, set func(engine.JulianDate)) {
		if value == nil {
			return
		}
		t, err := timefmt.Parse(*value)
		if err != nil {
			res.Skipped = append(res.Skipped, name)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			return
		}
		set(engine.FromTime(t))
		res.Applied = append(res.Applied, name)
	}

	setTime(FieldStartTime, cfg.StartTime, clk.SetStartTime)
	setTime(FieldStopTime, cfg.StopTime, clk.SetStopTime)
	setTime(FieldCurrentTime, cfg.CurrentTime, clk.SetCurrentTime)

	clk.SetMultiplier(cfg.Multiplier)
	clk.SetShouldAnimate(cfg.ShouldAnimate)
	clk.SetClockRange(MapClockRange(cfg.ClockRange))
	res.Applied = append(res.Applied, FieldMultiplier, FieldShouldAnimate, FieldClockRange)

	res.Err = errors.Join(errs...)
	return res
}

// ParseBounds parses both bounds of cfg. ok is false when either bound is
// absent or malformed.
func ParseBounds(cfg clockconfig.ClockConfig) (start, stop engine.JulianDate, ok bool) {
	if cfg.StartTime == nil || cfg.StopTime == nil {
		return start, stop, false
	}

	s, err := timefmt.Parse(*cfg.StartTime)
	if err != nil {
		return start, stop, false
	}
	e, err := timefmt.Parse(*cfg.StopTime)
	if err != nil {
		return start, stop, false
	}

	return engine.FromTime(s), engine.FromTime(e), true
}
