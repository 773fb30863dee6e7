// ABOUTME: JulianDate high-precision time type
// ABOUTME: Whole day number plus seconds of day, days starting at noon
package engine

import (
	"math"
	"time"

	"github.com/globesync/globesync-go/pkg/timefmt"
)

const (
	secondsPerDay = 86400

	// unixEpochDay is the Julian day number containing 1970-01-01T00:00:00Z.
	// Julian days start at noon, so the Unix epoch is 43200s into that day.
	unixEpochDay     = 2440587
	unixEpochSeconds = 43200
)

// JulianDate is the engine's native instant: a Julian day number and the
// seconds elapsed since noon of that day. Leap seconds are not modelled.
type JulianDate struct {
	DayNumber    int
	SecondsOfDay float64
}

// FromTime converts t into a JulianDate with microsecond precision.
func FromTime(t time.Time) JulianDate {
	micros := t.UnixMicro() + unixEpochSeconds*1e6
	days := floorDiv(micros, secondsPerDay*1e6)
	rem := micros - days*secondsPerDay*1e6

	return JulianDate{
		DayNumber:    unixEpochDay + int(days),
		SecondsOfDay: float64(rem) / 1e6,
	}
}

// Time converts j back into a UTC time.Time.
func (j JulianDate) Time() time.Time {
	j = j.normalize()
	whole := math.Floor(j.SecondsOfDay)
	micros := int64(math.Round((j.SecondsOfDay - whole) * 1e6))

	unix := int64(j.DayNumber-unixEpochDay)*secondsPerDay + int64(whole) - unixEpochSeconds
	return time.Unix(unix, micros*1000).UTC()
}

// AddSeconds returns j shifted by s seconds (s may be negative).
func (j JulianDate) AddSeconds(s float64) JulianDate {
	return JulianDate{DayNumber: j.DayNumber, SecondsOfDay: j.SecondsOfDay + s}.normalize()
}

// SecondsDifference returns j - other in seconds.
func (j JulianDate) SecondsDifference(other JulianDate) float64 {
	return float64(j.DayNumber-other.DayNumber)*secondsPerDay + (j.SecondsOfDay - other.SecondsOfDay)
}

// Compare returns -1, 0 or +1 depending on whether j is before, equal to
// or after other.
func (j JulianDate) Compare(other JulianDate) int {
	d := j.SecondsDifference(other)
	switch {
	case d < 0:
		return -1
	case d > 0:
		return 1
	default:
		return 0
	}
}

// Before reports whether j is before other.
func (j JulianDate) Before(other JulianDate) bool { return j.Compare(other) < 0 }

// After reports whether j is after other.
func (j JulianDate) After(other JulianDate) bool { return j.Compare(other) > 0 }

// Equal reports whether j and other denote the same instant.
func (j JulianDate) Equal(other JulianDate) bool { return j.Compare(other) == 0 }

// String renders j in normalized ISO-8601 form.
func (j JulianDate) String() string {
	return timefmt.Format(j.Time())
}

// normalize folds SecondsOfDay back into [0, 86400).
func (j JulianDate) normalize() JulianDate {
	if j.SecondsOfDay >= 0 && j.SecondsOfDay < secondsPerDay {
		return j
	}
	days := math.Floor(j.SecondsOfDay / secondsPerDay)
	j.DayNumber += int(days)
	j.SecondsOfDay -= days * secondsPerDay
	return j
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
