// ABOUTME: Timestamp normalization and parsing
// ABOUTME: Space-separated values become T-separated and zone-qualified
package timefmt

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMalformedTimestamp is returned when a value cannot be parsed after
// normalization.
var ErrMalformedTimestamp = errors.New("malformed timestamp")

// offsetSearchStart is the first index at which a '+' or '-' is read as a
// zone offset rather than a date separator ("2006-01-02T" is 11 bytes).
const offsetSearchStart = 11

// layouts accepted by Parse, tried in order.
var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04Z0700",
	"2006-01-02",
}

// Normalize converts a timestamp into the T-separated form.
//
// Values containing 'T' are returned unchanged. Otherwise the first space is
// replaced with 'T' and a 'Z' is appended unless the value already ends in
// 'Z' or carries a '+'/'-' offset in its time portion.
func Normalize(s string) string {
	if strings.Contains(s, "T") {
		return s
	}

	i := strings.Index(s, " ")
	if i < 0 {
		return s
	}

	out := s[:i] + "T" + s[i+1:]
	if !strings.HasSuffix(out, "Z") && !hasOffset(out) {
		out += "Z"
	}
	return out
}

// hasOffset reports whether a '+' or '-' appears at or after the time portion.
func hasOffset(s string) bool {
	if len(s) <= offsetSearchStart {
		return false
	}
	return strings.ContainsAny(s[offsetSearchStart:], "+-")
}

// Parse normalizes s and parses it as an ISO-8601 instant.
// Date-only values are read as midnight UTC.
func Parse(s string) (time.Time, error) {
	v := Normalize(strings.TrimSpace(s))
	if v == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrMalformedTimestamp)
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedTimestamp, s)
}

// Format renders t in the normalized textual form written to the store.
// The result is always UTC; fractional seconds are kept only when non-zero.
func Format(t time.Time) string {
	t = t.UTC()
	if t.Nanosecond() == 0 {
		return t.Format("2006-01-02T15:04:05Z")
	}
	return t.Format(time.RFC3339Nano)
}
