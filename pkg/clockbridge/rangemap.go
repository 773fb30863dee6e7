// ABOUTME: Mapping from persisted clock range to engine range
// ABOUTME: Fixed three-way translation
package clockbridge

import (
	"github.com/globesync/globesync-go/pkg/clockconfig"
	"github.com/globesync/globesync-go/pkg/engine"
)

// MapClockRange translates a persisted range into the engine's enumeration.
// Unknown values map to engine.RangeUnbounded.
func MapClockRange(r clockconfig.ClockRange) engine.ClockRange {
	switch r {
	case clockconfig.RangeClamped:
		return engine.RangeClamped
	case clockconfig.RangeLoopStop:
		return engine.RangeLoopStop
	default:
		return engine.RangeUnbounded
	}
}
