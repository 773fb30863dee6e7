// ABOUTME: Clock synchronization bridge package
// ABOUTME: Keeps the engine clock and the persisted clock config consistent
// Package clockbridge synchronizes a high-frequency engine clock with a
// low-frequency persisted clock configuration.
//
// Engine ticks are throttled to at most one store write per window (500ms by
// default). Configuration changes are applied to the engine field by field;
// a malformed timestamp skips only that field. Changes to the start or stop
// time additionally zoom the timeline widget to the new range.
//
// No error escapes the bridge. A missing or destroyed engine handle turns
// every operation into a no-op.
//
// Example:
//
//	store := clockconfig.NewStore(clockconfig.Default())
//	bridge := clockbridge.New(store, clockbridge.Config{})
//	bridge.Attach(viewer)
//	defer bridge.Detach()
package clockbridge
