// ABOUTME: Persisted clock configuration package
// ABOUTME: Holds the ClockConfig model and its change-notifying store
// Package clockconfig provides the serializable clock configuration and a
// store that notifies subscribers whenever it changes.
//
// All timestamps are kept as text so a configuration can be written to disk
// and restored across process restarts.
//
// Example:
//
//	store := clockconfig.NewStore(clockconfig.Default())
//	unsubscribe := store.Subscribe(func(prev, next clockconfig.ClockConfig) {
//	    fmt.Println("multiplier", prev.Multiplier, "->", next.Multiplier)
//	})
//	store.Update(func(c *clockconfig.ClockConfig) { c.Multiplier = 60 })
//	unsubscribe()
package clockconfig
