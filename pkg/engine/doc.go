// ABOUTME: Headless globe engine clock package
// ABOUTME: Provides the engine-side clock, tick event, timeline and viewer handle
// Package engine provides the engine side of clock synchronization: a
// high-precision JulianDate time type, an animation Clock that advances on
// every rendered frame and raises an OnTick event, a Timeline widget that can
// be zoomed to a range, and a Viewer handle that owns them and drives the
// frame loop.
//
// The Viewer has its own lifecycle. Code holding a Viewer must check
// IsDestroyed before operating on it.
//
// Example:
//
//	viewer := engine.NewViewer(engine.ViewerOptions{FrameRate: 60})
//	id := viewer.Clock().OnTick().AddEventListener(func(now engine.JulianDate) {
//	    fmt.Println(now)
//	})
//	go viewer.Run(ctx)
//	...
//	viewer.Clock().OnTick().RemoveEventListener(id)
//	viewer.Destroy()
package engine
