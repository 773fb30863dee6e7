// ABOUTME: Tick event listener registry
// ABOUTME: Listeners are added and removed by ID and raised in insertion order
package engine

import "sync"

// ListenerID identifies a registered listener.
type ListenerID uint64

// Listener receives the clock's current time after each tick.
type Listener func(current JulianDate)

// Event is a multicast notification raised by the clock.
type Event struct {
	mu        sync.Mutex
	nextID    ListenerID
	listeners map[ListenerID]Listener
	order     []ListenerID
}

// NewEvent creates an empty event.
func NewEvent() *Event {
	return &Event{listeners: make(map[ListenerID]Listener)}
}

// AddEventListener registers fn and returns its ID.
func (e *Event) AddEventListener(fn Listener) ListenerID {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	id := e.nextID
	e.listeners[id] = fn
	e.order = append(e.order, id)
	return id
}

// RemoveEventListener unregisters the listener with the given ID.
// Returns false if it was not registered.
func (e *Event) RemoveEventListener(id ListenerID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.listeners[id]; !ok {
		return false
	}
	delete(e.listeners, id)
	for i, v := range e.order {
		if v == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	return true
}

// NumberOfListeners returns the number of registered listeners.
func (e *Event) NumberOfListeners() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners)
}

// Raise invokes every listener with current. Listeners run outside the
// lock so they may add or remove listeners.
func (e *Event) Raise(current JulianDate) {
	e.mu.Lock()
	fns := make([]Listener, 0, len(e.order))
	for _, id := range e.order {
		fns = append(fns, e.listeners[id])
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn(current)
	}
}
