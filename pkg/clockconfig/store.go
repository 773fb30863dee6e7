// ABOUTME: Change-notifying store for the clock configuration
// ABOUTME: Subscribers receive previous and next values once per change
package clockconfig

import (
	"sort"
	"sync"
)

// ChangeFunc is called with copies of the previous and next configuration.
type ChangeFunc func(prev, next ClockConfig)

// Store holds the current ClockConfig and notifies subscribers on change.
//
// Notifications are delivered synchronously and in change order. A
// subscriber must not modify the store from inside its callback.
type Store struct {
	mu          sync.RWMutex
	cfg         ClockConfig
	subscribers map[int]ChangeFunc
	nextID      int

	// notifyMu serializes change+notify so subscribers observe changes in order
	notifyMu sync.Mutex
}

// NewStore creates a store holding initial.
func NewStore(initial ClockConfig) *Store {
	return &Store{
		cfg:         initial.Clone(),
		subscribers: make(map[int]ChangeFunc),
	}
}

// Get returns a copy of the current configuration.
func (s *Store) Get() ClockConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Clone()
}

// Set replaces the configuration.
func (s *Store) Set(cfg ClockConfig) {
	s.Update(func(c *ClockConfig) { *c = cfg.Clone() })
}

// SetCurrentTime replaces only the current time.
func (s *Store) SetCurrentTime(t string) {
	s.Update(func(c *ClockConfig) { c.CurrentTime = String(t) })
}

// Update applies fn to a copy of the configuration and stores the result.
// Subscribers are notified only if the value changed.
func (s *Store) Update(fn func(*ClockConfig)) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	prev := s.cfg.Clone()
	next := s.cfg.Clone()
	fn(&next)
	if next.Equal(prev) {
		s.mu.Unlock()
		return
	}
	s.cfg = next.Clone()
	subs := s.snapshotSubscribers()
	s.mu.Unlock()

	for _, fn := range subs {
		fn(prev.Clone(), next.Clone())
	}
}

// Subscribe registers fn for change notifications and returns a function
// that removes it.
func (s *Store) Subscribe(fn ChangeFunc) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			s.mu.Unlock()
		})
	}
}

// Subscribers returns the number of active subscribers.
func (s *Store) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers)
}

// snapshotSubscribers returns subscribers in registration order. Caller holds mu.
func (s *Store) snapshotSubscribers() []ChangeFunc {
	ids := make([]int, 0, len(s.subscribers))
	for id := range s.subscribers {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	fns := make([]ChangeFunc, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.subscribers[id])
	}
	return fns
}
