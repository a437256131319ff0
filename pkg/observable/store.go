// Package observable holds a value and notifies subscribers when it changes.
package observable

import "sync"

// Store is an observable cell. Publish replaces the value and calls every
// subscriber, in subscription order, on the publishing goroutine. Publishes
// are serialized, so subscribers observe values in publish order.
//
// Subscribers must not call Publish from inside a notification.
type Store[T any] struct {
	mu      sync.Mutex
	notify  sync.Mutex
	value   T
	nextID  int
	entries []entry[T]
}

type entry[T any] struct {
	id int
	fn func(T)
}

func New[T any](initial T) *Store[T] {
	return &Store[T]{value: initial}
}

// Get returns the current value.
func (s *Store[T]) Get() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Subscribe registers fn and returns a function that removes it. fn is not
// called with the current value.
func (s *Store[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.entries = append(s.entries, entry[T]{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, e := range s.entries {
				if e.id == id {
					s.entries = append(s.entries[:i:i], s.entries[i+1:]...)
					return
				}
			}
		})
	}
}

// Publish stores v and notifies the subscribers registered at that moment.
func (s *Store[T]) Publish(v T) {
	s.notify.Lock()
	defer s.notify.Unlock()

	s.mu.Lock()
	s.value = v
	subs := make([]func(T), len(s.entries))
	for i, e := range s.entries {
		subs[i] = e.fn
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(v)
	}
}

