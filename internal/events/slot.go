package events

import "sync"

// Slot holds at most one callback. Setting a new callback replaces the old one.
type Slot[T any] struct {
	mu sync.RWMutex
	fn func(T)
}

// Set installs fn, replacing any previous callback. A nil fn clears the slot.
// Returns true if a callback was replaced.
func (s *Slot[T]) Set(fn func(T)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	replaced := s.fn != nil
	s.fn = fn
	return replaced
}

func (s *Slot[T]) Clear() {
	s.Set(nil)
}

func (s *Slot[T]) IsSet() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fn != nil
}

// Deliver calls the installed callback synchronously and reports whether
// there was one
func (s *Slot[T]) Deliver(value T) bool {
	s.mu.RLock()
	fn := s.fn
	s.mu.RUnlock()
	if fn == nil {
		return false
	}
	fn(value)
	return true
}
