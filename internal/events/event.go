package events

import (
	"sync"
)

type listener[T any] struct {
	id uint64
	fn func(T)
}

// Event fans values out to callbacks in registration order.
// With replayLast set, a new listener immediately receives the most recent value.
type Event[T any] struct {
	mu         sync.RWMutex
	listeners  []listener[T]
	nextID     uint64
	replayLast bool
	last       T
	hasLast    bool
}

func NewEvent[T any](replayLast bool) *Event[T] {
	return &Event[T]{replayLast: replayLast}
}

// Listen registers callback and returns a function that removes it.
// Removing twice is a no-op.
func (e *Event[T]) Listen(callback func(T)) func() {
	if callback == nil {
		panic("events: callback cannot be nil")
	}

	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.listeners = append(e.listeners, listener[T]{id: id, fn: callback})
	replay, value := e.replayLast && e.hasLast, e.last
	e.mu.Unlock()

	// outside the lock so the callback may call back into the event
	if replay {
		callback(value)
	}

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, l := range e.listeners {
			if l.id == id {
				e.listeners = append(e.listeners[:i:i], e.listeners[i+1:]...)
				return
			}
		}
	}
}

// Notify calls every listener registered at the time of the call
func (e *Event[T]) Notify(value T) {
	e.mu.Lock()
	if e.replayLast {
		e.last = value
		e.hasLast = true
	}
	snapshot := make([]listener[T], len(e.listeners))
	copy(snapshot, e.listeners)
	e.mu.Unlock()

	for _, l := range snapshot {
		l.fn(value)
	}
}

func (e *Event[T]) ListenerCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.listeners)
}

// ChannelEvent delivers values to channels without blocking; a full channel
// misses the value.
type ChannelEvent[T any] struct {
	event *Event[T]
}

func NewChannelEvent[T any](replayLast bool) *ChannelEvent[T] {
	return &ChannelEvent[T]{event: NewEvent[T](replayLast)}
}

func (e *ChannelEvent[T]) Listen(ch chan<- T) func() {
	if ch == nil {
		panic("events: channel cannot be nil")
	}
	return e.event.Listen(func(value T) {
		select {
		case ch <- value:
		default:
		}
	})
}

func (e *ChannelEvent[T]) Notify(value T) {
	e.event.Notify(value)
}

func (e *ChannelEvent[T]) ListenerCount() int {
	return e.event.ListenerCount()
}
