// Package bus provides the in-process publication side of the conversion
// pipeline: one Stream per output artifact, fanning frames out to subscriber
// channels without ever blocking the producer. A frame is dropped for any
// subscriber whose channel is full; recent frames beat complete delivery.
//
// Subscriber lifecycle hooks mirror transport-level connect/disconnect
// callbacks and are how the demand gate learns about consumers.
package bus

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

var (
	// ErrSubscriberExists is returned by Subscribe for a duplicate id.
	ErrSubscriberExists = errors.New("subscriber id already exists")
	// ErrSubscriberNotFound is returned by Unsubscribe for an unknown id.
	ErrSubscriberNotFound = errors.New("subscriber id not found")
	// ErrStreamClosed is returned once the stream has been closed.
	ErrStreamClosed = errors.New("stream is closed")
)

// Hooks receives subscriber lifecycle notifications. Either hook may be nil.
// Hooks run outside the stream lock, after the subscriber table has been
// updated.
type Hooks struct {
	OnSubscribe   func()
	OnUnsubscribe func()
}

// Stats is a snapshot of a stream's publish counters.
type Stats struct {
	Published   uint64
	Sent        uint64
	Dropped     uint64
	Subscribers int
}

// Stream fans values of one output artifact out to subscribers.
type Stream[T any] struct {
	name  string
	hooks Hooks

	mu     sync.Mutex
	subs   map[string]chan<- T
	closed bool

	published atomic.Uint64
	sent      atomic.Uint64
	dropped   atomic.Uint64
}

// NewStream returns an empty stream with the given name and lifecycle hooks.
func NewStream[T any](name string, hooks Hooks) *Stream[T] {
	return &Stream[T]{
		name:  name,
		hooks: hooks,
		subs:  map[string]chan<- T{},
	}
}

// Name returns the stream's configured topic name.
func (s *Stream[T]) Name() string {
	return s.name
}

// Subscribe registers a channel to receive published values and fires the
// OnSubscribe hook.
func (s *Stream[T]) Subscribe(id string, ch chan<- T) error {
	if ch == nil {
		return errors.New("nil subscriber channel")
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStreamClosed
	}
	if _, ok := s.subs[id]; ok {
		s.mu.Unlock()
		return errors.Wrap(ErrSubscriberExists, id)
	}
	s.subs[id] = ch
	s.mu.Unlock()

	if s.hooks.OnSubscribe != nil {
		s.hooks.OnSubscribe()
	}
	return nil
}

// Unsubscribe removes a subscriber and fires the OnUnsubscribe hook.
func (s *Stream[T]) Unsubscribe(id string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStreamClosed
	}
	if _, ok := s.subs[id]; !ok {
		s.mu.Unlock()
		return errors.Wrap(ErrSubscriberNotFound, id)
	}
	delete(s.subs, id)
	s.mu.Unlock()

	if s.hooks.OnUnsubscribe != nil {
		s.hooks.OnUnsubscribe()
	}
	return nil
}

// Publish delivers v to every subscriber whose channel has room and drops it
// for the rest. It never blocks.
func (s *Stream[T]) Publish(v T) {
	s.published.Inc()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- v:
			s.sent.Inc()
		default:
			s.dropped.Inc()
		}
	}
}

// SubscriberCount returns the current number of subscribers.
func (s *Stream[T]) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Stats returns a snapshot of publish counters.
func (s *Stream[T]) Stats() Stats {
	s.mu.Lock()
	n := len(s.subs)
	s.mu.Unlock()
	return Stats{
		Published:   s.published.Load(),
		Sent:        s.sent.Load(),
		Dropped:     s.dropped.Load(),
		Subscribers: n,
	}
}

// Close drops all subscribers, firing OnUnsubscribe once per subscriber so
// demand counters unwind, and rejects further operations.
func (s *Stream[T]) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStreamClosed
	}
	s.closed = true
	n := len(s.subs)
	s.subs = map[string]chan<- T{}
	s.mu.Unlock()

	if s.hooks.OnUnsubscribe != nil {
		for i := 0; i < n; i++ {
			s.hooks.OnUnsubscribe()
		}
	}
	return nil
}
