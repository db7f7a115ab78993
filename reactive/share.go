package reactive

import "sync"

// Shared is a hot broadcast node with a one-slot replay buffer.
//
// The source is subscribed once, on the first Subscribe, and stays connected
// afterwards. Every value it produces is computed once and delivered to all
// subscribers; a late subscriber immediately receives the most recent value.
type Shared[T any] struct {
	source    Stream[T]
	subject   *Subject[T]
	mu        sync.Mutex
	connected bool
}

// ShareReplay wraps s in a Shared node
func ShareReplay[T any](s Stream[T]) *Shared[T] {
	return &Shared[T]{
		source:  s,
		subject: NewReplaySubject[T](),
	}
}

// Subscribe attaches o and connects the source if this is the first subscriber
func (s *Shared[T]) Subscribe(o Observer[T]) Subscription {
	sub := s.subject.Subscribe(o)
	s.Connect()
	return sub
}

// Connect subscribes to the source without attaching an observer.
func (s *Shared[T]) Connect() {
	s.mu.Lock()
	if s.connected {
		s.mu.Unlock()
		return
	}
	s.connected = true
	s.mu.Unlock()

	s.source.Subscribe(Observer[T]{
		Next:  s.subject.Next,
		Error: s.subject.Error,
	})
}

// Latest returns the most recently computed value
func (s *Shared[T]) Latest() (T, bool) {
	return s.subject.Value()
}

// Err returns the terminal error of the source, if it failed
func (s *Shared[T]) Err() error {
	return s.subject.Err()
}
