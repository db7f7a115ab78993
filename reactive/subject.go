package reactive

import "sync"

// Subject is a hot stream that multicasts the values pushed into it.
// A replaying subject also remembers its latest value and delivers it to
// every new subscriber.
type Subject[T any] struct {
	mu        sync.Mutex
	observers []subscriber[T]
	nextID    int
	replay    bool
	has       bool
	value     T
	err       error
}

type subscriber[T any] struct {
	id int
	o  Observer[T]
}

// NewSubject creates a subject without replay
func NewSubject[T any]() *Subject[T] {
	return &Subject[T]{}
}

// NewReplaySubject creates a subject that replays its latest value, initially empty
func NewReplaySubject[T any]() *Subject[T] {
	return &Subject[T]{replay: true}
}

// NewBehaviorSubject creates a replaying subject seeded with v
func NewBehaviorSubject[T any](v T) *Subject[T] {
	return &Subject[T]{replay: true, has: true, value: v}
}

// Subscribe registers o. Replaying subjects deliver their latest value (or
// terminal error) synchronously before returning.
func (s *Subject[T]) Subscribe(o Observer[T]) Subscription {
	s.mu.Lock()
	if s.err != nil {
		err := s.err
		s.mu.Unlock()
		o.fail(err)
		return SubscriptionFunc(nil)
	}

	s.nextID++
	id := s.nextID
	s.observers = append(s.observers, subscriber[T]{id: id, o: o})
	replay := s.replay && s.has
	value := s.value
	s.mu.Unlock()

	if replay {
		o.next(value)
	}

	return SubscriptionFunc(func() { s.remove(id) })
}

func (s *Subject[T]) remove(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sub := range s.observers {
		if sub.id == id {
			s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
			return
		}
	}
}

// Next pushes v to all current subscribers.
func (s *Subject[T]) Next(v T) {
	s.mu.Lock()
	if s.err != nil {
		s.mu.Unlock()
		return
	}
	if s.replay {
		s.value = v
		s.has = true
	}
	observers := s.snapshot()
	s.mu.Unlock()

	for _, sub := range observers {
		sub.o.next(v)
	}
}

// Error terminates the subject and forwards err to all subscribers
func (s *Subject[T]) Error(err error) {
	s.mu.Lock()
	if s.err != nil {
		s.mu.Unlock()
		return
	}
	s.err = err
	observers := s.snapshot()
	s.observers = nil
	s.mu.Unlock()

	for _, sub := range observers {
		sub.o.fail(err)
	}
}

// Value returns the latest value of a replaying subject
func (s *Subject[T]) Value() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.has
}

// Err returns the terminal error, if any
func (s *Subject[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Observers returns the number of attached subscribers
func (s *Subject[T]) Observers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.observers)
}

func (s *Subject[T]) snapshot() []subscriber[T] {
	out := make([]subscriber[T], len(s.observers))
	copy(out, s.observers)
	return out
}
