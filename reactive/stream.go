// Package reactive implements a small push-based dataflow graph.
//
// Every node delivers values synchronously to its subscribers in the order they
// were produced. Nodes are not safe for concurrent emission: a graph is expected
// to be driven by one goroutine at a time (see dashboard for the serialized
// driver used by the server).
package reactive

// Observer receives the values of a stream and its terminal error.
// Either callback may be nil.
type Observer[T any] struct {
	Next  func(T)
	Error func(error)
}

func (o Observer[T]) next(v T) {
	if o.Next != nil {
		o.Next(v)
	}
}

func (o Observer[T]) fail(err error) {
	if o.Error != nil {
		o.Error(err)
	}
}

// Subscription stops delivery to one subscriber
type Subscription interface {
	Unsubscribe()
}

// SubscriptionFunc adapts a function to the Subscription interface
type SubscriptionFunc func()

// Unsubscribe calls f
func (f SubscriptionFunc) Unsubscribe() {
	if f != nil {
		f()
	}
}

// Stream is a source of values that observers can attach to
type Stream[T any] interface {
	Subscribe(o Observer[T]) Subscription
}

type funcStream[T any] func(o Observer[T]) Subscription

func (f funcStream[T]) Subscribe(o Observer[T]) Subscription {
	return f(o)
}

// New creates a cold stream: subscribe runs once per subscriber.
func New[T any](subscribe func(o Observer[T]) Subscription) Stream[T] {
	return funcStream[T](subscribe)
}

// Of emits the given values synchronously on subscribe.
func Of[T any](values ...T) Stream[T] {
	return New(func(o Observer[T]) Subscription {
		for _, v := range values {
			o.next(v)
		}
		return SubscriptionFunc(nil)
	})
}

// Fail emits err synchronously on subscribe.
func Fail[T any](err error) Stream[T] {
	return New(func(o Observer[T]) Subscription {
		o.fail(err)
		return SubscriptionFunc(nil)
	})
}

// SubscribeFunc is a shorthand for subscribing with a value callback only.
func SubscribeFunc[T any](s Stream[T], next func(T)) Subscription {
	return s.Subscribe(Observer[T]{Next: next})
}
