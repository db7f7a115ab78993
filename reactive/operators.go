package reactive

// Map transforms every value of s with f
func Map[T, U any](s Stream[T], f func(T) U) Stream[U] {
	return New(func(o Observer[U]) Subscription {
		return s.Subscribe(Observer[T]{
			Next:  func(v T) { o.next(f(v)) },
			Error: o.fail,
		})
	})
}

// MapErr transforms every value of s with f. The first error returned by f
// terminates the stream: it is forwarded downstream and s is unsubscribed.
func MapErr[T, U any](s Stream[T], f func(T) (U, error)) Stream[U] {
	return New(func(o Observer[U]) Subscription {
		var upstream Subscription
		done := false

		upstream = s.Subscribe(Observer[T]{
			Next: func(v T) {
				if done {
					return
				}
				out, err := f(v)
				if err != nil {
					done = true
					if upstream != nil {
						upstream.Unsubscribe()
					}
					o.fail(err)
					return
				}
				o.next(out)
			},
			Error: func(err error) {
				if done {
					return
				}
				done = true
				o.fail(err)
			},
		})
		if done {
			upstream.Unsubscribe()
		}

		return SubscriptionFunc(func() {
			done = true
			upstream.Unsubscribe()
		})
	})
}

// FilterMap transforms every value of s with f and drops those for which f
// reports false.
func FilterMap[T, U any](s Stream[T], f func(T) (U, bool)) Stream[U] {
	return New(func(o Observer[U]) Subscription {
		return s.Subscribe(Observer[T]{
			Next: func(v T) {
				if out, ok := f(v); ok {
					o.next(out)
				}
			},
			Error: o.fail,
		})
	})
}

// Filter keeps the values of s that satisfy keep
func Filter[T any](s Stream[T], keep func(T) bool) Stream[T] {
	return FilterMap(s, func(v T) (T, bool) { return v, keep(v) })
}

// Tap runs f for every value of s before passing it on
func Tap[T any](s Stream[T], f func(T)) Stream[T] {
	return Map(s, func(v T) T {
		f(v)
		return v
	})
}

// DistinctUntilChanged drops values equal to the previous emission
func DistinctUntilChanged[T comparable](s Stream[T]) Stream[T] {
	return DistinctUntilChangedFunc(s, func(prev, curr T) bool { return prev == curr })
}

// DistinctUntilChangedFunc drops a value when same(previous, value) is true.
// The first value is always emitted.
func DistinctUntilChangedFunc[T any](s Stream[T], same func(prev, curr T) bool) Stream[T] {
	return New(func(o Observer[T]) Subscription {
		var prev T
		has := false
		return s.Subscribe(Observer[T]{
			Next: func(v T) {
				if has && same(prev, v) {
					return
				}
				prev = v
				has = true
				o.next(v)
			},
			Error: o.fail,
		})
	})
}
