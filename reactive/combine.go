package reactive

type erased func(next func(any), fail func(error)) Subscription

func erase[T any](s Stream[T]) erased {
	return func(next func(any), fail func(error)) Subscription {
		return s.Subscribe(Observer[T]{
			Next:  func(v T) { next(v) },
			Error: fail,
		})
	}
}

// cast converts an erased value back, tolerating nil interface values.
func cast[T any](v any) T {
	if v == nil {
		var zero T
		return zero
	}
	return v.(T)
}

// combineLatest emits the latest value of every source each time one of them
// emits, once all of them have produced at least one value.
func combineLatest(sources ...erased) Stream[[]any] {
	return New(func(o Observer[[]any]) Subscription {
		n := len(sources)
		values := make([]any, n)
		has := make([]bool, n)
		ready := 0
		done := false
		subs := make([]Subscription, 0, n)

		unsubscribeAll := func() {
			for _, sub := range subs {
				sub.Unsubscribe()
			}
		}

		for i, subscribe := range sources {
			if done {
				break
			}
			idx := i
			sub := subscribe(func(v any) {
				if done {
					return
				}
				if !has[idx] {
					has[idx] = true
					ready++
				}
				values[idx] = v
				if ready == n {
					latest := make([]any, n)
					copy(latest, values)
					o.next(latest)
				}
			}, func(err error) {
				if done {
					return
				}
				done = true
				unsubscribeAll()
				o.fail(err)
			})
			subs = append(subs, sub)
		}
		if done {
			unsubscribeAll()
		}

		return SubscriptionFunc(func() {
			done = true
			unsubscribeAll()
		})
	})
}

// CombineLatest2 projects the latest values of a and b whenever either emits
func CombineLatest2[A, B, R any](a Stream[A], b Stream[B], f func(A, B) R) Stream[R] {
	return Map(combineLatest(erase(a), erase(b)), func(v []any) R {
		return f(cast[A](v[0]), cast[B](v[1]))
	})
}

// CombineLatest3 projects the latest values of a, b and c whenever one of them emits
func CombineLatest3[A, B, C, R any](a Stream[A], b Stream[B], c Stream[C], f func(A, B, C) R) Stream[R] {
	return Map(combineLatest(erase(a), erase(b), erase(c)), func(v []any) R {
		return f(cast[A](v[0]), cast[B](v[1]), cast[C](v[2]))
	})
}

// CombineLatest4 projects the latest values of four streams whenever one of them emits
func CombineLatest4[A, B, C, D, R any](a Stream[A], b Stream[B], c Stream[C], d Stream[D], f func(A, B, C, D) R) Stream[R] {
	return Map(combineLatest(erase(a), erase(b), erase(c), erase(d)), func(v []any) R {
		return f(cast[A](v[0]), cast[B](v[1]), cast[C](v[2]), cast[D](v[3]))
	})
}

// CombineLatest2Err is CombineLatest2 with a projection that may fail; the
// first error terminates the stream.
func CombineLatest2Err[A, B, R any](a Stream[A], b Stream[B], f func(A, B) (R, error)) Stream[R] {
	return MapErr(combineLatest(erase(a), erase(b)), func(v []any) (R, error) {
		return f(cast[A](v[0]), cast[B](v[1]))
	})
}
