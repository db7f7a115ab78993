package reactive

import (
	"sync"
	"time"
)

// Debounce emits the last value of a burst once no new value has arrived for d.
// Each value restarts the timer; errors are forwarded immediately and drop any
// pending value.
func Debounce[T any](s Stream[T], d time.Duration, sched Scheduler) Stream[T] {
	if sched == nil {
		sched = DefaultScheduler
	}

	return New(func(o Observer[T]) Subscription {
		var (
			mu      sync.Mutex
			timer   Timer
			pending T
			gen     int
			closed  bool
		)

		stop := func() {
			gen++
			if timer != nil {
				timer.Stop()
				timer = nil
			}
		}

		upstream := s.Subscribe(Observer[T]{
			Next: func(v T) {
				mu.Lock()
				defer mu.Unlock()
				if closed {
					return
				}

				stop()
				pending = v
				g := gen
				timer = sched.AfterFunc(d, func() {
					mu.Lock()
					if closed || g != gen {
						mu.Unlock()
						return
					}
					value := pending
					timer = nil
					mu.Unlock()

					o.next(value)
				})
			},
			Error: func(err error) {
				mu.Lock()
				if closed {
					mu.Unlock()
					return
				}
				closed = true
				stop()
				mu.Unlock()

				o.fail(err)
			},
		})

		return SubscriptionFunc(func() {
			mu.Lock()
			closed = true
			stop()
			mu.Unlock()

			upstream.Unsubscribe()
		})
	})
}
