package dashboard

import (
	"time"

	"forecast-dashboard/reactive"
)

// serialScheduler runs timer callbacks while holding the dashboard lock and
// counts timers that have neither fired nor been stopped. AfterFunc and Stop
// are only reached from inside an emission, so the lock is already held there.
type serialScheduler struct {
	d    *Dashboard
	base reactive.Scheduler
}

type serialTimer struct {
	d     *Dashboard
	inner reactive.Timer
	done  bool
}

func (s *serialScheduler) AfterFunc(dur time.Duration, f func()) reactive.Timer {
	t := &serialTimer{d: s.d}
	s.d.pending++

	locked := reactive.SchedulerFunc{Base: s.base, Wrap: s.d.locked}
	t.inner = locked.AfterFunc(dur, func() {
		if t.done {
			return
		}
		t.done = true
		s.d.pending--
		f()
		if s.d.pending == 0 {
			s.d.broadcast()
		}
	})
	return t
}

func (t *serialTimer) Stop() bool {
	if t.done {
		return false
	}
	t.done = true
	t.d.pending--
	t.inner.Stop()
	return true
}
