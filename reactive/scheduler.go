package reactive

import (
	"sort"
	"sync"
	"time"
)

// Timer is a pending single-shot callback
type Timer interface {
	Stop() bool
}

// Scheduler runs callbacks after a delay
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// DefaultScheduler runs callbacks on their own goroutine via time.AfterFunc
var DefaultScheduler Scheduler = realScheduler{}

// SchedulerFunc wraps every scheduled callback with wrap before it runs.
// The dashboard uses it to take its lock around timer callbacks.
type SchedulerFunc struct {
	Base Scheduler
	Wrap func(f func())
}

// AfterFunc schedules f on the base scheduler, wrapped
func (s SchedulerFunc) AfterFunc(d time.Duration, f func()) Timer {
	base := s.Base
	if base == nil {
		base = DefaultScheduler
	}
	return base.AfterFunc(d, func() { s.Wrap(f) })
}

// VirtualScheduler is a manually advanced clock for deterministic tests
type VirtualScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	seq    int
	timers []*virtualTimer
}

type virtualTimer struct {
	s    *VirtualScheduler
	at   time.Duration
	seq  int
	f    func()
	done bool
}

// NewVirtualScheduler creates a scheduler at virtual time zero
func NewVirtualScheduler() *VirtualScheduler {
	return &VirtualScheduler{}
}

// AfterFunc registers f to run once the clock has advanced by d
func (s *VirtualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	t := &virtualTimer{s: s, at: s.now + d, seq: s.seq, f: f}
	s.timers = append(s.timers, t)
	return t
}

// Stop cancels the timer, reporting whether it was still pending
func (t *virtualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	if t.done {
		return false
	}
	t.done = true
	return true
}

// Advance moves the clock forward by d, running due callbacks in time order
func (s *VirtualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d

	for {
		next := s.nextDue(target)
		if next == nil {
			break
		}
		next.done = true
		s.now = next.at
		s.mu.Unlock()

		next.f()

		s.mu.Lock()
	}

	s.now = target
	s.compact()
	s.mu.Unlock()
}

// Pending returns the number of timers that have not fired or been stopped
func (s *VirtualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, t := range s.timers {
		if !t.done {
			n++
		}
	}
	return n
}

// Now returns the elapsed virtual time
func (s *VirtualScheduler) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *VirtualScheduler) nextDue(target time.Duration) *virtualTimer {
	var due []*virtualTimer
	for _, t := range s.timers {
		if !t.done && t.at <= target {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}

	sort.Slice(due, func(i, j int) bool {
		if due[i].at != due[j].at {
			return due[i].at < due[j].at
		}
		return due[i].seq < due[j].seq
	})
	return due[0]
}

func (s *VirtualScheduler) compact() {
	live := s.timers[:0]
	for _, t := range s.timers {
		if !t.done {
			live = append(live, t)
		}
	}
	s.timers = live
}
