package replay

import (
	"math"
	"sync"
	"time"
)

// StartDelay is the pause before the first paced step.
const StartDelay = 100 * time.Millisecond

// Interval returns the delay between paced steps for a speed in [0,1].
// The scale is quadratic so the fast end of the range has fine control:
// speed 0 is one step per second, speed 1 is no delay.
func Interval(speed float64) time.Duration {
	if math.IsNaN(speed) {
		speed = 0
	}
	speed = math.Min(math.Max(speed, 0), 1)
	ms := 1000 * math.Pow(1-speed, 2)
	return time.Duration(ms * float64(time.Millisecond))
}

// Timer is a pending scheduled step.
type Timer interface {
	// Stop cancels the step. It reports whether the step was still pending.
	Stop() bool
}

// Scheduler runs a function after a delay.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// RealScheduler schedules on wall-clock timers.
type RealScheduler struct{}

// AfterFunc implements Scheduler with time.AfterFunc.
func (RealScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// ManualScheduler is a cooperative scheduler driven by its host.
//
// Tasks never run on their own; the host calls RunNext or Drain. Delays are
// recorded but not waited for, which makes paced replay deterministic in
// tests and batch tools.
type ManualScheduler struct {
	mu     sync.Mutex
	queue  []*manualTask
	delays []time.Duration
}

type manualTask struct {
	mu      sync.Mutex
	f       func()
	stopped bool
	ran     bool
}

func (t *manualTask) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || t.ran {
		return false
	}
	t.stopped = true
	return true
}

// NewManualScheduler creates an empty scheduler.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// AfterFunc queues f. The delay is recorded in Delays.
func (s *ManualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTask{f: f}
	s.queue = append(s.queue, t)
	s.delays = append(s.delays, d)
	return t
}

// RunNext runs the oldest queued task that has not been stopped.
// It reports whether a task ran.
func (s *ManualScheduler) RunNext() bool {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			return false
		}
		t := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.mu.Unlock()

		t.mu.Lock()
		if t.stopped {
			t.mu.Unlock()
			continue
		}
		t.ran = true
		t.mu.Unlock()

		t.f()
		return true
	}
}

// Drain runs tasks until none remain and returns how many ran.
// Tasks scheduled by running tasks are included.
func (s *ManualScheduler) Drain() int {
	n := 0
	for s.RunNext() {
		n++
	}
	return n
}

// Pending returns the number of queued tasks, stopped ones included.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Delays returns every delay requested so far, in order.
func (s *ManualScheduler) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.delays))
	copy(out, s.delays)
	return out
}
