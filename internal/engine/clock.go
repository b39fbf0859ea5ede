package engine

import "sync/atomic"

// Clock is the session's monotonic attempt counter.
//
// Every run takes the next value, so attempt numbers are strictly
// increasing within a session and reports can be ordered without relying
// on wall-clock time.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0; the first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock resuming after start.
// Used when a session is restored from the attempt log.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next attempt number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the latest attempt number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
