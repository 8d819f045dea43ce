package monitor

import "sync/atomic"

// Sequencer issues the sequence numbers calls are stamped with.
// Implementations must be safe for concurrent use.
type Sequencer interface {
	Next() int64
	Current() int64
}

// Clock is a monotonic logical clock for ordering dispatched calls.
//
// Safe for concurrent use. Every execution unit stamps calls from the
// same Clock.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0. The first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock whose next value is start+1.
// Used to continue numbering after a recorded boot.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
