package engine

import "sync/atomic"

// Clock is a monotonic logical clock stamping acquisition results for the
// run ledger. Seq numbers, not wall time, define result order: they make
// the ledger's ordering deterministic and immune to host clock jumps
// mid-run.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0; the first Next() returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
