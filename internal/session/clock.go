package session

import "sync/atomic"

// Clock hands out resolution generations.
//
// Generations are strictly increasing. A resolution channel is identified by
// the generation it was opened with, and only events carrying the current
// generation may touch session state.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
// In practice only the event loop calls Next.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next generation and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the latest generation handed out, 0 if none.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
