package engine

import "sync/atomic"

// Clock numbers events. Numbers start at 1 and keep increasing across runs
// that share the clock (see WithClock), so events from several runs sort
// in emission order.
type Clock struct {
	n atomic.Int64
}

// NewClock creates a clock whose first number is 1.
func NewClock() *Clock {
	return &Clock{}
}

// Next issues the next number.
func (c *Clock) Next() int64 {
	return c.n.Add(1)
}

// Last returns the most recently issued number, or 0 if none was.
func (c *Clock) Last() int64 {
	return c.n.Load()
}
