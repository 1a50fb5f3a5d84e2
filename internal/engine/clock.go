package engine

import (
	"sync/atomic"
	"time"
)

// Clock supplies the current date for records that carry none, and numbers
// runs with a monotonic sequence.
//
// Thread-safety: Clock is safe for concurrent use.
type Clock struct {
	now func() time.Time
	seq atomic.Int64
}

// NewClock creates a clock backed by the wall clock.
func NewClock() *Clock {
	return &Clock{now: time.Now}
}

// NewFixedClock creates a clock whose Today is always t's date.
func NewFixedClock(t time.Time) *Clock {
	return &Clock{now: func() time.Time { return t }}
}

// Today returns the current UTC date at midnight. Records without an added
// date get this recency.
func (c *Clock) Today() time.Time {
	y, m, d := c.now().UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Next returns the next run sequence number.
// Calls are linearizable - each call returns a unique, increasing value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}
