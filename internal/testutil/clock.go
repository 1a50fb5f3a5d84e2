package testutil

import (
	"sync"
	"time"
)

// Epoch is the default "today" of deterministic runs.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// DeterministicClock numbers harness steps and runs from 1 and reports a
// fixed date as today, so a scenario replays to the same snapshot.
//
// Safe for concurrent use.
type DeterministicClock struct {
	mu    sync.Mutex
	seq   int64
	today time.Time
}

// NewDeterministicClock returns a clock at sequence 0 whose date is Epoch.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{today: Epoch}
}

// NewDeterministicClockAt is NewDeterministicClock with a chosen date.
// The time of day is dropped.
func NewDeterministicClockAt(today time.Time) *DeterministicClock {
	y, m, d := today.UTC().Date()
	return &DeterministicClock{today: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// Next advances the sequence and returns it.
func (c *DeterministicClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Today returns the fixed date.
func (c *DeterministicClock) Today() time.Time {
	return c.today
}
