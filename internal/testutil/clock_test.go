package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeterministicClock_Sequence(t *testing.T) {
	clock := NewDeterministicClock()

	assert.Equal(t, int64(1), clock.Next())
	assert.Equal(t, int64(2), clock.Next())
	assert.Equal(t, int64(1), NewDeterministicClock().Next(), "clocks are independent")
}

func TestDeterministicClock_Today(t *testing.T) {
	assert.Equal(t, Epoch, NewDeterministicClock().Today())

	at := NewDeterministicClockAt(time.Date(2025, 6, 7, 23, 59, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2025, 6, 7, 0, 0, 0, 0, time.UTC), at.Today())

	east := NewDeterministicClockAt(time.Date(2025, 6, 8, 1, 0, 0, 0, time.FixedZone("UTC+2", 2*60*60)))
	assert.Equal(t, at.Today(), east.Today(), "date is taken in UTC")
}

func TestDeterministicClock_ConcurrentNext(t *testing.T) {
	clock := NewDeterministicClock()
	const workers, calls = 8, 50

	var wg sync.WaitGroup
	out := make(chan int64, workers*calls)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range calls {
				out <- clock.Next()
			}
		}()
	}
	wg.Wait()
	close(out)

	seen := make(map[int64]bool, workers*calls)
	for v := range out {
		assert.False(t, seen[v], "duplicate sequence %d", v)
		seen[v] = true
	}
	assert.Len(t, seen, workers*calls)
	assert.Equal(t, int64(workers*calls+1), clock.Next())
}

func TestDay(t *testing.T) {
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Day(2))
	assert.Equal(t, Day(2), SongRef("s", "a", "A", "1", "T", 2).Recency)
}
