package memory

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// RateCounter is an in-process ports.RateCounter for tests and local
// runs. Counters keep the same (caller, windowStart) keying as the
// shared store.
type RateCounter struct {
	mu     sync.Mutex
	counts map[string]int64

	FailWith error
}

func NewRateCounter() *RateCounter {
	return &RateCounter{counts: make(map[string]int64)}
}

func (c *RateCounter) Incr(ctx context.Context, callerID string, windowStart int64, window time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailWith != nil {
		return 0, c.FailWith
	}
	key := fmt.Sprintf("%s:%d", callerID, windowStart)
	c.counts[key]++
	return c.counts[key], nil
}
