package ports

import (
	"context"
	"time"
)

// RateCounter is the shared fixed-window counter behind the rate
// limiter. Implementations MUST make Incr atomic across concurrent
// callers and across process instances, and MUST let the counter expire
// after roughly two window lengths so stale windows are reclaimed.
type RateCounter interface {
	// Incr bumps the counter for (callerID, windowStart) and returns the
	// post-increment value. windowStart is epoch seconds aligned to the
	// window boundary.
	Incr(ctx context.Context, callerID string, windowStart int64, window time.Duration) (int64, error)
}
