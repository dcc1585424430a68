package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const rateKeyTemplate = "RateLimit:%s:%d"

// RateCounter implements ports.RateCounter on a shared Redis instance.
// INCR and EXPIRE run in one pipeline so the counter and its expiry are
// set together; the expiry is twice the window so a counter outlives its
// own window for clock-skew-tolerant reads but is eventually reclaimed.
type RateCounter struct {
	cli *redis.Client
}

func NewRateCounter(cli *redis.Client) *RateCounter {
	return &RateCounter{cli: cli}
}

func (c *RateCounter) Incr(ctx context.Context, callerID string, windowStart int64, window time.Duration) (int64, error) {
	key := rateKey(callerID, windowStart)
	pipe := c.cli.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, 2*window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func rateKey(callerID string, windowStart int64) string {
	return fmt.Sprintf(rateKeyTemplate, callerID, windowStart)
}
