package process

import (
	"context"
	"sync"
	"time"

	"bankhook/internal/ports"

	log "github.com/sirupsen/logrus"
)

// dedupCache is the in-memory membership front for the persistent index.
// It answers the fast-path duplicate check; the persistent conditional
// insert remains the source of truth. Entries age out lazily at the
// retention horizon. One mutex; correctness-safe within one process
// instance only.
type dedupCache struct {
	mu        sync.Mutex
	seen      map[string]time.Time // transactionId -> processedAt
	retention time.Duration
}

func newDedupCache(retention time.Duration) *dedupCache {
	return &dedupCache{
		seen:      make(map[string]time.Time),
		retention: retention,
	}
}

// warm rebuilds the cache from the persistent index, bounded by the
// retention horizon. Called once at startup.
func (c *dedupCache) warm(ctx context.Context, store ports.DedupStore) error {
	since := time.Now().Add(-c.retention)
	entries, err := store.LoadRecent(ctx, since)
	if err != nil {
		return err
	}
	c.mu.Lock()
	for _, e := range entries {
		c.seen[e.TransactionID] = e.ProcessedAt
	}
	c.mu.Unlock()
	log.WithField("entries", len(entries)).Info("dedup cache warmed from persistent index")
	return nil
}

func (c *dedupCache) contains(txID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	at, ok := c.seen[txID]
	if !ok {
		return false
	}
	if time.Since(at) > c.retention {
		delete(c.seen, txID)
		return false
	}
	return true
}

func (c *dedupCache) add(txID string, at time.Time) {
	c.mu.Lock()
	c.seen[txID] = at
	c.mu.Unlock()
}

func (c *dedupCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}
