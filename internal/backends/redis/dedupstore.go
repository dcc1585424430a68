package redis

import (
	"context"
	"errors"
	"time"

	"bankhook/internal/types"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

const (
	dedupKeyPrefix = "bankhook_dedup_"
	scanBatchSize  = 512
)

// DedupStore implements ports.DedupStore on Redis. SET NX gives the
// atomic check-and-insert; the key TTL enforces retention without a
// sweeper.
type DedupStore struct {
	cli *redis.Client
}

func NewDedupStore(cli *redis.Client) *DedupStore {
	return &DedupStore{cli: cli}
}

func (s *DedupStore) Insert(ctx context.Context, entry types.DedupEntry, ttl time.Duration) (bool, error) {
	val, err := json.Marshal(entry)
	if err != nil {
		return false, err
	}
	out := s.cli.SetNX(ctx, dedupKey(entry.TransactionID), string(val), ttl)
	if out.Err() != nil {
		return false, types.Err(types.ErrDedupStoreAccess, out.Err(), "")
	}
	return out.Val(), nil
}

func (s *DedupStore) Remove(ctx context.Context, transactionID string) error {
	out := s.cli.Del(ctx, dedupKey(transactionID))
	if out.Err() != nil {
		return types.Err(types.ErrDedupStoreAccess, out.Err(), "")
	}
	return nil
}

func (s *DedupStore) LoadRecent(ctx context.Context, since time.Time) ([]types.DedupEntry, error) {
	var entries []types.DedupEntry
	err := s.scan(ctx, func(e types.DedupEntry) error {
		if !e.ProcessedAt.Before(since) {
			entries = append(entries, e)
		}
		return nil
	})
	return entries, err
}

func (s *DedupStore) Stats(ctx context.Context) (types.DedupStats, error) {
	var stats types.DedupStats
	err := s.scan(ctx, func(e types.DedupEntry) error {
		stats.TotalProcessed++
		if stats.Oldest.IsZero() || e.ProcessedAt.Before(stats.Oldest) {
			stats.Oldest = e.ProcessedAt
		}
		if e.ProcessedAt.After(stats.Newest) {
			stats.Newest = e.ProcessedAt
		}
		return nil
	})
	return stats, err
}

func (s *DedupStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	var stale []string
	err := s.scan(ctx, func(e types.DedupEntry) error {
		if e.ProcessedAt.Before(cutoff) {
			stale = append(stale, dedupKey(e.TransactionID))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}
	out := s.cli.Del(ctx, stale...)
	if out.Err() != nil {
		return 0, types.Err(types.ErrDedupStoreAccess, out.Err(), "")
	}
	return len(stale), nil
}

func (s *DedupStore) scan(ctx context.Context, fn func(types.DedupEntry) error) error {
	var cursor uint64
	for {
		keys, next, err := s.cli.Scan(ctx, cursor, dedupKeyPrefix+"*", scanBatchSize).Result()
		if err != nil {
			return types.Err(types.ErrDedupStoreAccess, err, "")
		}
		for _, k := range keys {
			raw, err := s.cli.Get(ctx, k).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue // expired between SCAN and GET
				}
				return types.Err(types.ErrDedupStoreAccess, err, "")
			}
			var e types.DedupEntry
			if err := json.Unmarshal([]byte(raw), &e); err != nil {
				continue
			}
			if err := fn(e); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func dedupKey(txID string) string {
	return dedupKeyPrefix + txID
}
