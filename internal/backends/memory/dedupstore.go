package memory

import (
	"context"
	"sync"
	"time"

	"bankhook/internal/types"
)

// DedupStore is an in-process ports.DedupStore. It is correctness-safe
// only within a single instance and exists for tests and local runs;
// production deployments use the DynamoDB or Redis store.
type DedupStore struct {
	mu      sync.Mutex
	entries map[string]stored

	// FailWith, when set, makes every operation return the error. Tests
	// use it to exercise the fail-closed policy.
	FailWith error
}

type stored struct {
	entry     types.DedupEntry
	expiresAt time.Time
}

func NewDedupStore() *DedupStore {
	return &DedupStore{entries: make(map[string]stored)}
}

func (s *DedupStore) Insert(ctx context.Context, entry types.DedupEntry, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return false, s.FailWith
	}
	if st, ok := s.entries[entry.TransactionID]; ok && time.Now().Before(st.expiresAt) {
		return false, nil
	}
	s.entries[entry.TransactionID] = stored{
		entry:     entry,
		expiresAt: entry.ProcessedAt.Add(ttl),
	}
	return true, nil
}

func (s *DedupStore) Remove(ctx context.Context, transactionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	delete(s.entries, transactionID)
	return nil
}

func (s *DedupStore) LoadRecent(ctx context.Context, since time.Time) ([]types.DedupEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return nil, s.FailWith
	}
	var out []types.DedupEntry
	for _, st := range s.entries {
		if !st.entry.ProcessedAt.Before(since) {
			out = append(out, st.entry)
		}
	}
	return out, nil
}

func (s *DedupStore) Stats(ctx context.Context) (types.DedupStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return types.DedupStats{}, s.FailWith
	}
	var stats types.DedupStats
	for _, st := range s.entries {
		stats.TotalProcessed++
		at := st.entry.ProcessedAt
		if stats.Oldest.IsZero() || at.Before(stats.Oldest) {
			stats.Oldest = at
		}
		if at.After(stats.Newest) {
			stats.Newest = at
		}
	}
	return stats, nil
}

func (s *DedupStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return 0, s.FailWith
	}
	n := 0
	for id, st := range s.entries {
		if st.entry.ProcessedAt.Before(cutoff) {
			delete(s.entries, id)
			n++
		}
	}
	return n, nil
}
