package memory

import (
	"context"
	"testing"
	"time"

	"bankhook/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(id string, at time.Time) types.DedupEntry {
	return types.DedupEntry{TransactionID: id, BatchID: "B1", ProcessedAt: at}
}

func TestDedupStoreInsertIsConditional(t *testing.T) {
	s := NewDedupStore()
	ctx := context.Background()
	now := time.Now()

	won, err := s.Insert(ctx, entry("T1", now), time.Hour)
	require.NoError(t, err)
	assert.True(t, won)

	won, err = s.Insert(ctx, entry("T1", now), time.Hour)
	require.NoError(t, err)
	assert.False(t, won)

	require.NoError(t, s.Remove(ctx, "T1"))
	won, err = s.Insert(ctx, entry("T1", now), time.Hour)
	require.NoError(t, err)
	assert.True(t, won)
}

func TestDedupStoreLoadRecent(t *testing.T) {
	s := NewDedupStore()
	ctx := context.Background()
	now := time.Now()

	_, err := s.Insert(ctx, entry("OLD", now.Add(-48*time.Hour)), 30*24*time.Hour)
	require.NoError(t, err)
	_, err = s.Insert(ctx, entry("NEW", now), 30*24*time.Hour)
	require.NoError(t, err)

	recent, err := s.LoadRecent(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "NEW", recent[0].TransactionID)
}

func TestDedupStoreStatsAndCleanup(t *testing.T) {
	s := NewDedupStore()
	ctx := context.Background()
	now := time.Now()

	_, _ = s.Insert(ctx, entry("T1", now.Add(-72*time.Hour)), 30*24*time.Hour)
	_, _ = s.Insert(ctx, entry("T2", now), 30*24*time.Hour)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalProcessed)
	assert.True(t, stats.Oldest.Before(stats.Newest))

	removed, err := s.DeleteOlderThan(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	stats, err = s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalProcessed)
}
