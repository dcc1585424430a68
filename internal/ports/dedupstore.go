package ports

import (
	"context"
	"time"

	"bankhook/internal/types"
)

// DedupStore is the persistent processed-transaction index. It is the
// correctness boundary for exactly-once application: Insert MUST be a
// conditional (compare-and-set style) write so that two concurrent
// batches carrying the same transactionId cannot both claim it.
type DedupStore interface {
	// Insert records the transaction as processed iff no entry exists.
	// Returns (true,nil) when this caller won the row, (false,nil) when
	// the id was already present, error for I/O faults. ttl bounds the
	// retention of the row.
	Insert(ctx context.Context, entry types.DedupEntry, ttl time.Duration) (bool, error)

	// Remove deletes an entry. Used to compensate a reservation whose
	// apply step failed, so the counterparty can resend the transaction.
	Remove(ctx context.Context, transactionID string) error

	// LoadRecent returns all entries processed at or after since. Used to
	// rebuild the in-memory membership cache at startup.
	LoadRecent(ctx context.Context, since time.Time) ([]types.DedupEntry, error)

	// Stats reports index size and age bounds for the admin endpoint.
	Stats(ctx context.Context) (types.DedupStats, error)

	// DeleteOlderThan purges entries processed before cutoff and returns
	// the number removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// BatchArchive persists the raw (compressed) request body of an admitted
// batch for audit. Best effort; failures must not fail the batch.
type BatchArchive interface {
	Save(ctx context.Context, batchID, sourceAppID, timestamp string, compressed []byte) error
}
