package process

import (
	"context"
	"fmt"

	"bankhook/internal/types"
)

// ApplyFunc is the business-effect step for one transaction. It must not
// assume exclusivity; the dedup reservation around it is what guarantees
// at-most-once application.
type ApplyFunc func(ctx context.Context, tx types.TransactionRecord) error

// DefaultApply models the (opaque) business effect as a deterministic
// function of the transaction type. Validation guarantees the type is
// one of the recognized codes before this runs.
func DefaultApply(ctx context.Context, tx types.TransactionRecord) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	switch tx.TransType {
	case types.TransTypeCredit, types.TransTypeDebit:
		return nil
	default:
		return fmt.Errorf("unrecognized transaction type %q", tx.TransType)
	}
}
