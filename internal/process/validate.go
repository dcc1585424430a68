package process

import (
	"fmt"

	"bankhook/internal/types"
)

// ValidateRecord checks a transaction record against the admission
// rules. It returns the full list of violated rules, not just the first.
func ValidateRecord(tx types.TransactionRecord) []string {
	var reasons []string
	if len(tx.TransactionID) < types.TransactionIDMinLength {
		reasons = append(reasons, "invalid transaction ID format")
	}
	if tx.Amount <= 0 {
		reasons = append(reasons, "transaction amount must be positive")
	}
	if len(tx.SrcAccountNumber) < types.AccountNumberMinLength {
		reasons = append(reasons, "invalid account number format")
	}
	if tx.TransType != types.TransTypeCredit && tx.TransType != types.TransTypeDebit {
		reasons = append(reasons, fmt.Sprintf("invalid transaction type %q, must be %s or %s",
			tx.TransType, types.TransTypeCredit, types.TransTypeDebit))
	}
	if tx.BalanceAvailable != nil && *tx.BalanceAvailable < 0 {
		reasons = append(reasons, "available balance must be non-negative")
	}
	return reasons
}
