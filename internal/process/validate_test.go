package process

import (
	"testing"

	"bankhook/internal/types"

	"github.com/stretchr/testify/assert"
)

func validRecord() types.TransactionRecord {
	bal := 2_000_000.0
	return types.TransactionRecord{
		TransactionID:    "TXN_20250101_0001",
		TranRefNo:        "REF_0001",
		SrcAccountNumber: "1234567890123",
		Amount:           500_000,
		BalanceAvailable: &bal,
		TransType:        types.TransTypeCredit,
	}
}

func TestValidateRecordOK(t *testing.T) {
	assert.Empty(t, ValidateRecord(validRecord()))

	// Nil balance is acceptable.
	tx := validRecord()
	tx.BalanceAvailable = nil
	assert.Empty(t, ValidateRecord(tx))
}

func TestValidateRecordViolations(t *testing.T) {
	tx := validRecord()
	tx.TransactionID = "short"
	tx.Amount = -5
	reasons := ValidateRecord(tx)
	assert.Len(t, reasons, 2)
	assert.Contains(t, reasons, "invalid transaction ID format")
	assert.Contains(t, reasons, "transaction amount must be positive")

	tx = validRecord()
	tx.Amount = 0
	assert.Contains(t, ValidateRecord(tx), "transaction amount must be positive")

	tx = validRecord()
	tx.SrcAccountNumber = "1234567"
	assert.Contains(t, ValidateRecord(tx), "invalid account number format")

	tx = validRecord()
	tx.TransType = "X"
	reasons = ValidateRecord(tx)
	assert.Len(t, reasons, 1)
	assert.Contains(t, reasons[0], "invalid transaction type")

	tx = validRecord()
	neg := -1.0
	tx.BalanceAvailable = &neg
	assert.Contains(t, ValidateRecord(tx), "available balance must be non-negative")
}
