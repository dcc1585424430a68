package types

// Transaction type codes as sent by the bank.
const (
	TransTypeCredit = "C"
	TransTypeDebit  = "D"
)

const (
	TransactionIDMinLength = 10
	AccountNumberMinLength = 8
)

// NotificationBatch is one inbound webhook request: a signed batch of
// transaction records sharing a batchId. The signature covers the
// canonical string built from SourceAppID, BatchID and Timestamp (see
// gate.CanonicalString). Timestamp and BatchID are opaque strings here;
// they are forwarded for persistence and audit, never reparsed.
type NotificationBatch struct {
	SourceAppID string              `json:"sourceAppId"`
	BatchID     string              `json:"batchId"`
	Timestamp   string              `json:"timestamp"`
	Signature   string              `json:"signature"`
	Data        []TransactionRecord `json:"data"`
}

// TransactionRecord is a single transaction notification within a batch.
// TransactionID is the idempotency key. The descriptive ofs*/time fields
// are optional and default to empty; BalanceAvailable is nullable.
type TransactionRecord struct {
	TransactionID    string   `json:"transactionId"`
	TranRefNo        string   `json:"tranRefNo"`
	SrcAccountNumber string   `json:"srcAccountNumber"`
	Amount           float64  `json:"amount"`
	BalanceAvailable *float64 `json:"balanceAvailable,omitempty"`
	TransType        string   `json:"transType"`

	NoticeCreatedTime string `json:"noticeCreatedTime,omitempty"`
	TransTime         string `json:"transTime,omitempty"`
	TransDesc         string `json:"transDesc,omitempty"`
	OfsAccountNumber  string `json:"ofsAccountNumber,omitempty"`
	OfsAccountName    string `json:"ofsAccountName,omitempty"`
	OfsBankID         string `json:"ofsBankId,omitempty"`
	OfsBankName       string `json:"ofsBankName,omitempty"`
}
