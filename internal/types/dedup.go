package types

import "time"

// DedupEntry is the persisted record of a processed transaction. Once a
// TransactionID has an entry, no later batch may re-apply it until the
// retention TTL reclaims the row.
type DedupEntry struct {
	TransactionID string    `dynamodbav:"transaction_id" json:"transaction_id"`
	BatchID       string    `dynamodbav:"batch_id" json:"batch_id"`
	ProcessedAt   time.Time `dynamodbav:"processed_at,unixtime" json:"processed_at"`
}

// DedupStats is returned by the admin statistics endpoint.
type DedupStats struct {
	TotalProcessed int       `json:"total_processed"`
	Oldest         time.Time `json:"oldest,omitempty"`
	Newest         time.Time `json:"newest,omitempty"`
}
