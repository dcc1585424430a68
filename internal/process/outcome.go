package process

import "strings"

// OutcomeKind classifies the result of processing one transaction.
type OutcomeKind int

const (
	Success OutcomeKind = iota
	DuplicateRejected
	ValidationFailed
	ProcessingError
)

// Outcome is the per-transaction processing result, prior to response
// composition.
type Outcome struct {
	TransactionID string
	Kind          OutcomeKind
	// Reasons holds the violated validation rules (ValidationFailed) or
	// a single failure reason (ProcessingError).
	Reasons []string
}

func (o Outcome) Reason() string {
	return strings.Join(o.Reasons, ", ")
}

// BatchResult aggregates outcomes for one batch in input order.
type BatchResult struct {
	ProcessedCount int
	Outcomes       []Outcome
}

// AllSucceeded reports whether every transaction in the batch succeeded;
// a single failure marks the batch partially failed.
func (r BatchResult) AllSucceeded() bool {
	return r.ProcessedCount == len(r.Outcomes)
}
