package process

import (
	"context"
	"time"

	"bankhook/internal/ports"
	"bankhook/internal/types"

	json "github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
)

// Processor applies an admitted batch exactly once per transactionId.
// The persistent DedupStore is claimed by a conditional insert BEFORE
// the business effect runs: that reservation is the only step that is
// atomic across process instances, so it, not the cache check, decides
// races. A failed apply compensates by removing the reservation; a
// failed compensation leaves the id marked, which trades a lost
// transaction report for the guarantee that a resend can never
// double-apply.
type Processor struct {
	store        ports.DedupStore
	cache        *dedupCache
	apply        ApplyFunc
	publisher    ports.Publisher
	forwardArn   string
	retention    time.Duration
	storeTimeout time.Duration
}

func NewProcessor(store ports.DedupStore, apply ApplyFunc, retention, storeTimeout time.Duration) *Processor {
	if apply == nil {
		apply = DefaultApply
	}
	return &Processor{
		store:        store,
		cache:        newDedupCache(retention),
		apply:        apply,
		retention:    retention,
		storeTimeout: storeTimeout,
	}
}

// WithForwarding makes the processor publish each successfully processed
// transaction to the given topic. Best effort: publish failures are
// logged, never reflected in the outcome.
func (p *Processor) WithForwarding(pub ports.Publisher, arn string) *Processor {
	p.publisher = pub
	p.forwardArn = arn
	return p
}

// Warm rebuilds the in-memory dedup cache from the persistent index.
func (p *Processor) Warm(ctx context.Context) error {
	return p.cache.warm(ctx, p.store)
}

// ProcessBatch runs every transaction in the batch independently and
// returns outcomes in input order. Transactions are processed
// sequentially; ordering between them carries no semantics beyond the
// response array position.
func (p *Processor) ProcessBatch(ctx context.Context, batch types.NotificationBatch) BatchResult {
	result := BatchResult{Outcomes: make([]Outcome, 0, len(batch.Data))}
	for _, tx := range batch.Data {
		o := p.processOne(ctx, batch.BatchID, tx)
		if o.Kind == Success {
			result.ProcessedCount++
		}
		result.Outcomes = append(result.Outcomes, o)
	}
	log.WithFields(log.Fields{
		"batch_id":  batch.BatchID,
		"total":     len(batch.Data),
		"processed": result.ProcessedCount,
		"failed":    len(batch.Data) - result.ProcessedCount,
	}).Info("batch processed")
	return result
}

func (p *Processor) processOne(ctx context.Context, batchID string, tx types.TransactionRecord) Outcome {
	o := Outcome{TransactionID: tx.TransactionID}

	// Fast path: recently processed in this instance.
	if p.cache.contains(tx.TransactionID) {
		log.WithField("transaction_id", tx.TransactionID).Warn("duplicate transaction detected")
		o.Kind = DuplicateRejected
		return o
	}

	if reasons := ValidateRecord(tx); len(reasons) > 0 {
		o.Kind = ValidationFailed
		o.Reasons = reasons
		return o
	}

	// Reserve the id before applying. This is the per-id compare-and-set
	// that keeps two concurrent batches from both applying.
	entry := types.DedupEntry{
		TransactionID: tx.TransactionID,
		BatchID:       batchID,
		ProcessedAt:   time.Now(),
	}
	sctx, cancel := context.WithTimeout(ctx, p.storeTimeout)
	won, err := p.store.Insert(sctx, entry, p.retention)
	cancel()
	if err != nil {
		// Dedup store fault fails closed: without the duplicate check we
		// cannot rule out double-application, so the transaction is
		// rejected as unprocessed and can be resent.
		log.WithError(err).WithField("transaction_id", tx.TransactionID).
			Error("dedup store unavailable, rejecting transaction unprocessed")
		o.Kind = ProcessingError
		o.Reasons = []string{"duplicate index unavailable, transaction not processed"}
		return o
	}
	if !won {
		o.Kind = DuplicateRejected
		p.cache.add(tx.TransactionID, time.Now())
		return o
	}

	actx, cancel := context.WithTimeout(ctx, p.storeTimeout)
	applyErr := p.apply(actx, tx)
	cancel()
	if applyErr != nil {
		p.release(tx.TransactionID)
		o.Kind = ProcessingError
		o.Reasons = []string{applyErr.Error()}
		return o
	}

	p.cache.add(tx.TransactionID, entry.ProcessedAt)
	p.forward(ctx, tx)
	o.Kind = Success
	return o
}

// release compensates a reservation whose apply step failed. If the
// delete itself fails the id stays marked; the resend will then report a
// duplicate rather than risk applying twice.
func (p *Processor) release(txID string) {
	ctx, cancel := context.WithTimeout(context.Background(), p.storeTimeout)
	defer cancel()
	if err := p.store.Remove(ctx, txID); err != nil {
		log.WithError(err).WithField("transaction_id", txID).
			Error("failed to release dedup reservation after apply error")
	}
}

func (p *Processor) forward(ctx context.Context, tx types.TransactionRecord) {
	if p.publisher == nil || p.forwardArn == "" {
		return
	}
	b, err := json.Marshal(tx)
	if err != nil {
		log.WithError(err).Warn("failed to marshal transaction for forwarding")
		return
	}
	if err := p.publisher.PublishRaw(ctx, p.forwardArn, b); err != nil {
		log.WithError(err).WithField("transaction_id", tx.TransactionID).
			Warn("downstream forward failed")
	}
}

// CacheSize exposes the in-memory cache size for the stats endpoint.
func (p *Processor) CacheSize() int { return p.cache.size() }
