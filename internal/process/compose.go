package process

import "bankhook/internal/types"

// Compose renders the batch result as the caller-facing envelope. The
// batch-level code is 200 only when every transaction succeeded; any
// single failure flips it to 400 even though the transport status stays
// 200.
func Compose(batchID string, result BatchResult) types.Envelope {
	data := make([]types.TransactionResult, 0, len(result.Outcomes))
	for _, o := range result.Outcomes {
		data = append(data, composeOne(o))
	}
	env := types.Envelope{
		BatchID: batchID,
		Data:    data,
	}
	if result.AllSucceeded() {
		env.Code = types.CodeSuccess
		env.Message = "Success"
	} else {
		env.Code = types.CodePartialFailed
		env.Message = "Some transactions failed"
	}
	return env
}

func composeOne(o Outcome) types.TransactionResult {
	r := types.TransactionResult{
		TransactionID:  o.TransactionID,
		AdditionalInfo: map[string]any{},
	}
	switch o.Kind {
	case Success:
		r.ErrorCode = types.TxCodeSuccess
		r.Description = "Transaction processed successfully"
	case DuplicateRejected:
		r.ErrorCode = types.TxCodeDuplicate
		r.Description = "Duplicate transaction"
		r.AdditionalInfo["reason"] = "duplicate_transaction"
	case ValidationFailed:
		r.ErrorCode = types.TxCodeFailed
		r.Description = "Validation failed: " + o.Reason()
		r.AdditionalInfo["validation_errors"] = o.Reasons
	case ProcessingError:
		r.ErrorCode = types.TxCodeFailed
		r.Description = "Processing failed: " + o.Reason()
		r.AdditionalInfo["error_detail"] = o.Reason()
	}
	return r
}
