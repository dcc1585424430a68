package types

// Batch-level response codes. Gate rejections reuse familiar HTTP
// numbers but travel in-band: the transport status for the webhook
// endpoint is always 200.
const (
	CodeSuccess       = "200"
	CodePartialFailed = "400"
	CodeBadRequest    = "400"
	CodeUnauthorized  = "401"
	CodeForbidden     = "403"
	CodeRateLimited   = "429"
	CodeInternalError = "500"
)

// Per-transaction error codes in the response array.
const (
	TxCodeSuccess   = "01" // processed
	TxCodeDuplicate = "02" // failed, no detail (duplicate)
	TxCodeResend    = "03" // failed, resend requested (reserved)
	TxCodeFailed    = "04" // failed, with reason
)

// BatchIDUnknown is echoed when the request could not be parsed far
// enough to recover a batchId.
const BatchIDUnknown = "unknown"

// Envelope is the caller-facing response shape. Every response from the
// webhook endpoint uses this structure, whether success, partial
// failure or gate rejection.
type Envelope struct {
	BatchID string              `json:"batchId"`
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Data    []TransactionResult `json:"data"`
}

// TransactionResult reports the outcome for one transaction, in the same
// position as the corresponding input record.
type TransactionResult struct {
	TransactionID  string         `json:"transactionId"`
	ErrorCode      string         `json:"errorCode"`
	Description    string         `json:"description"`
	AdditionalInfo map[string]any `json:"additionalInfo"`
}

// Reject builds a gate-rejection envelope with an empty data array.
func Reject(batchID, code, message string) Envelope {
	if batchID == "" {
		batchID = BatchIDUnknown
	}
	return Envelope{
		BatchID: batchID,
		Code:    code,
		Message: message,
		Data:    []TransactionResult{},
	}
}
