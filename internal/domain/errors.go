package domain

import "errors"

// Infrastructure failures. These surface as 5xx responses and are never mixed
// into validation error lists.
var (
	ErrChainUnavailable = errors.New("chain provider unavailable")
	ErrReceiptNotFound  = errors.New("transaction receipt not found")
)

// ValidationError reports one failed check, keyed by the claimed field that
// disagreed. Stage failures are data, not Go errors, so every violation a
// stage finds can be reported together.
type ValidationError struct {
	Key     string `json:"key"`
	Message string `json:"message"`
}

// RecordVerifier is the external off-chain integrity primitive. It validates
// one record's internal hash/content relationships and returns every
// violation it finds; the exact rule set belongs to the implementation.
type RecordVerifier interface {
	VerifyRecord(record DataRecord) []ValidationError
}
