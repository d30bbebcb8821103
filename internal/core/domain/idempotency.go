package domain

import (
	"time"

	"github.com/google/uuid"
)

// IdempotencyRecord caches the result of a completed ledger operation so a
// retried request with the same reference returns the original outcome
// instead of moving money twice.
type IdempotencyRecord struct {
	Key           string    `json:"key"` // Format: "wallet_id:operation:reference_id"
	TransactionID uuid.UUID `json:"transaction_id"`
	ResponseJSON  []byte    `json:"response_json"`
	CreatedAt     time.Time `json:"created_at"`
}

// BuildIdempotencyKey constructs the standard key format. The wallet id used
// is the operation's primary wallet (source for transfers and withdrawals,
// destination for deposits).
func BuildIdempotencyKey(walletID uuid.UUID, operation TransactionType, referenceID string) string {
	return walletID.String() + ":" + string(operation) + ":" + referenceID
}
