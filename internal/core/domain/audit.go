package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AuditAction represents the type of audited state change.
type AuditAction string

const (
	AuditActionWalletUpdated       AuditAction = "WALLET_UPDATED"
	AuditActionTransactionRecorded AuditAction = "TRANSACTION_RECORDED"
)

// AuditEntry is an immutable, human-readable record of a single state
// change. Entries are written synchronously inside the same unit of work as
// the mutation they describe: if the mutation rolls back, the entry must
// not exist.
type AuditEntry struct {
	ID        uuid.UUID   `json:"id"`
	Action    AuditAction `json:"action"`
	Details   string      `json:"details"` // JSON payload
	CreatedAt time.Time   `json:"created_at"`
}

// WalletUpdateDetails is the payload for a WALLET_UPDATED entry.
type WalletUpdateDetails struct {
	WalletID        uuid.UUID       `json:"wallet_id"`
	PreviousBalance decimal.Decimal `json:"previous_balance"`
	NewBalance      decimal.Decimal `json:"new_balance"`
}

// TransactionDetails is the payload for a TRANSACTION_RECORDED entry.
type TransactionDetails struct {
	TransactionID       uuid.UUID       `json:"transaction_id"`
	SourceWalletID      *uuid.UUID      `json:"source_wallet_id,omitempty"`
	DestinationWalletID *uuid.UUID      `json:"destination_wallet_id,omitempty"`
	Amount              decimal.Decimal `json:"amount"`
}

// NewWalletUpdateEntry builds the audit entry for one wallet balance change.
func NewWalletUpdateEntry(walletID uuid.UUID, previous, current decimal.Decimal, at time.Time) *AuditEntry {
	details, _ := json.Marshal(WalletUpdateDetails{
		WalletID:        walletID,
		PreviousBalance: previous,
		NewBalance:      current,
	})
	return &AuditEntry{
		ID:        uuid.New(),
		Action:    AuditActionWalletUpdated,
		Details:   string(details),
		CreatedAt: at,
	}
}

// NewTransactionEntry builds the audit entry for a transaction append.
func NewTransactionEntry(t *Transaction, at time.Time) *AuditEntry {
	details, _ := json.Marshal(TransactionDetails{
		TransactionID:       t.ID,
		SourceWalletID:      t.SourceWalletID,
		DestinationWalletID: t.DestinationWalletID,
		Amount:              t.Amount,
	})
	return &AuditEntry{
		ID:        uuid.New(),
		Action:    AuditActionTransactionRecorded,
		Details:   string(details),
		CreatedAt: at,
	}
}
