package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType represents the kind of money movement.
type TransactionType string

const (
	TransactionTypeTransfer TransactionType = "TRANSFER"
	TransactionTypeDeposit  TransactionType = "DEPOSIT"
	TransactionTypeWithdraw TransactionType = "WITHDRAW"
)

// TransactionStatus represents the lifecycle state of a transaction.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusConfirmed TransactionStatus = "CONFIRMED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
)

// Transaction is an immutable record of one completed balance-changing
// operation. Rows are appended inside the same unit of work as the balance
// mutation they describe and are never updated or deleted.
type Transaction struct {
	ID                  uuid.UUID         `json:"id"`
	SourceWalletID      *uuid.UUID        `json:"source_wallet_id,omitempty"`
	DestinationWalletID *uuid.UUID        `json:"destination_wallet_id,omitempty"`
	Amount              decimal.Decimal   `json:"amount"`
	TransactionType     TransactionType   `json:"transaction_type"`
	Status              TransactionStatus `json:"status"`
	CreatedAt           time.Time         `json:"created_at"`
}

// Validate checks the source/destination presence rules for the type:
// transfers need both sides (and distinct), deposits only a destination,
// withdrawals only a source.
func (t *Transaction) Validate() error {
	if !t.Amount.IsPositive() {
		return errors.New("transaction amount must be positive")
	}
	switch t.TransactionType {
	case TransactionTypeTransfer:
		if t.SourceWalletID == nil || t.DestinationWalletID == nil {
			return errors.New("transfer requires source and destination wallets")
		}
		if *t.SourceWalletID == *t.DestinationWalletID {
			return errors.New("transfer source and destination must differ")
		}
	case TransactionTypeDeposit:
		if t.SourceWalletID != nil || t.DestinationWalletID == nil {
			return errors.New("deposit requires only a destination wallet")
		}
	case TransactionTypeWithdraw:
		if t.SourceWalletID == nil || t.DestinationWalletID != nil {
			return errors.New("withdrawal requires only a source wallet")
		}
	default:
		return errors.New("unknown transaction type")
	}
	return nil
}

// Touches reports whether the transaction debits or credits the wallet.
func (t *Transaction) Touches(walletID uuid.UUID) bool {
	if t.SourceWalletID != nil && *t.SourceWalletID == walletID {
		return true
	}
	return t.DestinationWalletID != nil && *t.DestinationWalletID == walletID
}

// IsTerminal returns true if the transaction is in a final state.
func (t *Transaction) IsTerminal() bool {
	return t.Status == TransactionStatusConfirmed || t.Status == TransactionStatusFailed
}

// WalletTransactionSummary is the latest-transaction-per-wallet projection.
// When two transactions share a creation timestamp the higher transaction id
// wins, so the projection is deterministic.
type WalletTransactionSummary struct {
	WalletID    uuid.UUID   `json:"wallet_id"`
	Transaction Transaction `json:"transaction"`
}
