package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Wallet represents a user's account holding a non-negative balance.
// Balances are fixed-point decimals (8 fractional digits) and are mutated
// only through the ledger service's atomic operations.
type Wallet struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Address   string          `json:"address"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CanDebit reports whether debiting amount keeps the balance non-negative.
func (w *Wallet) CanDebit(amount decimal.Decimal) bool {
	return w.Balance.GreaterThanOrEqual(amount)
}

// WalletOverview is the read-only projection joining a wallet with its owner.
type WalletOverview struct {
	WalletID      uuid.UUID       `json:"wallet_id"`
	Address       string          `json:"address"`
	OwnerUsername string          `json:"owner_username"`
	Balance       decimal.Decimal `json:"balance"`
}
