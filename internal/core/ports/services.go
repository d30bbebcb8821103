package ports

import (
	"context"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerService defines the core ledger operations. Each call executes as a
// single atomic unit of work: on any failure every staged effect (balance
// deltas, transaction append, audit entries) is discarded.
type LedgerService interface {
	Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error)
	Deposit(ctx context.Context, req DepositRequest) (*OperationResult, error)
	Withdraw(ctx context.Context, req WithdrawRequest) (*OperationResult, error)
}

// TransferRequest holds validated input for a wallet-to-wallet transfer.
// ReferenceID is optional; when set, a retried request with the same
// reference returns the original result.
type TransferRequest struct {
	FromWalletID uuid.UUID
	ToWalletID   uuid.UUID
	Amount       decimal.Decimal
	ReferenceID  string
}

// DepositRequest holds validated input for crediting a wallet.
type DepositRequest struct {
	WalletID    uuid.UUID
	Amount      decimal.Decimal
	ReferenceID string
}

// WithdrawRequest holds validated input for debiting a wallet.
type WithdrawRequest struct {
	WalletID    uuid.UUID
	Amount      decimal.Decimal
	ReferenceID string
}

// TransferResult carries the new balances of both wallets and the id of the
// recorded transaction.
type TransferResult struct {
	TransactionID uuid.UUID       `json:"transaction_id"`
	FromBalance   decimal.Decimal `json:"from_balance"`
	ToBalance     decimal.Decimal `json:"to_balance"`
}

// OperationResult carries the new balance of the affected wallet and the id
// of the recorded transaction.
type OperationResult struct {
	TransactionID uuid.UUID       `json:"transaction_id"`
	Balance       decimal.Decimal `json:"balance"`
}

// ReportingService defines the read-only projections over ledger state.
type ReportingService interface {
	WalletOverview(ctx context.Context) ([]domain.WalletOverview, error)
	LatestTransactions(ctx context.Context) ([]domain.WalletTransactionSummary, error)
	GetBalance(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, error)
}

// IdempotencyCache is the redis-layer idempotency check (fast path).
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached response JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
