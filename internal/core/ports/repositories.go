package ports

import (
	"context"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// WalletRepository defines persistence operations for wallets.
// Methods accepting pgx.Tx run inside a unit of work and do not commit
// independently; pessimistic locking is acquired via GetByIDForUpdate.
type WalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	GetBalance(ctx context.Context, id uuid.UUID) (decimal.Decimal, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error)
	// AdjustBalance atomically applies delta (positive or negative) and
	// returns the new balance. It fails with apperror wallet-not-found if the
	// wallet does not exist and insufficient-funds if the result would be
	// negative.
	AdjustBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error)
	// ListOverview is the read-only wallet overview projection.
	ListOverview(ctx context.Context) ([]domain.WalletOverview, error)
}

// TransactionRepository defines the append-only transaction log.
// No update or delete operation is exposed.
type TransactionRepository interface {
	Append(ctx context.Context, tx pgx.Tx, transaction *domain.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	// LatestPerWallet returns, for each wallet touched by at least one
	// transaction, the most recent transaction by creation time; ties are
	// broken by the higher transaction id.
	LatestPerWallet(ctx context.Context) ([]domain.WalletTransactionSummary, error)
}

// AuditRepository defines the append-only audit log. Create runs inside the
// caller's unit of work so a rolled-back mutation leaves no entry behind.
type AuditRepository interface {
	Create(ctx context.Context, tx pgx.Tx, entry *domain.AuditEntry) error
	List(ctx context.Context, limit int) ([]domain.AuditEntry, error)
}

// UserRepository defines persistence for users. Provisioning happens outside
// the ledger core; these operations exist for seeding and the overview join.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// IdempotencyRepository defines persistence for idempotency records (DB
// layer, written in the same unit of work as the operation it caches).
type IdempotencyRepository interface {
	Create(ctx context.Context, tx pgx.Tx, rec *domain.IdempotencyRecord) error
	Get(ctx context.Context, key string) (*domain.IdempotencyRecord, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
