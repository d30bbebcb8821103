package postgres

import (
	"context"
	"errors"
	"fmt"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// Create inserts a new wallet into the database.
func (r *WalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	query := `INSERT INTO wallets (id, user_id, address, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query,
		w.ID, w.UserID, w.Address, w.Balance, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// GetByID fetches a wallet by its UUID (without locking).
func (r *WalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT id, user_id, address, balance, created_at, updated_at
		FROM wallets WHERE id = $1`

	w := &domain.Wallet{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&w.ID, &w.UserID, &w.Address, &w.Balance, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet by id: %w", err)
	}
	return w, nil
}

// GetBalance returns the current balance of a wallet.
func (r *WalletRepo) GetBalance(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	query := `SELECT balance FROM wallets WHERE id = $1`

	var balance decimal.Decimal
	err := r.pool.QueryRow(ctx, query, id).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, apperror.ErrWalletNotFound("wallet")
		}
		return decimal.Zero, fmt.Errorf("get wallet balance: %w", err)
	}
	return balance, nil
}

// GetByIDForUpdate fetches a wallet by ID with pessimistic locking.
// This MUST be called within a transaction.
func (r *WalletRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT id, user_id, address, balance, created_at, updated_at
		FROM wallets WHERE id = $1 FOR UPDATE`

	w := &domain.Wallet{}
	err := tx.QueryRow(ctx, query, id).Scan(
		&w.ID, &w.UserID, &w.Address, &w.Balance, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet for update: %w", err)
	}
	return w, nil
}

// AdjustBalance applies delta to a wallet's balance within a transaction and
// returns the new balance. The guard clause keeps the balance non-negative at
// the database level: the update matches no row when the result would drop
// below zero.
func (r *WalletRepo) AdjustBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	query := `UPDATE wallets SET balance = balance + $1, updated_at = NOW()
		WHERE id = $2 AND balance + $1 >= 0 RETURNING balance`

	var balance decimal.Decimal
	err := tx.QueryRow(ctx, query, delta, id).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("adjust wallet balance: %w", err)
	}

	// No row matched: either the wallet is missing or the guard rejected a
	// negative result.
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM wallets WHERE id = $1)`, id).Scan(&exists); err != nil {
		return decimal.Zero, fmt.Errorf("check wallet exists: %w", err)
	}
	if !exists {
		return decimal.Zero, apperror.ErrWalletNotFound("wallet")
	}
	return decimal.Zero, apperror.ErrInsufficientFunds()
}

// ListOverview returns the wallet overview projection (wallet, address,
// owner username, balance).
func (r *WalletRepo) ListOverview(ctx context.Context) ([]domain.WalletOverview, error) {
	query := `SELECT w.id, w.address, u.username, w.balance
		FROM wallets w
		JOIN users u ON u.id = w.user_id
		ORDER BY w.created_at`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list wallet overview: %w", err)
	}
	defer rows.Close()

	var overview []domain.WalletOverview
	for rows.Next() {
		var o domain.WalletOverview
		if err := rows.Scan(&o.WalletID, &o.Address, &o.OwnerUsername, &o.Balance); err != nil {
			return nil, fmt.Errorf("scan wallet overview row: %w", err)
		}
		overview = append(overview, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wallet overview rows: %w", err)
	}
	return overview, nil
}
