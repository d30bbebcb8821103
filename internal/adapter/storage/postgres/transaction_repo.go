package postgres

import (
	"context"
	"errors"
	"fmt"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TransactionRepo implements ports.TransactionRepository. The transactions
// table is append-only: no update or delete statement exists in this file,
// and none should be added.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Append inserts a transaction within a database transaction, as part of the
// same unit of work as the balance adjustments that caused it.
func (r *TransactionRepo) Append(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `INSERT INTO transactions (id, source_wallet_id, destination_wallet_id, amount,
		transaction_type, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.SourceWalletID, t.DestinationWalletID, t.Amount,
		t.TransactionType, t.Status, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByID fetches a transaction by UUID.
func (r *TransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT id, source_wallet_id, destination_wallet_id, amount, transaction_type, status, created_at
		FROM transactions WHERE id = $1`

	t := &domain.Transaction{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.SourceWalletID, &t.DestinationWalletID, &t.Amount,
		&t.TransactionType, &t.Status, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transaction by id: %w", err)
	}
	return t, nil
}

// LatestPerWallet returns the most recent transaction touching each wallet.
// Recency is by creation time; equal timestamps are broken by the higher
// transaction id so the projection stays deterministic. The supporting
// indexes on (source_wallet_id, created_at) and
// (destination_wallet_id, created_at) make this a top-1 lookup per wallet.
func (r *TransactionRepo) LatestPerWallet(ctx context.Context) ([]domain.WalletTransactionSummary, error) {
	query := `SELECT DISTINCT ON (w.id) w.id,
		t.id, t.source_wallet_id, t.destination_wallet_id, t.amount, t.transaction_type, t.status, t.created_at
		FROM wallets w
		JOIN transactions t ON t.source_wallet_id = w.id OR t.destination_wallet_id = w.id
		ORDER BY w.id, t.created_at DESC, t.id DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("latest transaction per wallet: %w", err)
	}
	defer rows.Close()

	var summaries []domain.WalletTransactionSummary
	for rows.Next() {
		var s domain.WalletTransactionSummary
		t := &s.Transaction
		err := rows.Scan(
			&s.WalletID,
			&t.ID, &t.SourceWalletID, &t.DestinationWalletID, &t.Amount,
			&t.TransactionType, &t.Status, &t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan latest transaction row: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate latest transaction rows: %w", err)
	}
	return summaries, nil
}
