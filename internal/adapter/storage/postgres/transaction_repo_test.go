package postgres

import (
	"context"
	"testing"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTransfer(src, dst uuid.UUID) *domain.Transaction {
	return &domain.Transaction{
		ID:                  uuid.New(),
		SourceWalletID:      &src,
		DestinationWalletID: &dst,
		Amount:              decimal.RequireFromString("150.00"),
		TransactionType:     domain.TransactionTypeTransfer,
		Status:              domain.TransactionStatusConfirmed,
		CreatedAt:           time.Now().UTC().Truncate(time.Microsecond),
	}
}

func transactionColumns() []string {
	return []string{"id", "source_wallet_id", "destination_wallet_id", "amount", "transaction_type", "status", "created_at"}
}

func TestTransactionRepo_Append(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	txn := newTestTransfer(uuid.New(), uuid.New())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO transactions").
		WithArgs(txn.ID, txn.SourceWalletID, txn.DestinationWalletID, txn.Amount,
			txn.TransactionType, txn.Status, txn.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Append(context.Background(), tx, txn)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	txn := newTestTransfer(uuid.New(), uuid.New())

	rows := pgxmock.NewRows(transactionColumns()).AddRow(
		txn.ID, txn.SourceWalletID, txn.DestinationWalletID, txn.Amount,
		txn.TransactionType, txn.Status, txn.CreatedAt,
	)

	mock.ExpectQuery("SELECT .+ FROM transactions WHERE id").
		WithArgs(txn.ID).
		WillReturnRows(rows)

	result, err := repo.GetByID(context.Background(), txn.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, txn.ID, result.ID)
	assert.Equal(t, domain.TransactionTypeTransfer, result.TransactionType)
	assert.True(t, txn.Amount.Equal(result.Amount))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	id := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM transactions WHERE id").
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	result, err := repo.GetByID(context.Background(), id)
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_LatestPerWallet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	w1 := uuid.New()
	w2 := uuid.New()
	txn := newTestTransfer(w1, w2)

	// Both wallets report the same transfer as their most recent activity.
	rows := pgxmock.NewRows(append([]string{"wallet_id"}, transactionColumns()...)).
		AddRow(w1, txn.ID, txn.SourceWalletID, txn.DestinationWalletID, txn.Amount,
			txn.TransactionType, txn.Status, txn.CreatedAt).
		AddRow(w2, txn.ID, txn.SourceWalletID, txn.DestinationWalletID, txn.Amount,
			txn.TransactionType, txn.Status, txn.CreatedAt)

	mock.ExpectQuery("SELECT DISTINCT ON").
		WillReturnRows(rows)

	summaries, err := repo.LatestPerWallet(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, w1, summaries[0].WalletID)
	assert.Equal(t, w2, summaries[1].WalletID)
	assert.Equal(t, txn.ID, summaries[0].Transaction.ID)
	assert.Equal(t, txn.ID, summaries[1].Transaction.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_LatestPerWallet_Empty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)

	mock.ExpectQuery("SELECT DISTINCT ON").
		WillReturnRows(pgxmock.NewRows(append([]string{"wallet_id"}, transactionColumns()...)))

	summaries, err := repo.LatestPerWallet(context.Background())
	require.NoError(t, err)
	assert.Empty(t, summaries)
	assert.NoError(t, mock.ExpectationsWereMet())
}
