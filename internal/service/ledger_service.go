package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const idempotencyTTL = 24 * time.Hour

// LedgerServiceImpl implements ports.LedgerService. Every operation runs as
// one atomic unit of work: balance adjustments, the transaction append, the
// audit entries, and the idempotency record commit together or not at all.
type LedgerServiceImpl struct {
	walletRepo ports.WalletRepository
	txRepo     ports.TransactionRepository
	auditRepo  ports.AuditRepository
	idempRepo  ports.IdempotencyRepository
	idempCache ports.IdempotencyCache
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl.
func NewLedgerService(
	walletRepo ports.WalletRepository,
	txRepo ports.TransactionRepository,
	auditRepo ports.AuditRepository,
	idempRepo ports.IdempotencyRepository,
	idempCache ports.IdempotencyCache,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		walletRepo: walletRepo,
		txRepo:     txRepo,
		auditRepo:  auditRepo,
		idempRepo:  idempRepo,
		idempCache: idempCache,
		transactor: transactor,
		log:        log,
	}
}

// Transfer moves amount from one wallet to another atomically.
func (s *LedgerServiceImpl) Transfer(ctx context.Context, req ports.TransferRequest) (*ports.TransferResult, error) {
	if !req.Amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}
	if req.FromWalletID == req.ToWalletID {
		return nil, apperror.ErrSameWalletTransfer()
	}

	idempKey := ""
	if req.ReferenceID != "" {
		idempKey = domain.BuildIdempotencyKey(req.FromWalletID, domain.TransactionTypeTransfer, req.ReferenceID)
		if cached, err := s.checkIdempotency(ctx, idempKey); err != nil {
			return nil, err
		} else if cached != nil {
			result := &ports.TransferResult{}
			if err := json.Unmarshal(cached, result); err != nil {
				return nil, apperror.InternalError(fmt.Errorf("unmarshal cached result: %w", err))
			}
			return result, nil
		}
	}

	// Begin unit of work
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	// Lock both wallets in ascending id order. Fixed ordering means two
	// transfers contending on the same pair in opposite directions never
	// deadlock, while disjoint pairs proceed fully in parallel.
	from, to, err := s.lockWalletPair(ctx, dbTx, req.FromWalletID, req.ToWalletID)
	if err != nil {
		return nil, err
	}

	if !from.CanDebit(req.Amount) {
		return nil, apperror.ErrInsufficientFunds()
	}

	now := time.Now().UTC()

	fromBalance, err := s.applyDelta(ctx, dbTx, from, req.Amount.Neg(), now)
	if err != nil {
		return nil, err
	}
	toBalance, err := s.applyDelta(ctx, dbTx, to, req.Amount, now)
	if err != nil {
		return nil, err
	}

	txn := &domain.Transaction{
		ID:                  uuid.New(),
		SourceWalletID:      &from.ID,
		DestinationWalletID: &to.ID,
		Amount:              req.Amount,
		TransactionType:     domain.TransactionTypeTransfer,
		Status:              domain.TransactionStatusConfirmed,
		CreatedAt:           now,
	}
	if err := s.recordTransaction(ctx, dbTx, txn, now); err != nil {
		return nil, err
	}

	result := &ports.TransferResult{
		TransactionID: txn.ID,
		FromBalance:   fromBalance,
		ToBalance:     toBalance,
	}

	respJSON, err := s.commitWithIdempotency(ctx, dbTx, idempKey, txn.ID, result, now)
	if err != nil {
		return nil, err
	}
	s.cacheResult(ctx, idempKey, respJSON)

	s.log.Info().
		Str("tx_id", txn.ID.String()).
		Str("from_wallet", from.ID.String()).
		Str("to_wallet", to.ID.String()).
		Str("amount", req.Amount.String()).
		Msg("transfer committed")

	return result, nil
}

// Deposit credits a wallet atomically.
func (s *LedgerServiceImpl) Deposit(ctx context.Context, req ports.DepositRequest) (*ports.OperationResult, error) {
	return s.singleWalletOperation(ctx, req.WalletID, req.Amount, req.ReferenceID, domain.TransactionTypeDeposit)
}

// Withdraw debits a wallet atomically.
func (s *LedgerServiceImpl) Withdraw(ctx context.Context, req ports.WithdrawRequest) (*ports.OperationResult, error) {
	return s.singleWalletOperation(ctx, req.WalletID, req.Amount, req.ReferenceID, domain.TransactionTypeWithdraw)
}

// singleWalletOperation implements deposit and withdrawal, which differ only
// in the sign of the delta and which side of the transaction names the wallet.
func (s *LedgerServiceImpl) singleWalletOperation(
	ctx context.Context,
	walletID uuid.UUID,
	amount decimal.Decimal,
	referenceID string,
	opType domain.TransactionType,
) (*ports.OperationResult, error) {
	if !amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}

	idempKey := ""
	if referenceID != "" {
		idempKey = domain.BuildIdempotencyKey(walletID, opType, referenceID)
		if cached, err := s.checkIdempotency(ctx, idempKey); err != nil {
			return nil, err
		} else if cached != nil {
			result := &ports.OperationResult{}
			if err := json.Unmarshal(cached, result); err != nil {
				return nil, apperror.InternalError(fmt.Errorf("unmarshal cached result: %w", err))
			}
			return result, nil
		}
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.walletRepo.GetByIDForUpdate(ctx, dbTx, walletID)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound("wallet")
	}

	delta := amount
	if opType == domain.TransactionTypeWithdraw {
		if !wallet.CanDebit(amount) {
			return nil, apperror.ErrInsufficientFunds()
		}
		delta = amount.Neg()
	}

	now := time.Now().UTC()

	balance, err := s.applyDelta(ctx, dbTx, wallet, delta, now)
	if err != nil {
		return nil, err
	}

	txn := &domain.Transaction{
		ID:              uuid.New(),
		Amount:          amount,
		TransactionType: opType,
		Status:          domain.TransactionStatusConfirmed,
		CreatedAt:       now,
	}
	if opType == domain.TransactionTypeDeposit {
		txn.DestinationWalletID = &wallet.ID
	} else {
		txn.SourceWalletID = &wallet.ID
	}
	if err := s.recordTransaction(ctx, dbTx, txn, now); err != nil {
		return nil, err
	}

	result := &ports.OperationResult{
		TransactionID: txn.ID,
		Balance:       balance,
	}

	respJSON, err := s.commitWithIdempotency(ctx, dbTx, idempKey, txn.ID, result, now)
	if err != nil {
		return nil, err
	}
	s.cacheResult(ctx, idempKey, respJSON)

	s.log.Info().
		Str("tx_id", txn.ID.String()).
		Str("wallet", wallet.ID.String()).
		Str("amount", amount.String()).
		Str("type", string(opType)).
		Msg("operation committed")

	return result, nil
}

// lockWalletPair acquires FOR UPDATE locks on both wallets in ascending id
// byte order, never in caller-supplied order, and returns them as
// (from, to). Missing wallets are reported naming the side.
func (s *LedgerServiceImpl) lockWalletPair(ctx context.Context, dbTx pgx.Tx, fromID, toID uuid.UUID) (*domain.Wallet, *domain.Wallet, error) {
	firstID, secondID := fromID, toID
	if bytes.Compare(toID[:], fromID[:]) < 0 {
		firstID, secondID = toID, fromID
	}

	locked := make(map[uuid.UUID]*domain.Wallet, 2)
	for _, id := range []uuid.UUID{firstID, secondID} {
		w, err := s.walletRepo.GetByIDForUpdate(ctx, dbTx, id)
		if err != nil {
			return nil, nil, apperror.ErrStorageUnavailable(fmt.Errorf("lock wallet: %w", err))
		}
		if w == nil {
			if id == fromID {
				return nil, nil, apperror.ErrWalletNotFound("source wallet")
			}
			return nil, nil, apperror.ErrWalletNotFound("destination wallet")
		}
		locked[id] = w
	}
	return locked[fromID], locked[toID], nil
}

// applyDelta adjusts one wallet's balance and writes the matching audit entry
// inside the same unit of work.
func (s *LedgerServiceImpl) applyDelta(ctx context.Context, dbTx pgx.Tx, w *domain.Wallet, delta decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	newBalance, err := s.walletRepo.AdjustBalance(ctx, dbTx, w.ID, delta)
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return decimal.Zero, appErr
		}
		return decimal.Zero, apperror.ErrStorageUnavailable(fmt.Errorf("adjust balance: %w", err))
	}

	entry := domain.NewWalletUpdateEntry(w.ID, w.Balance, newBalance, now)
	if err := s.auditRepo.Create(ctx, dbTx, entry); err != nil {
		return decimal.Zero, apperror.ErrStorageUnavailable(fmt.Errorf("audit wallet update: %w", err))
	}
	return newBalance, nil
}

// recordTransaction appends the transaction and its audit entry inside the
// same unit of work.
func (s *LedgerServiceImpl) recordTransaction(ctx context.Context, dbTx pgx.Tx, txn *domain.Transaction, now time.Time) error {
	if err := txn.Validate(); err != nil {
		return apperror.InternalError(fmt.Errorf("invalid transaction: %w", err))
	}
	if err := s.txRepo.Append(ctx, dbTx, txn); err != nil {
		return apperror.ErrStorageUnavailable(fmt.Errorf("append transaction: %w", err))
	}
	entry := domain.NewTransactionEntry(txn, now)
	if err := s.auditRepo.Create(ctx, dbTx, entry); err != nil {
		return apperror.ErrStorageUnavailable(fmt.Errorf("audit transaction: %w", err))
	}
	return nil
}

// checkIdempotency looks up a prior result for the key: redis first (best
// effort), then the database records.
func (s *LedgerServiceImpl) checkIdempotency(ctx context.Context, key string) ([]byte, error) {
	cached, err := s.idempCache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("redis idempotency check failed, falling through to DB")
	}
	if cached != nil {
		return cached, nil
	}

	rec, err := s.idempRepo.Get(ctx, key)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("db idempotency check: %w", err))
	}
	if rec != nil {
		return rec.ResponseJSON, nil
	}
	return nil, nil
}

// commitWithIdempotency stages the idempotency record (when a key is set)
// and commits the unit of work, returning the serialized result.
func (s *LedgerServiceImpl) commitWithIdempotency(ctx context.Context, dbTx pgx.Tx, key string, txnID uuid.UUID, result any, now time.Time) ([]byte, error) {
	respJSON, err := json.Marshal(result)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("marshal result: %w", err))
	}

	if key != "" {
		rec := &domain.IdempotencyRecord{
			Key:           key,
			TransactionID: txnID,
			ResponseJSON:  respJSON,
			CreatedAt:     now,
		}
		if err := s.idempRepo.Create(ctx, dbTx, rec); err != nil {
			return nil, apperror.ErrStorageUnavailable(fmt.Errorf("save idempotency record: %w", err))
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("commit tx: %w", err))
	}
	return respJSON, nil
}

// cacheResult stores the committed result in redis (best-effort).
func (s *LedgerServiceImpl) cacheResult(ctx context.Context, key string, respJSON []byte) {
	if key == "" {
		return
	}
	if err := s.idempCache.Set(ctx, key, respJSON, idempotencyTTL); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to cache idempotency result in redis")
	}
}
