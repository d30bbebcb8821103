package service

import (
	"context"
	"errors"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// reportingService implements ports.ReportingService. These are thin
// read-only projections over committed ledger state.
type reportingService struct {
	walletRepo ports.WalletRepository
	txRepo     ports.TransactionRepository
}

// NewReportingService creates a new reporting service.
func NewReportingService(walletRepo ports.WalletRepository, txRepo ports.TransactionRepository) ports.ReportingService {
	return &reportingService{
		walletRepo: walletRepo,
		txRepo:     txRepo,
	}
}

// WalletOverview returns every wallet with its address, owner username and
// current balance.
func (s *reportingService) WalletOverview(ctx context.Context) ([]domain.WalletOverview, error) {
	overview, err := s.walletRepo.ListOverview(ctx)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	return overview, nil
}

// LatestTransactions returns the most recent transaction touching each
// wallet, by creation time descending with ties broken by transaction id
// descending.
func (s *reportingService) LatestTransactions(ctx context.Context) ([]domain.WalletTransactionSummary, error) {
	summaries, err := s.txRepo.LatestPerWallet(ctx)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	return summaries, nil
}

// GetBalance returns the current balance of one wallet.
func (s *reportingService) GetBalance(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, error) {
	balance, err := s.walletRepo.GetBalance(ctx, walletID)
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return decimal.Zero, appErr
		}
		return decimal.Zero, apperror.InternalError(err)
	}
	return balance, nil
}
