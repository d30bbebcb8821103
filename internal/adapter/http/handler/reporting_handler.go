package handler

import (
	"time"

	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReportingHandler handles the read-only projection endpoints.
type ReportingHandler struct {
	reportingSvc ports.ReportingService
}

// NewReportingHandler creates a new ReportingHandler.
func NewReportingHandler(reportingSvc ports.ReportingService) *ReportingHandler {
	return &ReportingHandler{reportingSvc: reportingSvc}
}

// Overview handles GET /api/v1/wallets.
func (h *ReportingHandler) Overview(c *gin.Context) {
	overview, err := h.reportingSvc.WalletOverview(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	rows := make([]dto.WalletOverviewResponse, 0, len(overview))
	for _, o := range overview {
		rows = append(rows, dto.WalletOverviewResponse{
			WalletID:      o.WalletID.String(),
			Address:       o.Address,
			OwnerUsername: o.OwnerUsername,
			Balance:       o.Balance.String(),
		})
	}
	response.OK(c, rows)
}

// LatestTransactions handles GET /api/v1/wallets/latest-transactions.
func (h *ReportingHandler) LatestTransactions(c *gin.Context) {
	summaries, err := h.reportingSvc.LatestTransactions(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	rows := make([]dto.LatestTransactionResponse, 0, len(summaries))
	for _, s := range summaries {
		t := s.Transaction
		row := dto.LatestTransactionResponse{
			WalletID:        s.WalletID.String(),
			TransactionID:   t.ID.String(),
			Amount:          t.Amount.String(),
			TransactionType: string(t.TransactionType),
			Status:          string(t.Status),
			CreatedAt:       t.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
		if t.SourceWalletID != nil {
			src := t.SourceWalletID.String()
			row.SourceWalletID = &src
		}
		if t.DestinationWalletID != nil {
			dst := t.DestinationWalletID.String()
			row.DestinationWalletID = &dst
		}
		rows = append(rows, row)
	}
	response.OK(c, rows)
}

// GetBalance handles GET /api/v1/wallets/:id/balance.
func (h *ReportingHandler) GetBalance(c *gin.Context) {
	walletID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("wallet id must be a UUID"))
		return
	}

	balance, err := h.reportingSvc.GetBalance(c.Request.Context(), walletID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BalanceResponse{
		WalletID: walletID.String(),
		Balance:  balance.String(),
	})
}
