package handler

import (
	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerHandler handles the balance-changing endpoints.
type LedgerHandler struct {
	ledgerSvc ports.LedgerService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledgerSvc ports.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerSvc: ledgerSvc}
}

// Transfer handles POST /api/v1/transfers.
func (h *LedgerHandler) Transfer(c *gin.Context) {
	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	fromID, err := uuid.Parse(req.FromWalletID)
	if err != nil {
		response.Error(c, apperror.Validation("from_wallet_id must be a UUID"))
		return
	}
	toID, err := uuid.Parse(req.ToWalletID)
	if err != nil {
		response.Error(c, apperror.Validation("to_wallet_id must be a UUID"))
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		response.Error(c, apperror.Validation("amount must be a decimal number"))
		return
	}

	result, err := h.ledgerSvc.Transfer(c.Request.Context(), ports.TransferRequest{
		FromWalletID: fromID,
		ToWalletID:   toID,
		Amount:       amount,
		ReferenceID:  req.ReferenceID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.TransferResponse{
		TransactionID: result.TransactionID.String(),
		FromBalance:   result.FromBalance.String(),
		ToBalance:     result.ToBalance.String(),
	})
}

// Deposit handles POST /api/v1/wallets/:id/deposit.
func (h *LedgerHandler) Deposit(c *gin.Context) {
	walletID, amount, refID, ok := h.bindAmountRequest(c)
	if !ok {
		return
	}

	result, err := h.ledgerSvc.Deposit(c.Request.Context(), ports.DepositRequest{
		WalletID:    walletID,
		Amount:      amount,
		ReferenceID: refID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.OperationResponse{
		TransactionID: result.TransactionID.String(),
		Balance:       result.Balance.String(),
	})
}

// Withdraw handles POST /api/v1/wallets/:id/withdraw.
func (h *LedgerHandler) Withdraw(c *gin.Context) {
	walletID, amount, refID, ok := h.bindAmountRequest(c)
	if !ok {
		return
	}

	result, err := h.ledgerSvc.Withdraw(c.Request.Context(), ports.WithdrawRequest{
		WalletID:    walletID,
		Amount:      amount,
		ReferenceID: refID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.OperationResponse{
		TransactionID: result.TransactionID.String(),
		Balance:       result.Balance.String(),
	})
}

// bindAmountRequest parses the wallet id path parameter and the amount body
// shared by deposit and withdrawal. It writes the error response itself and
// returns ok=false when binding fails.
func (h *LedgerHandler) bindAmountRequest(c *gin.Context) (uuid.UUID, decimal.Decimal, string, bool) {
	walletID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("wallet id must be a UUID"))
		return uuid.Nil, decimal.Zero, "", false
	}

	var req dto.AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return uuid.Nil, decimal.Zero, "", false
	}
	dto.SanitizeStruct(&req)

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		response.Error(c, apperror.Validation("amount must be a decimal number"))
		return uuid.Nil, decimal.Zero, "", false
	}
	return walletID, amount, req.ReferenceID, true
}
