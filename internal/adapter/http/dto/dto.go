package dto

// TransferRequest is the request body for a wallet-to-wallet transfer.
// Amounts travel as decimal strings so no precision is lost in JSON.
type TransferRequest struct {
	FromWalletID string `json:"from_wallet_id" binding:"required,uuid"`
	ToWalletID   string `json:"to_wallet_id" binding:"required,uuid"`
	Amount       string `json:"amount" binding:"required"`
	ReferenceID  string `json:"reference_id,omitempty" binding:"omitempty,safe_id,max=100"`
}

// AmountRequest is the request body for deposits and withdrawals; the wallet
// is addressed by the URL path.
type AmountRequest struct {
	Amount      string `json:"amount" binding:"required"`
	ReferenceID string `json:"reference_id,omitempty" binding:"omitempty,safe_id,max=100"`
}

// TransferResponse is the response body for a completed transfer.
type TransferResponse struct {
	TransactionID string `json:"transaction_id"`
	FromBalance   string `json:"from_balance"`
	ToBalance     string `json:"to_balance"`
}

// OperationResponse is the response body for a completed deposit/withdrawal.
type OperationResponse struct {
	TransactionID string `json:"transaction_id"`
	Balance       string `json:"balance"`
}

// BalanceResponse is the response for a balance query.
type BalanceResponse struct {
	WalletID string `json:"wallet_id"`
	Balance  string `json:"balance"`
}

// WalletOverviewResponse is one row of the wallet overview projection.
type WalletOverviewResponse struct {
	WalletID      string `json:"wallet_id"`
	Address       string `json:"address"`
	OwnerUsername string `json:"owner_username"`
	Balance       string `json:"balance"`
}

// LatestTransactionResponse is one row of the latest-transaction projection.
type LatestTransactionResponse struct {
	WalletID            string  `json:"wallet_id"`
	TransactionID       string  `json:"transaction_id"`
	SourceWalletID      *string `json:"source_wallet_id,omitempty"`
	DestinationWalletID *string `json:"destination_wallet_id,omitempty"`
	Amount              string  `json:"amount"`
	TransactionType     string  `json:"transaction_type"`
	Status              string  `json:"status"`
	CreatedAt           string  `json:"created_at"`
}
