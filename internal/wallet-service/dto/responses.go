package dto

type WalletResponse struct {
	CustomerID     string `json:"customer_id"`
	WalletID       string `json:"wallet_id"`
	Balance        int64  `json:"balance"`
	BlockedBalance int64  `json:"blocked_balance"`
	Available      int64  `json:"available"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
