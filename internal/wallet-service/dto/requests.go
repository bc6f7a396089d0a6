package dto

type DepositRequest struct {
	CustomerID string `json:"customer_id"`
	Amount     int64  `json:"amount"`
	Reference  string `json:"reference,omitempty"` // opcional, apenas rastreio no ledger
}

// ReservationRequest serve para block, unblock e debit
type ReservationRequest struct {
	CustomerID string `json:"customer_id"`
	Amount     int64  `json:"amount"`
	Reference  string `json:"reference"` // ex: lot:<id>:bid:<amount>
}
