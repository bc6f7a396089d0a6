package dto

import "time"

// CreateAuctionRequest cria um leilão em rascunho
type CreateAuctionRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	StartDate   time.Time `json:"start_date"`
	CutoffHours *int      `json:"lot_registration_cutoff_hours,omitempty"` // padrão 2
}

// CreateLotRequest registra um lote; o incremento é derivado do preço inicial
type CreateLotRequest struct {
	ProductID            string `json:"product_id"`
	SellerID             string `json:"seller_id"`
	StartingPrice        int64  `json:"starting_price"`
	IncrementPercent     *int64 `json:"increment_percent,omitempty"`      // padrão 20
	TimerDurationSeconds int    `json:"timer_duration_seconds,omitempty"` // padrão 600
}
