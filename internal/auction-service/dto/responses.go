package dto

import "github.com/radieske/auction-bidding-core/internal/auction"

type ErrorResponse struct {
	Error string `json:"error"`
}

// BidsPage é a listagem paginada de lances aceitos, do mais novo ao mais antigo
type BidsPage struct {
	Bids   []auction.Bid `json:"bids"`
	Offset int           `json:"offset"`
	Limit  int           `json:"limit"`
}
