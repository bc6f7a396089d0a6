package events

// BidPlaced is published on "auction.bids" once a bid passes admission.
// Key is the lot id so every bid for a lot lands on the same partition.
type BidPlaced struct {
	LotID         string `json:"lot_id"`
	CustomerID    string `json:"customer_id"`
	Amount        int64  `json:"amount"`
	CorrelationID string `json:"correlation_id"`
	TsUnixMs      int64  `json:"timestamp"`
}
