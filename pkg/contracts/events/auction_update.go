package events

import (
	"encoding/json"
	"time"
)

// UpdateType identifies an event on "auction.updates".
type UpdateType string

const (
	BidAccepted UpdateType = "bid_accepted"
	BidRejected UpdateType = "bid_rejected"
	LotStarted  UpdateType = "lot_started"
	LotEnded    UpdateType = "lot_ended"
	TimerReset  UpdateType = "timer_reset"
	TimerTick   UpdateType = "timer_tick"
)

// Reasons carried by LotEndedData
const (
	ReasonTimeout       = "timeout"
	ReasonNoBids        = "no_bids"
	ReasonForcedTimeout = "forced_timeout"
)

// AuctionUpdate is the envelope of every update event. Data holds one of the
// *Data payloads below, selected by EventType.
type AuctionUpdate struct {
	EventType     UpdateType      `json:"event_type"`
	LotID         string          `json:"lot_id"`
	AuctionID     string          `json:"auction_id"`
	Data          json.RawMessage `json:"data"`
	TsUnixMs      int64           `json:"timestamp"`
	CorrelationID string          `json:"correlation_id,omitempty"`
}

// NewUpdate encodes data into an envelope stamped with the current time.
func NewUpdate(t UpdateType, lotID, auctionID string, data any) (AuctionUpdate, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return AuctionUpdate{}, err
	}
	return AuctionUpdate{
		EventType: t,
		LotID:     lotID,
		AuctionID: auctionID,
		Data:      raw,
		TsUnixMs:  time.Now().UnixMilli(),
	}, nil
}

// Decode unmarshals Data into dst.
func (u AuctionUpdate) Decode(dst any) error {
	return json.Unmarshal(u.Data, dst)
}

type BidAcceptedData struct {
	CurrentBid       int64  `json:"current_bid"`
	CurrentWinnerID  string `json:"current_winner_id"`
	PreviousWinnerID string `json:"previous_winner_id,omitempty"`
}

// BidRejectedData is addressed to CustomerID only, never to the room.
type BidRejectedData struct {
	CustomerID string `json:"customer_id"`
	BidAmount  int64  `json:"bid_amount"`
	Reason     string `json:"reason"`
}

type LotStartedData struct {
	ProductID            string    `json:"product_id"`
	Position             int       `json:"position"`
	StartingPrice        int64     `json:"starting_price"`
	BidIncrement         int64     `json:"bid_increment"`
	TimerDurationSeconds int       `json:"timer_duration_seconds"`
	TimerExpiresAt       time.Time `json:"timer_expires_at"`
}

type LotEndedData struct {
	WinnerID string `json:"winner_id,omitempty"`
	FinalBid int64  `json:"final_bid,omitempty"`
	Reason   string `json:"reason"`
}

type TimerTickData struct {
	RemainingSeconds int64     `json:"remaining_seconds"`
	ExpiresAt        time.Time `json:"expires_at"`
}

type TimerResetData struct {
	ExpiresAt       time.Time `json:"expires_at"`
	DurationSeconds int       `json:"duration_seconds"`
}
