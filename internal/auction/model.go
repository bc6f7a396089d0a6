package auction

import "time"

type AuctionStatus string

const (
	AuctionDraft     AuctionStatus = "draft"
	AuctionScheduled AuctionStatus = "scheduled"
	AuctionActive    AuctionStatus = "active"
	AuctionEnded     AuctionStatus = "ended"
	AuctionCancelled AuctionStatus = "cancelled"
)

// Auction groups lots that are sold one after another.
type Auction struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	StartDate   time.Time     `json:"start_date"`
	EndDate     *time.Time    `json:"end_date,omitempty"`
	Status      AuctionStatus `json:"status"`
	IsEnabled   bool          `json:"is_enabled"`
	CutoffHours int           `json:"lot_registration_cutoff_hours"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// RegistrationCutoff is the last instant a lot may still be registered.
func (a Auction) RegistrationCutoff() time.Time {
	return a.StartDate.Add(-time.Duration(a.CutoffHours) * time.Hour)
}

// CanRegisterLots reports whether a new lot may join the auction at now.
func (a Auction) CanRegisterLots(now time.Time) error {
	if a.Status == AuctionActive || a.Status == AuctionEnded {
		return ErrAuctionClosed
	}
	if now.After(a.RegistrationCutoff()) {
		return ErrRegistrationClosed
	}
	return nil
}

// CanStart reports whether the lot sequence may be kicked off.
func (a Auction) CanStart() error {
	switch a.Status {
	case AuctionActive, AuctionEnded, AuctionCancelled:
		return ErrAuctionNotStartable
	}
	return nil
}

type LotStatus string

const (
	LotPending   LotStatus = "pending"
	LotActive    LotStatus = "active"
	LotCompleted LotStatus = "completed"
	LotFailed    LotStatus = "failed"
	LotCancelled LotStatus = "cancelled"
)

// Lot is one item put up for bid. CurrentBid is zero and CurrentWinnerID is
// empty until a bid is accepted.
type Lot struct {
	ID                   string     `json:"id"`
	AuctionID            string     `json:"auction_id"`
	ProductID            string     `json:"product_id"`
	SellerID             string     `json:"seller_id"`
	Position             int        `json:"position"`
	StartingPrice        int64      `json:"starting_price"`
	BidIncrement         int64      `json:"bid_increment"`
	CurrentBid           int64      `json:"current_bid,omitempty"`
	CurrentWinnerID      string     `json:"current_winner_id,omitempty"`
	Status               LotStatus  `json:"status"`
	TimerDurationSeconds int        `json:"timer_duration_seconds"`
	TimerExpiresAt       *time.Time `json:"timer_expires_at,omitempty"`
	StartedAt            *time.Time `json:"started_at,omitempty"`
	EndedAt              *time.Time `json:"ended_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

func (l Lot) HasWinner() bool { return l.CurrentWinnerID != "" }

// MinimumBid is the smallest amount the next bid must reach.
func (l Lot) MinimumBid() int64 {
	base := l.StartingPrice
	if l.CurrentBid > 0 {
		base = l.CurrentBid
	}
	return base + l.BidIncrement
}

func (l Lot) Duration() time.Duration {
	return time.Duration(l.TimerDurationSeconds) * time.Second
}

// Expired is false for lots without a running countdown.
func (l Lot) Expired(now time.Time) bool {
	return l.TimerExpiresAt != nil && !l.TimerExpiresAt.After(now)
}

// CanCancel reports whether an operator may cancel the lot.
func (l Lot) CanCancel() error {
	switch l.Status {
	case LotActive, LotCompleted:
		return ErrLotNotCancellable
	}
	return nil
}

type BidStatus string

const (
	BidPending  BidStatus = "pending"
	BidAccepted BidStatus = "accepted"
	BidRejected BidStatus = "rejected"
	BidOutbid   BidStatus = "outbid"
)

// Bid is the audit record of one attempt, accepted or not.
type Bid struct {
	ID              string     `json:"id"`
	LotID           string     `json:"lot_id"`
	CustomerID      string     `json:"customer_id"`
	Amount          int64      `json:"amount"`
	Status          BidStatus  `json:"status"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	CorrelationID   string     `json:"correlation_id"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}
