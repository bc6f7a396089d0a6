package auction

import "fmt"

// DefaultReservationPercent of a bid is blocked on the bidder's wallet.
const DefaultReservationPercent = 20

// DefaultIncrementPercent of the starting price becomes the lot's fixed increment.
const DefaultIncrementPercent = 20

// Policy holds the bidding rules shared by the submitter and the decider.
type Policy struct {
	ReservationPercent int64
	// AllowSelfRaise lets the current winner outbid themselves.
	AllowSelfRaise bool
}

func DefaultPolicy() Policy {
	return Policy{ReservationPercent: DefaultReservationPercent}
}

// Reservation is the amount blocked for a bid of amount.
func (p Policy) Reservation(amount int64) int64 {
	return PercentOf(amount, p.ReservationPercent)
}

// CheckBid validates a bid against the lot state alone.
func (p Policy) CheckBid(l Lot, customerID string, amount int64) error {
	if customerID == "" || amount <= 0 {
		return ErrInvalidBid
	}
	if l.Status != LotActive {
		return ErrLotNotActive
	}
	if min := l.MinimumBid(); amount < min {
		return &BidTooLowError{Minimum: min}
	}
	if l.CurrentWinnerID == customerID && !p.AllowSelfRaise {
		return ErrAlreadyWinner
	}
	return nil
}

// PercentOf rounds up so a reservation is never smaller than the policy asks.
func PercentOf(amount, percent int64) int64 {
	if amount <= 0 || percent <= 0 {
		return 0
	}
	return (amount*percent + 99) / 100
}

// IncrementFor derives the fixed increment of a lot from its starting price.
func IncrementFor(startingPrice, percent int64) int64 {
	inc := PercentOf(startingPrice, percent)
	if inc < 1 {
		return 1
	}
	return inc
}

// ReservationRef is the wallet reference of the block taken for an accepted bid.
func ReservationRef(lotID string, amount int64) string {
	return fmt.Sprintf("lot:%s:bid:%d", lotID, amount)
}
