package auction

import (
	"errors"
	"fmt"
)

var (
	ErrAuctionNotFound = errors.New("auction not found")
	ErrLotNotFound     = errors.New("lot not found")
	ErrBidNotFound     = errors.New("bid not found")

	ErrInvalidBid          = errors.New("invalid bid")
	ErrLotNotActive        = errors.New("lot is not active")
	ErrBidTooLow           = errors.New("bid below minimum")
	ErrAlreadyWinner       = errors.New("customer already holds the highest bid")
	ErrInsufficientBalance = errors.New("insufficient wallet balance")
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrLotExpired          = errors.New("lot time has expired")

	ErrAuctionClosed       = errors.New("cannot add lot to an active or ended auction")
	ErrRegistrationClosed  = errors.New("lot registration cutoff has passed")
	ErrAuctionNotStartable = errors.New("auction cannot be started")
	ErrLotNotCancellable   = errors.New("active or completed lots cannot be cancelled")
)

// BidTooLowError carries the minimum the bid had to reach.
type BidTooLowError struct {
	Minimum int64
}

func (e *BidTooLowError) Error() string { return fmt.Sprintf("bid must be at least %d", e.Minimum) }

func (e *BidTooLowError) Is(target error) bool { return target == ErrBidTooLow }

// RejectionReason turns a bid rule violation into the customer facing text.
// Anything that is not a rule violation collapses into a generic reason.
func RejectionReason(err error) string {
	var low *BidTooLowError
	switch {
	case errors.As(err, &low):
		return fmt.Sprintf("Bid must be at least %d", low.Minimum)
	case errors.Is(err, ErrInvalidBid):
		return "Invalid bid"
	case errors.Is(err, ErrLotNotFound):
		return "Lot not found or not active"
	case errors.Is(err, ErrLotNotActive):
		return "Lot is not active"
	case errors.Is(err, ErrAlreadyWinner):
		return "You are already the highest bidder"
	case errors.Is(err, ErrWalletNotFound):
		return "Wallet not found"
	case errors.Is(err, ErrInsufficientBalance):
		return "Insufficient wallet balance"
	case errors.Is(err, ErrLotExpired):
		return "Lot time has expired"
	default:
		return "Processing error"
	}
}

// IsRuleViolation reports whether err is an expected bid rejection rather
// than an infrastructure fault.
func IsRuleViolation(err error) bool {
	for _, target := range []error{
		ErrInvalidBid, ErrLotNotFound, ErrLotNotActive, ErrBidTooLow,
		ErrAlreadyWinner, ErrWalletNotFound, ErrInsufficientBalance, ErrLotExpired,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
