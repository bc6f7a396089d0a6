package kafka

import (
	"context"

	"github.com/radieske/auction-bidding-core/pkg/contracts/events"
)

// UpdatePublisher writes update events keyed by lot id.
type UpdatePublisher struct {
	W MessageWriter
}

func NewUpdatePublisher(w MessageWriter) *UpdatePublisher { return &UpdatePublisher{W: w} }

func (p *UpdatePublisher) Publish(ctx context.Context, u events.AuctionUpdate) error {
	return WriteJSON(ctx, p.W, u.LotID, u)
}

// BidPublisher writes admitted bids keyed by lot id.
type BidPublisher struct {
	W MessageWriter
}

func NewBidPublisher(w MessageWriter) *BidPublisher { return &BidPublisher{W: w} }

func (p *BidPublisher) PublishBid(ctx context.Context, b events.BidPlaced) error {
	return WriteJSON(ctx, p.W, b.LotID, b)
}
