package topics

const (
	// Bids admitted by the submitter, keyed by lot id
	AuctionBids = "auction.bids"

	// Decisions, countdowns and lot lifecycle, keyed by lot id
	AuctionUpdates = "auction.updates"
)
