package timer

import (
	"context"
	"time"

	"github.com/radieske/auction-bidding-core/internal/auction"
	"github.com/radieske/auction-bidding-core/pkg/contracts/events"
)

// Store é o subconjunto do repositório Postgres usado pelo timer
type Store interface {
	GetAuction(ctx context.Context, id string) (auction.Auction, error)
	SetAuctionStatus(ctx context.Context, id string, status auction.AuctionStatus) error
	GetLot(ctx context.Context, id string) (auction.Lot, error)
	ListActiveLots(ctx context.Context) ([]auction.Lot, error)
	ListActiveLotsByAuction(ctx context.Context, auctionID string) ([]auction.Lot, error)
	ListPendingLotsOrderedByPosition(ctx context.Context, auctionID string) ([]auction.Lot, error)
	ActivateLot(ctx context.Context, lotID string, startedAt, expiresAt time.Time) (bool, error)
	EndLot(ctx context.Context, lotID string, status auction.LotStatus, endedAt time.Time) (bool, error)
	ResetLotTimer(ctx context.Context, lotID string, expiresAt time.Time) (bool, error)
}

type Publisher interface {
	Publish(ctx context.Context, u events.AuctionUpdate) error
}

type Snapshots interface {
	SetLot(ctx context.Context, l auction.Lot) error
}

// Leadership entrega um contexto por mandato de liderança
type Leadership interface {
	AwaitTerm(ctx context.Context) (context.Context, error)
}
