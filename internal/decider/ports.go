package decider

//go:generate mockgen -source=ports.go -destination=mocks/mock_ports.go -package=mocks

import (
	"context"

	"github.com/radieske/auction-bidding-core/internal/auction"
	"github.com/radieske/auction-bidding-core/internal/store"
	"github.com/radieske/auction-bidding-core/pkg/contracts/events"
)

// Store é o subconjunto do repositório usado pelo decider
type Store interface {
	BidByCorrelationID(ctx context.Context, correlationID string) (auction.Bid, error)
	InsertBid(ctx context.Context, b auction.Bid) (bool, error)
	WithTx(ctx context.Context, fn func(tx store.LotTx) error) error
}

// Publisher publica no tópico de atualizações
type Publisher interface {
	Publish(ctx context.Context, u events.AuctionUpdate) error
}

// Snapshots recebe o estado pós-commit para o Redis
type Snapshots interface {
	SetLot(ctx context.Context, l auction.Lot) error
	SetWalletBalance(ctx context.Context, customerID string, available int64) error
}
