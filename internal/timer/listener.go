package timer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/auction-bidding-core/internal/auction"
	"github.com/radieske/auction-bidding-core/pkg/contracts/events"
)

type Resetter interface {
	ResetTimer(ctx context.Context, lotID string) error
}

// BidListener reinicia o timer do lote a cada lance aceito quando a
// extensão por lance está ligada
type BidListener struct {
	Timer  Resetter
	Extend bool
	Log    *zap.Logger
}

// Handle é o handler do consumidor de auction.updates
func (l *BidListener) Handle(ctx context.Context, m kafka.Message) error {
	var u events.AuctionUpdate
	if err := json.Unmarshal(m.Value, &u); err != nil {
		return fmt.Errorf("decode update: %w", err)
	}
	if u.EventType != events.BidAccepted || !l.Extend {
		return nil
	}

	err := l.Timer.ResetTimer(ctx, u.LotID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotLeader):
		// apenas o líder estende; os demais só observam
		return nil
	case errors.Is(err, auction.ErrLotNotActive), errors.Is(err, auction.ErrLotNotFound):
		l.Log.Debug("bid accepted for a lot that is no longer active", zap.String("lot_id", u.LotID))
		return nil
	default:
		return fmt.Errorf("reset timer for %s: %w", u.LotID, err)
	}
}
