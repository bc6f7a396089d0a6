package submitter

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/auction-bidding-core/internal/auction"
	"github.com/radieske/auction-bidding-core/pkg/contracts/events"
)

const (
	MsgSubmitted     = "Bid submitted successfully"
	MsgPublishFailed = "Failed to submit bid"
)

// Snapshots lê o estado quase em tempo real do Redis
type Snapshots interface {
	Lot(ctx context.Context, lotID string) (auction.Lot, bool, error)
	WalletBalance(ctx context.Context, customerID string) (int64, bool, error)
}

type BidPublisher interface {
	PublishBid(ctx context.Context, b events.BidPlaced) error
}

type Result struct {
	Accepted      bool   `json:"success"`
	CorrelationID string `json:"correlation_id"`
	Message       string `json:"message"`
}

// Submitter faz a validação otimista do lance contra o cache e, se passar,
// publica no tópico de lances. A decisão final é do bid-decider.
type Submitter struct {
	Snapshots Snapshots
	Publisher BidPublisher
	Policy    auction.Policy
	Log       *zap.Logger
	Now       func() time.Time

	// OnResult recebe "submitted", "rejected" ou "publish_error" (métricas)
	OnResult func(outcome string)
}

func New(snap Snapshots, pub BidPublisher, policy auction.Policy, log *zap.Logger) *Submitter {
	return &Submitter{Snapshots: snap, Publisher: pub, Policy: policy, Log: log, Now: time.Now}
}

func (s *Submitter) Submit(ctx context.Context, lotID, customerID string, amount int64) Result {
	res := Result{CorrelationID: uuid.NewString()}
	log := s.Log.With(
		zap.String("correlation_id", res.CorrelationID),
		zap.String("lot_id", lotID),
		zap.String("customer_id", customerID),
		zap.Int64("amount", amount),
	)

	if err := s.validate(ctx, lotID, customerID, amount); err != nil {
		res.Message = auction.RejectionReason(err)
		log.Info("bid rejected on admission", zap.String("reason", res.Message))
		s.result("rejected")
		return res
	}

	msg := events.BidPlaced{
		LotID:         lotID,
		CustomerID:    customerID,
		Amount:        amount,
		CorrelationID: res.CorrelationID,
		TsUnixMs:      s.Now().UnixMilli(),
	}
	if err := s.Publisher.PublishBid(ctx, msg); err != nil {
		log.Error("publish bid failed", zap.Error(err))
		res.Message = MsgPublishFailed
		s.result("publish_error")
		return res
	}

	log.Info("bid submitted")
	res.Accepted = true
	res.Message = MsgSubmitted
	s.result("submitted")
	return res
}

func (s *Submitter) validate(ctx context.Context, lotID, customerID string, amount int64) error {
	if lotID == "" || customerID == "" || amount <= 0 {
		return auction.ErrInvalidBid
	}

	// erro de leitura do cache conta como ausência
	lot, ok, err := s.Snapshots.Lot(ctx, lotID)
	if err != nil {
		s.Log.Warn("lot snapshot read failed", zap.String("lot_id", lotID), zap.Error(err))
	}
	if err != nil || !ok {
		return auction.ErrLotNotFound
	}

	if err := s.Policy.CheckBid(lot, customerID, amount); err != nil {
		return err
	}

	balance, ok, err := s.Snapshots.WalletBalance(ctx, customerID)
	if err != nil {
		s.Log.Warn("wallet snapshot read failed", zap.String("customer_id", customerID), zap.Error(err))
	}
	if err != nil || !ok || balance < s.Policy.Reservation(amount) {
		return auction.ErrInsufficientBalance
	}

	if lot.Expired(s.Now()) {
		return auction.ErrLotExpired
	}
	return nil
}

func (s *Submitter) result(outcome string) {
	if s.OnResult != nil {
		s.OnResult(outcome)
	}
}
