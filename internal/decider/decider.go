package decider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/auction-bidding-core/internal/auction"
	"github.com/radieske/auction-bidding-core/internal/store"
	"github.com/radieske/auction-bidding-core/internal/wallet-service/repo"
	"github.com/radieske/auction-bidding-core/pkg/contracts/events"
)

const DefaultProcessTimeout = 5 * time.Second

// Decider é a autoridade sobre lances: trava o lote, valida as regras,
// move as reservas de carteira e grava o lance numa única transação.
type Decider struct {
	Store          Store
	Publisher      Publisher
	Cache          Snapshots
	Policy         auction.Policy
	Log            *zap.Logger
	ProcessTimeout time.Duration
	Now            func() time.Time

	// OnOutcome recebe "accepted", "rejected" ou "duplicate"
	OnOutcome func(outcome string)
	OnError   func(stage string)
}

func New(st Store, pub Publisher, cache Snapshots, policy auction.Policy, log *zap.Logger) *Decider {
	return &Decider{
		Store:          st,
		Publisher:      pub,
		Cache:          cache,
		Policy:         policy,
		Log:            log,
		ProcessTimeout: DefaultProcessTimeout,
		Now:            time.Now,
	}
}

// accepted carrega o que é preciso depois do commit
type accepted struct {
	lot               auction.Lot
	previousWinner    string
	winnerAvailable   int64
	previousAvailable int64
	previousHasWallet bool
}

// ProcessBid decide um lance. Retorna erro apenas quando ctx foi cancelado
// (perda de liderança ou shutdown); nesse caso a mensagem não deve ser
// confirmada no Kafka.
func (d *Decider) ProcessBid(ctx context.Context, msg events.BidPlaced) error {
	log := d.Log.With(
		zap.String("correlation_id", msg.CorrelationID),
		zap.String("lot_id", msg.LotID),
		zap.String("customer_id", msg.CustomerID),
		zap.Int64("amount", msg.Amount),
	)

	pctx, cancel := context.WithTimeout(ctx, d.ProcessTimeout)
	defer cancel()

	// Idempotência: correlation_id já gravada
	if _, err := d.Store.BidByCorrelationID(pctx, msg.CorrelationID); err == nil {
		log.Debug("bid already processed")
		d.outcome("duplicate")
		return nil
	} else if !errors.Is(err, auction.ErrBidNotFound) {
		return d.fail(ctx, log, msg, fmt.Errorf("idempotence check: %w", err))
	}

	acc, err := d.decide(pctx, msg)
	switch {
	case err == nil:
		d.afterAccept(ctx, log, msg, acc)
		return nil
	case errors.Is(err, store.ErrDuplicateBid):
		log.Debug("bid recorded concurrently")
		d.outcome("duplicate")
		return nil
	case auction.IsRuleViolation(err):
		d.reject(ctx, log, msg, auction.RejectionReason(err))
		return nil
	default:
		return d.fail(ctx, log, msg, err)
	}
}

func (d *Decider) decide(ctx context.Context, msg events.BidPlaced) (accepted, error) {
	var acc accepted

	err := d.Store.WithTx(ctx, func(tx store.LotTx) error {
		lot, err := tx.LockLot(ctx, msg.LotID)
		if errors.Is(err, auction.ErrLotNotFound) {
			return auction.ErrLotNotActive
		}
		if err != nil {
			return err
		}

		if err := d.Policy.CheckBid(lot, msg.CustomerID, msg.Amount); err != nil {
			return err
		}

		ledger := tx.Ledger()
		bidder, err := ledger.WalletByCustomer(ctx, msg.CustomerID)
		if errors.Is(err, repo.ErrNotFound) {
			return auction.ErrWalletNotFound
		}
		if err != nil {
			return err
		}

		// carteira do vencedor anterior; pode ser a do próprio licitante
		var previous repo.Wallet
		hasPrevious := false
		if lot.HasWinner() {
			if lot.CurrentWinnerID == msg.CustomerID {
				previous, hasPrevious = bidder, true
			} else {
				previous, err = ledger.WalletByCustomer(ctx, lot.CurrentWinnerID)
				switch {
				case err == nil:
					hasPrevious = true
				case errors.Is(err, repo.ErrNotFound):
					d.Log.Warn("previous winner has no wallet", zap.String("lot_id", lot.ID), zap.String("customer_id", lot.CurrentWinnerID))
				default:
					return err
				}
			}
		}

		ids := []string{bidder.ID}
		if hasPrevious && previous.ID != bidder.ID {
			ids = append(ids, previous.ID)
		}
		if err := ledger.LockWallets(ctx, ids...); err != nil {
			return err
		}

		available, err := ledger.GetAvailableBalance(ctx, bidder.ID)
		if err != nil {
			return err
		}
		need := d.Policy.Reservation(msg.Amount)
		if hasPrevious && previous.ID == bidder.ID {
			// a reserva anterior do próprio licitante será liberada
			available += d.Policy.Reservation(lot.CurrentBid)
		}
		if available < need {
			return auction.ErrInsufficientBalance
		}

		if hasPrevious {
			prevRef := auction.ReservationRef(lot.ID, lot.CurrentBid)
			if err := ledger.Unblock(ctx, previous.ID, d.Policy.Reservation(lot.CurrentBid), prevRef); err != nil {
				return fmt.Errorf("unblock previous winner: %w", err)
			}
		}

		if err := ledger.Block(ctx, bidder.ID, need, auction.ReservationRef(lot.ID, msg.Amount)); err != nil {
			if errors.Is(err, repo.ErrInsufficientAvailable) {
				return auction.ErrInsufficientBalance
			}
			return fmt.Errorf("block reservation: %w", err)
		}

		now := d.Now()
		if err := tx.ApplyAcceptedBid(ctx, auction.Bid{
			LotID:         lot.ID,
			CustomerID:    msg.CustomerID,
			Amount:        msg.Amount,
			Status:        auction.BidAccepted,
			CorrelationID: msg.CorrelationID,
			ProcessedAt:   &now,
		}); err != nil {
			return err
		}

		acc = accepted{previousWinner: lot.CurrentWinnerID}
		if acc.winnerAvailable, err = ledger.GetAvailableBalance(ctx, bidder.ID); err != nil {
			return err
		}
		if hasPrevious && previous.ID != bidder.ID {
			if acc.previousAvailable, err = ledger.GetAvailableBalance(ctx, previous.ID); err != nil {
				return err
			}
			acc.previousHasWallet = true
		}

		lot.CurrentBid = msg.Amount
		lot.CurrentWinnerID = msg.CustomerID
		lot.UpdatedAt = now
		acc.lot = lot
		return nil
	})

	return acc, err
}

func (d *Decider) afterAccept(ctx context.Context, log *zap.Logger, msg events.BidPlaced, acc accepted) {
	log.Info("bid accepted", zap.String("previous_winner_id", acc.previousWinner))
	d.outcome("accepted")

	cctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	// cache é best-effort
	if err := d.Cache.SetLot(cctx, acc.lot); err != nil {
		log.Warn("lot cache refresh failed", zap.Error(err))
		d.countError("cache")
	}
	if err := d.Cache.SetWalletBalance(cctx, msg.CustomerID, acc.winnerAvailable); err != nil {
		log.Warn("wallet cache refresh failed", zap.Error(err))
		d.countError("cache")
	}
	if acc.previousHasWallet {
		if err := d.Cache.SetWalletBalance(cctx, acc.previousWinner, acc.previousAvailable); err != nil {
			log.Warn("wallet cache refresh failed", zap.String("previous_winner_id", acc.previousWinner), zap.Error(err))
			d.countError("cache")
		}
	}

	d.publish(ctx, log, events.BidAccepted, acc.lot.ID, acc.lot.AuctionID, msg.CorrelationID, events.BidAcceptedData{
		CurrentBid:       acc.lot.CurrentBid,
		CurrentWinnerID:  acc.lot.CurrentWinnerID,
		PreviousWinnerID: acc.previousWinner,
	})
}

// reject grava o lance recusado e avisa apenas o cliente
func (d *Decider) reject(ctx context.Context, log *zap.Logger, msg events.BidPlaced, reason string) {
	log.Info("bid rejected", zap.String("reason", reason))
	d.outcome("rejected")

	rctx, cancel := context.WithTimeout(ctx, d.ProcessTimeout)
	defer cancel()

	now := d.Now()
	if _, err := d.Store.InsertBid(rctx, auction.Bid{
		LotID:           msg.LotID,
		CustomerID:      msg.CustomerID,
		Amount:          msg.Amount,
		Status:          auction.BidRejected,
		RejectionReason: reason,
		CorrelationID:   msg.CorrelationID,
		ProcessedAt:     &now,
	}); err != nil {
		log.Error("record rejected bid failed", zap.Error(err))
		d.countError("record")
	}

	d.publish(ctx, log, events.BidRejected, msg.LotID, "", msg.CorrelationID, events.BidRejectedData{
		CustomerID: msg.CustomerID,
		BidAmount:  msg.Amount,
		Reason:     reason,
	})
}

// fail converte erro inesperado em recusa genérica, sem retry
func (d *Decider) fail(ctx context.Context, log *zap.Logger, msg events.BidPlaced, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	log.Error("bid processing failed", zap.Error(err))
	d.countError("process")
	d.reject(ctx, log, msg, auction.RejectionReason(err))
	return nil
}

// publish tenta até 3 vezes; falha final só gera log
func (d *Decider) publish(ctx context.Context, log *zap.Logger, t events.UpdateType, lotID, auctionID, correlationID string, data any) {
	u, err := events.NewUpdate(t, lotID, auctionID, data)
	if err != nil {
		log.Error("encode update", zap.String("event_type", string(t)), zap.Error(err))
		d.countError("publish")
		return
	}
	u.CorrelationID = correlationID

	for attempt := 1; attempt <= 3; attempt++ {
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err = d.Publisher.Publish(pctx, u)
		cancel()
		if err == nil {
			return
		}
		if ctx.Err() != nil {
			break
		}
		time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
	}
	log.Error("publish update failed", zap.String("event_type", string(t)), zap.Error(err))
	d.countError("publish")
}

func (d *Decider) outcome(o string) {
	if d.OnOutcome != nil {
		d.OnOutcome(o)
	}
}

func (d *Decider) countError(stage string) {
	if d.OnError != nil {
		d.OnError(stage)
	}
}
