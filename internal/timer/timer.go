package timer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/auction-bidding-core/internal/auction"
	"github.com/radieske/auction-bidding-core/pkg/contracts/events"
)

var ErrNotLeader = errors.New("this instance is not the lot-timer leader")

// tracked é a visão local de um lote com contagem regressiva
type tracked struct {
	lotID         string
	auctionID     string
	expiresAt     time.Time
	duration      time.Duration
	lastBroadcast time.Time
}

// Timer conduz o ciclo de vida dos lotes: contagem regressiva, encerramento
// e abertura do próximo lote do leilão. Só atua enquanto for líder.
type Timer struct {
	Store     Store
	Publisher Publisher
	Cache     Snapshots
	Log       *zap.Logger
	Now       func() time.Time

	// intervalo mínimo entre timer_tick do mesmo lote
	TickThrottle time.Duration

	OnEvent   func(event string)
	OnTracked func(n int)

	mu   sync.Mutex
	lots map[string]*tracked
	term context.Context

	// serializa as transições de lote feitas por esta instância
	ops sync.Mutex
}

func New(st Store, pub Publisher, cache Snapshots, log *zap.Logger) *Timer {
	return &Timer{
		Store:        st,
		Publisher:    pub,
		Cache:        cache,
		Log:          log,
		Now:          time.Now,
		TickThrottle: time.Second,
		lots:         map[string]*tracked{},
	}
}

// Run espera cada mandato, carrega os lotes ativos e roda o tick até o
// mandato acabar. Ao perder a liderança a lista local é descartada.
func (t *Timer) Run(ctx context.Context, leader Leadership, tick time.Duration) error {
	for {
		term, err := leader.AwaitTerm(ctx)
		if err != nil {
			return err
		}
		if err := t.Load(term); err != nil {
			t.Log.Error("load active lots", zap.Error(err))
			t.Drop()
			select {
			case <-term.Done():
			case <-time.After(500 * time.Millisecond):
			}
			continue
		}

		t.loop(term, tick)
		t.Drop()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		t.Log.Info("leader term ended, timers dropped")
	}
}

func (t *Timer) loop(term context.Context, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-term.Done():
			return
		case <-ticker.C:
			t.Tick(term, t.Now())
		}
	}
}

// Load assume o mandato e passa a acompanhar todos os lotes ativos
func (t *Timer) Load(term context.Context) error {
	lots, err := t.Store.ListActiveLots(term)
	if err != nil {
		return fmt.Errorf("list active lots: %w", err)
	}

	t.mu.Lock()
	t.term = term
	t.lots = make(map[string]*tracked, len(lots))
	for _, l := range lots {
		t.trackLocked(l, time.Time{})
	}
	n := len(t.lots)
	t.mu.Unlock()

	t.Log.Info("leader term started, tracking active lots", zap.Int("lots", n))
	t.gauge(n)
	return nil
}

// Drop esquece todos os lotes; nenhum evento é emitido sem mandato
func (t *Timer) Drop() {
	t.mu.Lock()
	t.term = nil
	t.lots = map[string]*tracked{}
	t.mu.Unlock()
	t.gauge(0)
}

func (t *Timer) IsLeader() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.term != nil && t.term.Err() == nil
}

// Tracked devolve os ids acompanhados no momento
func (t *Timer) Tracked() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.lots))
	for id := range t.lots {
		out = append(out, id)
	}
	return out
}

// Tick encerra os lotes vencidos e publica a contagem dos demais.
// Falhas num lote não interrompem os outros; o lote é tentado de novo no próximo tick.
func (t *Timer) Tick(ctx context.Context, now time.Time) {
	t.mu.Lock()
	due := make([]tracked, 0, len(t.lots))
	for _, tr := range t.lots {
		due = append(due, *tr)
	}
	t.mu.Unlock()

	for _, tr := range due {
		if ctx.Err() != nil {
			return
		}
		remaining := tr.expiresAt.Sub(now)
		if remaining <= 0 {
			if err := t.handleExpiry(ctx, tr.lotID); err != nil {
				t.Log.Error("lot expiry failed", zap.String("lot_id", tr.lotID), zap.Error(err))
				t.event("error")
			}
			continue
		}
		if now.Sub(tr.lastBroadcast) < t.TickThrottle {
			continue
		}
		t.publish(ctx, events.TimerTick, tr.lotID, tr.auctionID, events.TimerTickData{
			RemainingSeconds: int64(math.Ceil(remaining.Seconds())),
			ExpiresAt:        tr.expiresAt,
		})
		t.mu.Lock()
		if cur, ok := t.lots[tr.lotID]; ok {
			cur.lastBroadcast = now
		}
		t.mu.Unlock()
	}
}

func (t *Timer) handleExpiry(ctx context.Context, lotID string) error {
	t.ops.Lock()
	defer t.ops.Unlock()

	lot, err := t.Store.GetLot(ctx, lotID)
	if errors.Is(err, auction.ErrLotNotFound) {
		t.untrack(lotID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get lot: %w", err)
	}
	if lot.Status != auction.LotActive {
		t.untrack(lotID)
		return nil
	}
	// o banco pode ter uma expiração mais nova (reset feito por outro caminho)
	if lot.TimerExpiresAt != nil && lot.TimerExpiresAt.After(t.Now()) {
		t.mu.Lock()
		if cur, ok := t.lots[lotID]; ok {
			cur.expiresAt = *lot.TimerExpiresAt
		}
		t.mu.Unlock()
		return nil
	}

	ended, err := t.endLot(ctx, lot, "")
	if err != nil {
		return err
	}
	if !ended {
		return nil
	}
	return t.startNext(ctx, lot.AuctionID)
}

// endLot encerra o lote condicionalmente. lot_ended só sai quando esta
// chamada mudou a linha.
func (t *Timer) endLot(ctx context.Context, lot auction.Lot, reason string) (bool, error) {
	status := auction.LotFailed
	if lot.HasWinner() {
		status = auction.LotCompleted
	}
	if reason == "" {
		reason = events.ReasonNoBids
		if lot.HasWinner() {
			reason = events.ReasonTimeout
		}
	}

	now := t.Now()
	ok, err := t.Store.EndLot(ctx, lot.ID, status, now)
	if err != nil {
		return false, fmt.Errorf("end lot: %w", err)
	}
	t.untrack(lot.ID)
	if !ok {
		t.Log.Debug("lot already ended", zap.String("lot_id", lot.ID))
		return false, nil
	}

	lot.Status = status
	lot.EndedAt = &now
	lot.TimerExpiresAt = nil
	t.refresh(ctx, lot)

	t.Log.Info("lot ended",
		zap.String("lot_id", lot.ID),
		zap.String("auction_id", lot.AuctionID),
		zap.String("status", string(status)),
		zap.String("winner_id", lot.CurrentWinnerID),
		zap.Int64("final_bid", lot.CurrentBid),
		zap.String("reason", reason))
	t.publish(ctx, events.LotEnded, lot.ID, lot.AuctionID, events.LotEndedData{
		WinnerID: lot.CurrentWinnerID,
		FinalBid: lot.CurrentBid,
		Reason:   reason,
	})
	t.event("lot_ended")
	return true, nil
}

// StartNextAuctionLot força o fim dos lotes ainda ativos e abre o próximo
// pendente por posição. Sem pendentes, o leilão é encerrado.
func (t *Timer) StartNextAuctionLot(ctx context.Context, auctionID string) error {
	t.ops.Lock()
	defer t.ops.Unlock()
	return t.startNext(ctx, auctionID)
}

func (t *Timer) startNext(ctx context.Context, auctionID string) error {
	active, err := t.Store.ListActiveLotsByAuction(ctx, auctionID)
	if err != nil {
		return fmt.Errorf("list active lots: %w", err)
	}
	for _, l := range active {
		if _, err := t.endLot(ctx, l, events.ReasonForcedTimeout); err != nil {
			return err
		}
	}

	pending, err := t.Store.ListPendingLotsOrderedByPosition(ctx, auctionID)
	if err != nil {
		return fmt.Errorf("list pending lots: %w", err)
	}
	for _, next := range pending {
		now := t.Now()
		expires := now.Add(next.Duration())
		ok, err := t.Store.ActivateLot(ctx, next.ID, now, expires)
		if err != nil {
			return fmt.Errorf("activate lot: %w", err)
		}
		if !ok {
			// cancelado ou aberto por outro caminho desde a listagem
			continue
		}

		next.Status = auction.LotActive
		next.StartedAt = &now
		next.TimerExpiresAt = &expires
		t.track(next, now)
		t.refresh(ctx, next)

		t.Log.Info("lot started",
			zap.String("lot_id", next.ID),
			zap.String("auction_id", auctionID),
			zap.Int("position", next.Position),
			zap.Time("expires_at", expires))
		t.publish(ctx, events.LotStarted, next.ID, auctionID, events.LotStartedData{
			ProductID:            next.ProductID,
			Position:             next.Position,
			StartingPrice:        next.StartingPrice,
			BidIncrement:         next.BidIncrement,
			TimerDurationSeconds: next.TimerDurationSeconds,
			TimerExpiresAt:       expires,
		})
		t.event("lot_started")
		return nil
	}

	if err := t.Store.SetAuctionStatus(ctx, auctionID, auction.AuctionEnded); err != nil {
		return fmt.Errorf("end auction: %w", err)
	}
	t.Log.Info("auction ended, no pending lots", zap.String("auction_id", auctionID))
	t.event("auction_ended")
	return nil
}

// ResetTimer reinicia a contagem de um lote ativo para a duração cheia
func (t *Timer) ResetTimer(ctx context.Context, lotID string) error {
	if !t.IsLeader() {
		return ErrNotLeader
	}
	t.ops.Lock()
	defer t.ops.Unlock()

	lot, err := t.Store.GetLot(ctx, lotID)
	if err != nil {
		return err
	}
	if lot.Status != auction.LotActive {
		return auction.ErrLotNotActive
	}

	now := t.Now()
	expires := now.Add(lot.Duration())
	ok, err := t.Store.ResetLotTimer(ctx, lotID, expires)
	if err != nil {
		return fmt.Errorf("reset lot timer: %w", err)
	}
	if !ok {
		return auction.ErrLotNotActive
	}

	lot.TimerExpiresAt = &expires
	t.track(lot, now)
	t.refresh(ctx, lot)

	t.Log.Debug("timer reset", zap.String("lot_id", lotID), zap.Time("expires_at", expires))
	t.publish(ctx, events.TimerReset, lotID, lot.AuctionID, events.TimerResetData{
		ExpiresAt:       expires,
		DurationSeconds: lot.TimerDurationSeconds,
	})
	t.event("timer_reset")
	return nil
}

// StartAuction ativa o leilão e abre o primeiro lote
func (t *Timer) StartAuction(ctx context.Context, auctionID string) error {
	if !t.IsLeader() {
		return ErrNotLeader
	}
	t.ops.Lock()
	defer t.ops.Unlock()

	a, err := t.Store.GetAuction(ctx, auctionID)
	if err != nil {
		return err
	}
	if err := a.CanStart(); err != nil {
		return err
	}
	if err := t.Store.SetAuctionStatus(ctx, auctionID, auction.AuctionActive); err != nil {
		return fmt.Errorf("activate auction: %w", err)
	}
	t.Log.Info("auction started", zap.String("auction_id", auctionID))
	return t.startNext(ctx, auctionID)
}

func (t *Timer) track(l auction.Lot, lastBroadcast time.Time) {
	t.mu.Lock()
	if t.term == nil {
		t.mu.Unlock()
		return
	}
	t.trackLocked(l, lastBroadcast)
	n := len(t.lots)
	t.mu.Unlock()
	t.gauge(n)
}

func (t *Timer) trackLocked(l auction.Lot, lastBroadcast time.Time) {
	if l.TimerExpiresAt == nil {
		return
	}
	t.lots[l.ID] = &tracked{
		lotID:         l.ID,
		auctionID:     l.AuctionID,
		expiresAt:     *l.TimerExpiresAt,
		duration:      l.Duration(),
		lastBroadcast: lastBroadcast,
	}
}

func (t *Timer) untrack(lotID string) {
	t.mu.Lock()
	delete(t.lots, lotID)
	n := len(t.lots)
	t.mu.Unlock()
	t.gauge(n)
}

// refresh atualiza o snapshot do lote; falha de cache não é fatal
func (t *Timer) refresh(ctx context.Context, l auction.Lot) {
	l.UpdatedAt = t.Now()
	if err := t.Cache.SetLot(ctx, l); err != nil {
		t.Log.Warn("lot cache refresh failed", zap.String("lot_id", l.ID), zap.Error(err))
		t.event("cache_error")
	}
}

func (t *Timer) publish(ctx context.Context, typ events.UpdateType, lotID, auctionID string, data any) {
	u, err := events.NewUpdate(typ, lotID, auctionID, data)
	if err == nil {
		err = t.Publisher.Publish(ctx, u)
	}
	if err != nil {
		t.Log.Warn("publish update failed", zap.String("event_type", string(typ)), zap.String("lot_id", lotID), zap.Error(err))
		t.event("publish_error")
	}
}

func (t *Timer) event(e string) {
	if t.OnEvent != nil {
		t.OnEvent(e)
	}
}

func (t *Timer) gauge(n int) {
	if t.OnTracked != nil {
		t.OnTracked(n)
	}
}
