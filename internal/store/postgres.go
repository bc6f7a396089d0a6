package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/radieske/auction-bidding-core/internal/auction"
)

// ErrDuplicateBid sinaliza que a correlation_id já foi gravada
var ErrDuplicateBid = errors.New("bid already recorded")

// queryer é satisfeito por *sql.DB e *sql.Tx
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Postgres é o repositório durável de leilões, lotes e lances
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// ==== Auctions

const auctionColumns = `id, title, description, start_date, end_date, status, is_enabled,
	lot_registration_cutoff_hours, created_at, updated_at`

func scanAuction(row interface{ Scan(...any) error }) (auction.Auction, error) {
	var a auction.Auction
	var end sql.NullTime
	if err := row.Scan(&a.ID, &a.Title, &a.Description, &a.StartDate, &end, &a.Status, &a.IsEnabled,
		&a.CutoffHours, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return auction.Auction{}, err
	}
	a.EndDate = timePtr(end)
	return a, nil
}

// CreateAuction grava um leilão; ID vazio recebe um uuid
func (p *Postgres) CreateAuction(ctx context.Context, a *auction.Auction) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = auction.AuctionDraft
	}
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO auctions(id, title, description, start_date, status, is_enabled, lot_registration_cutoff_hours)
		VALUES($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at, updated_at`,
		a.ID, a.Title, a.Description, a.StartDate, a.Status, a.IsEnabled, a.CutoffHours).
		Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create auction: %w", err)
	}
	return nil
}

func (p *Postgres) GetAuction(ctx context.Context, id string) (auction.Auction, error) {
	a, err := scanAuction(p.db.QueryRowContext(ctx, `SELECT `+auctionColumns+` FROM auctions WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return auction.Auction{}, auction.ErrAuctionNotFound
	}
	if err != nil {
		return auction.Auction{}, fmt.Errorf("get auction: %w", err)
	}
	return a, nil
}

// SetAuctionStatus muda o status; ended grava end_date = NOW()
func (p *Postgres) SetAuctionStatus(ctx context.Context, id string, status auction.AuctionStatus) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE auctions
		SET status=$2,
		    end_date = CASE WHEN $2 = 'ended' THEN NOW() ELSE end_date END,
		    updated_at = NOW()
		WHERE id=$1`, id, status)
	if err != nil {
		return fmt.Errorf("set auction status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return auction.ErrAuctionNotFound
	}
	return nil
}

// ==== Lots

const lotColumns = `id, auction_id, product_id, seller_id, position, starting_price, bid_increment,
	current_bid, current_winner_id, status, timer_duration_seconds, timer_expires_at,
	started_at, ended_at, created_at, updated_at`

func scanLot(row interface{ Scan(...any) error }) (auction.Lot, error) {
	var l auction.Lot
	var bid sql.NullInt64
	var winner sql.NullString
	var expires, started, ended sql.NullTime
	if err := row.Scan(&l.ID, &l.AuctionID, &l.ProductID, &l.SellerID, &l.Position, &l.StartingPrice,
		&l.BidIncrement, &bid, &winner, &l.Status, &l.TimerDurationSeconds, &expires,
		&started, &ended, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return auction.Lot{}, err
	}
	l.CurrentBid = bid.Int64
	l.CurrentWinnerID = winner.String
	l.TimerExpiresAt = timePtr(expires)
	l.StartedAt = timePtr(started)
	l.EndedAt = timePtr(ended)
	return l, nil
}

func listLots(ctx context.Context, q queryer, where string, args ...any) ([]auction.Lot, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+lotColumns+` FROM lots `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []auction.Lot
	for rows.Next() {
		l, err := scanLot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// CreateLot registra o lote na próxima posição do leilão
func (p *Postgres) CreateLot(ctx context.Context, l *auction.Lot) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	l.Status = auction.LotPending
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO lots(id, auction_id, product_id, seller_id, position, starting_price, bid_increment,
		                 status, timer_duration_seconds)
		SELECT $1, $2, $3, $4, COALESCE(MAX(position), 0) + 1, $5, $6, 'pending', $7
		FROM lots WHERE auction_id=$2
		RETURNING position, created_at, updated_at`,
		l.ID, l.AuctionID, l.ProductID, l.SellerID, l.StartingPrice, l.BidIncrement, l.TimerDurationSeconds).
		Scan(&l.Position, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create lot: %w", err)
	}
	return nil
}

func (p *Postgres) GetLot(ctx context.Context, id string) (auction.Lot, error) {
	l, err := scanLot(p.db.QueryRowContext(ctx, `SELECT `+lotColumns+` FROM lots WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return auction.Lot{}, auction.ErrLotNotFound
	}
	if err != nil {
		return auction.Lot{}, fmt.Errorf("get lot: %w", err)
	}
	return l, nil
}

func (p *Postgres) ListLotsByAuction(ctx context.Context, auctionID string) ([]auction.Lot, error) {
	lots, err := listLots(ctx, p.db, `WHERE auction_id=$1 ORDER BY position`, auctionID)
	if err != nil {
		return nil, fmt.Errorf("list lots: %w", err)
	}
	return lots, nil
}

func (p *Postgres) ListActiveLots(ctx context.Context) ([]auction.Lot, error) {
	lots, err := listLots(ctx, p.db, `WHERE status='active' ORDER BY timer_expires_at`)
	if err != nil {
		return nil, fmt.Errorf("list active lots: %w", err)
	}
	return lots, nil
}

func (p *Postgres) ListActiveLotsByAuction(ctx context.Context, auctionID string) ([]auction.Lot, error) {
	lots, err := listLots(ctx, p.db, `WHERE auction_id=$1 AND status='active' ORDER BY position`, auctionID)
	if err != nil {
		return nil, fmt.Errorf("list active lots by auction: %w", err)
	}
	return lots, nil
}

func (p *Postgres) ListPendingLotsOrderedByPosition(ctx context.Context, auctionID string) ([]auction.Lot, error) {
	lots, err := listLots(ctx, p.db, `WHERE auction_id=$1 AND status='pending' ORDER BY position`, auctionID)
	if err != nil {
		return nil, fmt.Errorf("list pending lots: %w", err)
	}
	return lots, nil
}

// ActivateLot passa pending -> active; false quando outro processo já ativou
func (p *Postgres) ActivateLot(ctx context.Context, lotID string, startedAt, expiresAt time.Time) (bool, error) {
	return p.conditional(ctx, "activate lot", `
		UPDATE lots SET status='active', started_at=$2, timer_expires_at=$3, updated_at=NOW()
		WHERE id=$1 AND status='pending'`, lotID, startedAt, expiresAt)
}

// EndLot encerra um lote ativo; false quando já estava encerrado
func (p *Postgres) EndLot(ctx context.Context, lotID string, status auction.LotStatus, endedAt time.Time) (bool, error) {
	return p.conditional(ctx, "end lot", `
		UPDATE lots SET status=$2, ended_at=$3, timer_expires_at=NULL, updated_at=NOW()
		WHERE id=$1 AND status='active'`, lotID, status, endedAt)
}

// ResetLotTimer grava a nova expiração se o lote ainda estiver ativo
func (p *Postgres) ResetLotTimer(ctx context.Context, lotID string, expiresAt time.Time) (bool, error) {
	return p.conditional(ctx, "reset lot timer", `
		UPDATE lots SET timer_expires_at=$2, updated_at=NOW()
		WHERE id=$1 AND status='active'`, lotID, expiresAt)
}

// CancelLot cancela lotes que ainda não estão ativos nem concluídos
func (p *Postgres) CancelLot(ctx context.Context, lotID string) (bool, error) {
	return p.conditional(ctx, "cancel lot", `
		UPDATE lots SET status='cancelled', updated_at=NOW()
		WHERE id=$1 AND status NOT IN ('active', 'completed', 'cancelled')`, lotID)
}

func (p *Postgres) conditional(ctx context.Context, op, query string, args ...any) (bool, error) {
	res, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n > 0, nil
}

// ==== Bids

const bidColumns = `id, lot_id, customer_id, amount, status, rejection_reason, correlation_id, processed_at, created_at`

func scanBid(row interface{ Scan(...any) error }) (auction.Bid, error) {
	var b auction.Bid
	var reason sql.NullString
	var processed sql.NullTime
	if err := row.Scan(&b.ID, &b.LotID, &b.CustomerID, &b.Amount, &b.Status, &reason,
		&b.CorrelationID, &processed, &b.CreatedAt); err != nil {
		return auction.Bid{}, err
	}
	b.RejectionReason = reason.String
	b.ProcessedAt = timePtr(processed)
	return b, nil
}

func insertBid(ctx context.Context, q queryer, b auction.Bid) (bool, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	processed := time.Now()
	if b.ProcessedAt != nil {
		processed = *b.ProcessedAt
	}
	res, err := q.ExecContext(ctx, `
		INSERT INTO bids(id, lot_id, customer_id, amount, status, rejection_reason, correlation_id, processed_at)
		VALUES($1,$2,$3,$4,$5,NULLIF($6,''),$7,$8)
		ON CONFLICT (correlation_id) DO NOTHING`,
		b.ID, b.LotID, b.CustomerID, b.Amount, b.Status, b.RejectionReason, b.CorrelationID, processed)
	if err != nil {
		return false, fmt.Errorf("insert bid: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert bid: %w", err)
	}
	return n > 0, nil
}

// InsertBid grava o lance; false quando a correlation_id já existia
func (p *Postgres) InsertBid(ctx context.Context, b auction.Bid) (bool, error) {
	return insertBid(ctx, p.db, b)
}

func (p *Postgres) BidByCorrelationID(ctx context.Context, correlationID string) (auction.Bid, error) {
	b, err := scanBid(p.db.QueryRowContext(ctx, `SELECT `+bidColumns+` FROM bids WHERE correlation_id=$1`, correlationID))
	if errors.Is(err, sql.ErrNoRows) {
		return auction.Bid{}, auction.ErrBidNotFound
	}
	if err != nil {
		return auction.Bid{}, fmt.Errorf("bid by correlation id: %w", err)
	}
	return b, nil
}

// ListBidsForLot lista os lances do lote com o status dado, mais novos primeiro
func (p *Postgres) ListBidsForLot(ctx context.Context, lotID string, status auction.BidStatus, limit, offset int) ([]auction.Bid, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT `+bidColumns+` FROM bids
		WHERE lot_id=$1 AND status=$2
		ORDER BY created_at DESC, amount DESC
		LIMIT $3 OFFSET $4`, lotID, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list bids: %w", err)
	}
	defer rows.Close()

	var out []auction.Bid
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, fmt.Errorf("list bids: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Ping expõe o banco para o healthcheck
func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
