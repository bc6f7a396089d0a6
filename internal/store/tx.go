package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/radieske/auction-bidding-core/internal/auction"
	"github.com/radieske/auction-bidding-core/internal/wallet-service/repo"
)

// WalletLedger são as operações de carteira usadas dentro da transação do lance
type WalletLedger interface {
	WalletByCustomer(ctx context.Context, customerID string) (repo.Wallet, error)
	LockWallets(ctx context.Context, walletIDs ...string) error
	GetAvailableBalance(ctx context.Context, walletID string) (int64, error)
	Block(ctx context.Context, walletID string, amount int64, ref string) error
	Unblock(ctx context.Context, walletID string, amount int64, ref string) error
}

// LotTx é a unidade de trabalho de uma decisão de lance
type LotTx interface {
	LockLot(ctx context.Context, lotID string) (auction.Lot, error)
	ApplyAcceptedBid(ctx context.Context, b auction.Bid) error
	Ledger() WalletLedger
}

type pgTx struct {
	tx     *sql.Tx
	ledger *repo.Ledger
}

// WithTx roda fn numa transação; erro de fn faz rollback
func (p *Postgres) WithTx(ctx context.Context, fn func(tx LotTx) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&pgTx{tx: tx, ledger: repo.NewLedger(tx)}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (t *pgTx) Ledger() WalletLedger { return t.ledger }

// LockLot trava a linha do lote até o fim da transação
func (t *pgTx) LockLot(ctx context.Context, lotID string) (auction.Lot, error) {
	l, err := scanLot(t.tx.QueryRowContext(ctx, `SELECT `+lotColumns+` FROM lots WHERE id=$1 FOR UPDATE`, lotID))
	if errors.Is(err, sql.ErrNoRows) {
		return auction.Lot{}, auction.ErrLotNotFound
	}
	if err != nil {
		return auction.Lot{}, fmt.Errorf("lock lot: %w", err)
	}
	return l, nil
}

// ApplyAcceptedBid marca o lance anterior como outbid, atualiza o lote e grava
// o novo lance aceito. Correlation_id repetida retorna ErrDuplicateBid.
func (t *pgTx) ApplyAcceptedBid(ctx context.Context, b auction.Bid) error {
	if _, err := t.tx.ExecContext(ctx,
		`UPDATE bids SET status='outbid' WHERE lot_id=$1 AND status='accepted'`, b.LotID); err != nil {
		return fmt.Errorf("outbid previous: %w", err)
	}

	if _, err := t.tx.ExecContext(ctx,
		`UPDATE lots SET current_bid=$2, current_winner_id=$3, updated_at=NOW() WHERE id=$1`,
		b.LotID, b.Amount, b.CustomerID); err != nil {
		return fmt.Errorf("update lot: %w", err)
	}

	b.Status = auction.BidAccepted
	inserted, err := insertBid(ctx, t.tx, b)
	if err != nil {
		return err
	}
	if !inserted {
		return ErrDuplicateBid
	}
	return nil
}
