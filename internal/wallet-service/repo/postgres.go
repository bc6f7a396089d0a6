package repo

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// BalanceCache recebe o saldo disponível após cada mutação
type BalanceCache interface {
	SetWalletBalance(ctx context.Context, customerID string, available int64) error
}

// Postgres implementa operações de carteira em banco, cada chamada em sua
// própria transação. Quem já tem uma transação aberta usa NewLedger(tx).
type Postgres struct {
	db    *sql.DB
	cache BalanceCache
	log   *zap.Logger
}

func NewPostgres(db *sql.DB, cache BalanceCache, log *zap.Logger) *Postgres {
	return &Postgres{db: db, cache: cache, log: log}
}

func (p *Postgres) inTx(ctx context.Context, fn func(l *Ledger) (Wallet, error)) (Wallet, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return Wallet{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	w, err := fn(NewLedger(tx))
	if err != nil {
		return Wallet{}, err
	}
	if err := tx.Commit(); err != nil {
		return Wallet{}, fmt.Errorf("commit: %w", err)
	}

	p.refresh(ctx, w)
	return w, nil
}

// refresh atualiza wallet_balance:<customer>; falha de cache só gera log
func (p *Postgres) refresh(ctx context.Context, w Wallet) {
	if p.cache == nil || w.CustomerID == "" {
		return
	}
	if err := p.cache.SetWalletBalance(ctx, w.CustomerID, w.Available()); err != nil {
		p.log.Warn("wallet cache refresh failed", zap.String("customer_id", w.CustomerID), zap.Error(err))
	}
}

func (p *Postgres) GetOrCreateWallet(ctx context.Context, customerID string) (Wallet, error) {
	return p.inTx(ctx, func(l *Ledger) (Wallet, error) {
		return l.GetOrCreateWallet(ctx, customerID)
	})
}

func (p *Postgres) Deposit(ctx context.Context, customerID string, amount int64, ref string) (Wallet, error) {
	return p.inTx(ctx, func(l *Ledger) (Wallet, error) {
		return l.Deposit(ctx, customerID, amount, ref)
	})
}

type mutation func(l *Ledger, ctx context.Context, walletID string, amount int64, ref string) error

func (p *Postgres) mutate(ctx context.Context, customerID string, amount int64, ref string, op mutation) (Wallet, error) {
	return p.inTx(ctx, func(l *Ledger) (Wallet, error) {
		w, err := l.WalletByCustomer(ctx, customerID)
		if err != nil {
			return Wallet{}, err
		}
		if err := op(l, ctx, w.ID, amount, ref); err != nil {
			return Wallet{}, err
		}
		return l.lock(ctx, w.ID)
	})
}

func (p *Postgres) Block(ctx context.Context, customerID string, amount int64, ref string) (Wallet, error) {
	return p.mutate(ctx, customerID, amount, ref, (*Ledger).Block)
}

func (p *Postgres) Unblock(ctx context.Context, customerID string, amount int64, ref string) (Wallet, error) {
	return p.mutate(ctx, customerID, amount, ref, (*Ledger).Unblock)
}

func (p *Postgres) Debit(ctx context.Context, customerID string, amount int64, ref string) (Wallet, error) {
	return p.mutate(ctx, customerID, amount, ref, (*Ledger).Debit)
}
