package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrInsufficientAvailable = errors.New("insufficient available balance")
	ErrInsufficientBlocked   = errors.New("insufficient blocked balance")
	ErrReservationReleased   = errors.New("reservation already released")
	ErrInvalidAmount         = errors.New("amount must be positive")
)

// Status das reservas
const (
	StatusBlocked  = "BLOCKED"
	StatusReleased = "RELEASED"
	StatusDebited  = "DEBITED"
)

type Wallet struct {
	ID             string `json:"id"`
	CustomerID     string `json:"customer_id"`
	Balance        int64  `json:"balance"`
	BlockedBalance int64  `json:"blocked_balance"`
}

// Available é o saldo livre para novos bloqueios
func (w Wallet) Available() int64 { return w.Balance - w.BlockedBalance }

// Querier é satisfeito por *sql.DB e *sql.Tx
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Ledger aplica as operações de carteira sobre uma transação já aberta.
// Todas as operações travam a linha da carteira (FOR UPDATE) e são
// idempotentes por referência.
type Ledger struct{ q Querier }

func NewLedger(q Querier) *Ledger { return &Ledger{q: q} }

// WalletByCustomer retorna a carteira do cliente sem travar a linha
func (l *Ledger) WalletByCustomer(ctx context.Context, customerID string) (Wallet, error) {
	w := Wallet{CustomerID: customerID}
	err := l.q.QueryRowContext(ctx,
		`SELECT id, balance, blocked_balance FROM wallets WHERE customer_id=$1`, customerID).
		Scan(&w.ID, &w.Balance, &w.BlockedBalance)
	if errors.Is(err, sql.ErrNoRows) {
		return Wallet{}, ErrNotFound
	}
	if err != nil {
		return Wallet{}, fmt.Errorf("wallet by customer: %w", err)
	}
	return w, nil
}

// LockWallets trava as carteiras em ordem de id, evitando deadlock entre
// transações que tocam as mesmas duas carteiras.
func (l *Ledger) LockWallets(ctx context.Context, walletIDs ...string) error {
	ids := append([]string(nil), walletIDs...)
	sort.Strings(ids)

	var prev string
	for i, id := range ids {
		if i > 0 && id == prev {
			continue
		}
		prev = id
		if _, err := l.lock(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (l *Ledger) lock(ctx context.Context, walletID string) (Wallet, error) {
	w := Wallet{ID: walletID}
	err := l.q.QueryRowContext(ctx,
		`SELECT customer_id, balance, blocked_balance FROM wallets WHERE id=$1 FOR UPDATE`, walletID).
		Scan(&w.CustomerID, &w.Balance, &w.BlockedBalance)
	if errors.Is(err, sql.ErrNoRows) {
		return Wallet{}, ErrNotFound
	}
	if err != nil {
		return Wallet{}, fmt.Errorf("lock wallet: %w", err)
	}
	return w, nil
}

// GetAvailableBalance retorna balance - blocked_balance
func (l *Ledger) GetAvailableBalance(ctx context.Context, walletID string) (int64, error) {
	var bal, blocked int64
	err := l.q.QueryRowContext(ctx,
		`SELECT balance, blocked_balance FROM wallets WHERE id=$1`, walletID).Scan(&bal, &blocked)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("available balance: %w", err)
	}
	return bal - blocked, nil
}

type reservation struct {
	id     string
	amount int64
	status string
}

func (l *Ledger) reservation(ctx context.Context, walletID, ref string) (reservation, bool, error) {
	var r reservation
	err := l.q.QueryRowContext(ctx,
		`SELECT id, amount, status FROM wallet_reservations WHERE wallet_id=$1 AND reference=$2 FOR UPDATE`,
		walletID, ref).Scan(&r.id, &r.amount, &r.status)
	if errors.Is(err, sql.ErrNoRows) {
		return reservation{}, false, nil
	}
	if err != nil {
		return reservation{}, false, fmt.Errorf("load reservation: %w", err)
	}
	return r, true, nil
}

func (l *Ledger) entry(ctx context.Context, walletID, op string, amount int64, ref string) error {
	if _, err := l.q.ExecContext(ctx,
		`INSERT INTO wallet_ledger(wallet_id, operation, amount, reference) VALUES($1,$2,$3,$4)`,
		walletID, op, amount, ref); err != nil {
		return fmt.Errorf("ledger %s: %w", op, err)
	}
	return nil
}

// Block reserva amount sob ref. Uma referência já existente não faz nada.
func (l *Ledger) Block(ctx context.Context, walletID string, amount int64, ref string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	w, err := l.lock(ctx, walletID)
	if err != nil {
		return err
	}

	if _, exists, err := l.reservation(ctx, walletID, ref); err != nil {
		return err
	} else if exists {
		return nil
	}

	if w.Available() < amount {
		return ErrInsufficientAvailable
	}

	if _, err := l.q.ExecContext(ctx,
		`UPDATE wallets SET blocked_balance = blocked_balance + $1, version = version + 1, updated_at = NOW() WHERE id=$2`,
		amount, walletID); err != nil {
		return fmt.Errorf("block: %w", err)
	}

	if _, err := l.q.ExecContext(ctx,
		`INSERT INTO wallet_reservations(id, wallet_id, reference, amount, status) VALUES($1,$2,$3,$4,'BLOCKED')`,
		uuid.NewString(), walletID, ref, amount); err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}

	return l.entry(ctx, walletID, "BLOCK", amount, ref)
}

// Unblock libera a reserva ref. Reserva ausente ou já tratada não faz nada;
// o valor liberado é o da reserva.
func (l *Ledger) Unblock(ctx context.Context, walletID string, amount int64, ref string) error {
	if _, err := l.lock(ctx, walletID); err != nil {
		return err
	}

	r, exists, err := l.reservation(ctx, walletID, ref)
	if err != nil {
		return err
	}
	if !exists || r.status != StatusBlocked {
		return nil
	}

	if _, err := l.q.ExecContext(ctx,
		`UPDATE wallets SET blocked_balance = GREATEST(blocked_balance - $1, 0), version = version + 1, updated_at = NOW() WHERE id=$2`,
		r.amount, walletID); err != nil {
		return fmt.Errorf("unblock: %w", err)
	}

	if _, err := l.q.ExecContext(ctx,
		`UPDATE wallet_reservations SET status='RELEASED', updated_at = NOW() WHERE id=$1`, r.id); err != nil {
		return fmt.Errorf("release reservation: %w", err)
	}

	return l.entry(ctx, walletID, "UNBLOCK", r.amount, ref)
}

// Debit efetiva uma reserva BLOCKED, baixando balance e blocked_balance
func (l *Ledger) Debit(ctx context.Context, walletID string, amount int64, ref string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	w, err := l.lock(ctx, walletID)
	if err != nil {
		return err
	}

	r, exists, err := l.reservation(ctx, walletID, ref)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	switch r.status {
	case StatusDebited:
		return nil
	case StatusReleased:
		return ErrReservationReleased
	}

	if amount > w.BlockedBalance {
		return ErrInsufficientBlocked
	}

	if _, err := l.q.ExecContext(ctx,
		`UPDATE wallets SET balance = balance - $1, blocked_balance = blocked_balance - $1, version = version + 1, updated_at = NOW() WHERE id=$2`,
		amount, walletID); err != nil {
		return fmt.Errorf("debit: %w", err)
	}

	if _, err := l.q.ExecContext(ctx,
		`UPDATE wallet_reservations SET status='DEBITED', updated_at = NOW() WHERE id=$1`, r.id); err != nil {
		return fmt.Errorf("debit reservation: %w", err)
	}

	return l.entry(ctx, walletID, "DEBIT", amount, ref)
}

// GetOrCreateWallet retorna a carteira do cliente, criando se não existir
func (l *Ledger) GetOrCreateWallet(ctx context.Context, customerID string) (Wallet, error) {
	if _, err := l.q.ExecContext(ctx,
		`INSERT INTO wallets(id, customer_id) VALUES($1,$2) ON CONFLICT (customer_id) DO NOTHING`,
		uuid.NewString(), customerID); err != nil {
		return Wallet{}, fmt.Errorf("create wallet: %w", err)
	}
	return l.WalletByCustomer(ctx, customerID)
}

// Deposit credita a carteira (criando se preciso) e registra no ledger
func (l *Ledger) Deposit(ctx context.Context, customerID string, amount int64, ref string) (Wallet, error) {
	if amount <= 0 {
		return Wallet{}, ErrInvalidAmount
	}
	w, err := l.GetOrCreateWallet(ctx, customerID)
	if err != nil {
		return Wallet{}, err
	}
	if _, err := l.lock(ctx, w.ID); err != nil {
		return Wallet{}, err
	}

	if _, err := l.q.ExecContext(ctx,
		`UPDATE wallets SET balance = balance + $1, version = version + 1, updated_at = NOW() WHERE id=$2`,
		amount, w.ID); err != nil {
		return Wallet{}, fmt.Errorf("deposit: %w", err)
	}
	if err := l.entry(ctx, w.ID, "DEPOSIT", amount, ref); err != nil {
		return Wallet{}, err
	}
	return l.lock(ctx, w.ID)
}
