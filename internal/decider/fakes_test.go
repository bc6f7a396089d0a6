package decider

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/radieske/auction-bidding-core/internal/auction"
	"github.com/radieske/auction-bidding-core/internal/store"
	"github.com/radieske/auction-bidding-core/internal/wallet-service/repo"
	"github.com/radieske/auction-bidding-core/pkg/contracts/events"
)

type memReservation struct {
	walletID string
	amount   int64
	status   string
}

// memState é copiado a cada transação; commit troca o estado inteiro
type memState struct {
	lots         map[string]auction.Lot
	bids         map[string]auction.Bid // por correlation_id
	wallets      map[string]repo.Wallet // por id
	reservations map[string]memReservation
}

func (s memState) clone() memState {
	c := memState{
		lots:         map[string]auction.Lot{},
		bids:         map[string]auction.Bid{},
		wallets:      map[string]repo.Wallet{},
		reservations: map[string]memReservation{},
	}
	for k, v := range s.lots {
		c.lots[k] = v
	}
	for k, v := range s.bids {
		c.bids[k] = v
	}
	for k, v := range s.wallets {
		c.wallets[k] = v
	}
	for k, v := range s.reservations {
		c.reservations[k] = v
	}
	return c
}

type memStore struct {
	mu    sync.Mutex
	state memState

	txErr   error
	locked  [][]string
	lastBid auction.Bid
}

func newMemStore() *memStore {
	return &memStore{state: memState{}.clone()}
}

func (m *memStore) addLot(l auction.Lot) { m.state.lots[l.ID] = l }

func (m *memStore) addWallet(id, customer string, balance int64) {
	m.state.wallets[id] = repo.Wallet{ID: id, CustomerID: customer, Balance: balance}
}

func (m *memStore) wallet(id string) repo.Wallet {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.wallets[id]
}

func (m *memStore) lot(id string) auction.Lot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.lots[id]
}

func (m *memStore) bidsWithStatus(st auction.BidStatus) []auction.Bid {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []auction.Bid
	for _, b := range m.state.bids {
		if b.Status == st {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Amount < out[j].Amount })
	return out
}

func (m *memStore) blockedFor(lotID string) map[string]int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]int64{}
	for ref, r := range m.state.reservations {
		if r.status == repo.StatusBlocked && strings.HasPrefix(ref, "lot:"+lotID+":") {
			out[r.walletID] += r.amount
		}
	}
	return out
}

func (m *memStore) BidByCorrelationID(_ context.Context, id string) (auction.Bid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.state.bids[id]
	if !ok {
		return auction.Bid{}, auction.ErrBidNotFound
	}
	return b, nil
}

func (m *memStore) InsertBid(_ context.Context, b auction.Bid) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.state.bids[b.CorrelationID]; ok {
		return false, nil
	}
	m.state.bids[b.CorrelationID] = b
	return true, nil
}

func (m *memStore) WithTx(ctx context.Context, fn func(tx store.LotTx) error) error {
	if m.txErr != nil {
		return m.txErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{state: m.state.clone(), store: m}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.state = tx.state
	return nil
}

type memTx struct {
	state memState
	store *memStore
}

func (t *memTx) LockLot(_ context.Context, lotID string) (auction.Lot, error) {
	l, ok := t.state.lots[lotID]
	if !ok {
		return auction.Lot{}, auction.ErrLotNotFound
	}
	return l, nil
}

func (t *memTx) ApplyAcceptedBid(_ context.Context, b auction.Bid) error {
	if _, ok := t.state.bids[b.CorrelationID]; ok {
		return store.ErrDuplicateBid
	}
	for id, prev := range t.state.bids {
		if prev.LotID == b.LotID && prev.Status == auction.BidAccepted {
			prev.Status = auction.BidOutbid
			t.state.bids[id] = prev
		}
	}
	l := t.state.lots[b.LotID]
	l.CurrentBid = b.Amount
	l.CurrentWinnerID = b.CustomerID
	t.state.lots[b.LotID] = l

	b.Status = auction.BidAccepted
	t.state.bids[b.CorrelationID] = b
	t.store.lastBid = b
	return nil
}

func (t *memTx) Ledger() store.WalletLedger { return t }

func (t *memTx) WalletByCustomer(_ context.Context, customerID string) (repo.Wallet, error) {
	for _, w := range t.state.wallets {
		if w.CustomerID == customerID {
			return w, nil
		}
	}
	return repo.Wallet{}, repo.ErrNotFound
}

func (t *memTx) LockWallets(_ context.Context, ids ...string) error {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	t.store.locked = append(t.store.locked, sorted)
	return nil
}

func (t *memTx) GetAvailableBalance(_ context.Context, walletID string) (int64, error) {
	w, ok := t.state.wallets[walletID]
	if !ok {
		return 0, repo.ErrNotFound
	}
	return w.Available(), nil
}

func (t *memTx) Block(_ context.Context, walletID string, amount int64, ref string) error {
	if _, ok := t.state.reservations[ref]; ok {
		return nil
	}
	w := t.state.wallets[walletID]
	if w.Available() < amount {
		return repo.ErrInsufficientAvailable
	}
	w.BlockedBalance += amount
	t.state.wallets[walletID] = w
	t.state.reservations[ref] = memReservation{walletID: walletID, amount: amount, status: repo.StatusBlocked}
	return nil
}

func (t *memTx) Unblock(_ context.Context, walletID string, _ int64, ref string) error {
	r, ok := t.state.reservations[ref]
	if !ok || r.status != repo.StatusBlocked || r.walletID != walletID {
		return nil
	}
	w := t.state.wallets[walletID]
	w.BlockedBalance -= r.amount
	if w.BlockedBalance < 0 {
		w.BlockedBalance = 0
	}
	t.state.wallets[walletID] = w
	r.status = repo.StatusReleased
	t.state.reservations[ref] = r
	return nil
}

// recorder guarda as atualizações publicadas
type recorder struct {
	mu      sync.Mutex
	updates []events.AuctionUpdate
}

func (r *recorder) Publish(_ context.Context, u events.AuctionUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
	return nil
}

func (r *recorder) ofType(t events.UpdateType) []events.AuctionUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.AuctionUpdate
	for _, u := range r.updates {
		if u.EventType == t {
			out = append(out, u)
		}
	}
	return out
}

type memSnapshots struct {
	mu       sync.Mutex
	lots     map[string]auction.Lot
	balances map[string]int64
}

func newMemSnapshots() *memSnapshots {
	return &memSnapshots{lots: map[string]auction.Lot{}, balances: map[string]int64{}}
}

func (s *memSnapshots) SetLot(_ context.Context, l auction.Lot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lots[l.ID] = l
	return nil
}

func (s *memSnapshots) SetWalletBalance(_ context.Context, customerID string, available int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[customerID] = available
	return nil
}
