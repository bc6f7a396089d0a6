package timer

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/radieske/auction-bidding-core/internal/auction"
	"github.com/radieske/auction-bidding-core/pkg/contracts/events"
)

type memStore struct {
	mu       sync.Mutex
	auctions map[string]auction.Auction
	lots     map[string]auction.Lot
}

func newMemStore() *memStore {
	return &memStore{auctions: map[string]auction.Auction{}, lots: map[string]auction.Lot{}}
}

func (m *memStore) put(l auction.Lot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lots[l.ID] = l
}

func (m *memStore) lot(id string) auction.Lot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lots[id]
}

func (m *memStore) auctionByID(id string) auction.Auction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.auctions[id]
}

func (m *memStore) GetAuction(_ context.Context, id string) (auction.Auction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.auctions[id]
	if !ok {
		return auction.Auction{}, auction.ErrAuctionNotFound
	}
	return a, nil
}

func (m *memStore) SetAuctionStatus(_ context.Context, id string, status auction.AuctionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.auctions[id]
	if !ok {
		return auction.ErrAuctionNotFound
	}
	a.Status = status
	m.auctions[id] = a
	return nil
}

func (m *memStore) GetLot(_ context.Context, id string) (auction.Lot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lots[id]
	if !ok {
		return auction.Lot{}, auction.ErrLotNotFound
	}
	return l, nil
}

func (m *memStore) filter(keep func(auction.Lot) bool) []auction.Lot {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []auction.Lot
	for _, l := range m.lots {
		if keep(l) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func (m *memStore) ListActiveLots(context.Context) ([]auction.Lot, error) {
	return m.filter(func(l auction.Lot) bool { return l.Status == auction.LotActive }), nil
}

func (m *memStore) ListActiveLotsByAuction(_ context.Context, auctionID string) ([]auction.Lot, error) {
	return m.filter(func(l auction.Lot) bool { return l.AuctionID == auctionID && l.Status == auction.LotActive }), nil
}

func (m *memStore) ListPendingLotsOrderedByPosition(_ context.Context, auctionID string) ([]auction.Lot, error) {
	return m.filter(func(l auction.Lot) bool { return l.AuctionID == auctionID && l.Status == auction.LotPending }), nil
}

func (m *memStore) ActivateLot(_ context.Context, lotID string, startedAt, expiresAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lots[lotID]
	if !ok || l.Status != auction.LotPending {
		return false, nil
	}
	l.Status = auction.LotActive
	l.StartedAt = &startedAt
	l.TimerExpiresAt = &expiresAt
	m.lots[lotID] = l
	return true, nil
}

func (m *memStore) EndLot(_ context.Context, lotID string, status auction.LotStatus, endedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lots[lotID]
	if !ok || l.Status != auction.LotActive {
		return false, nil
	}
	l.Status = status
	l.EndedAt = &endedAt
	l.TimerExpiresAt = nil
	m.lots[lotID] = l
	return true, nil
}

func (m *memStore) ResetLotTimer(_ context.Context, lotID string, expiresAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lots[lotID]
	if !ok || l.Status != auction.LotActive {
		return false, nil
	}
	l.TimerExpiresAt = &expiresAt
	m.lots[lotID] = l
	return true, nil
}

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
	mu   sync.Mutex
	lots map[string]auction.Lot
}

func (s *memSnapshots) SetLot(_ context.Context, l auction.Lot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lots[l.ID] = l
	return nil
}

func (s *memSnapshots) get(id string) auction.Lot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lots[id]
}

// clock é um relógio manual para os testes
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}
