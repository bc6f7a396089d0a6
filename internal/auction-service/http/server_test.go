package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/auction-bidding-core/internal/auction"
	"github.com/radieske/auction-bidding-core/internal/auction-service/dto"
	"github.com/radieske/auction-bidding-core/internal/shared/cache"
)

type memRepo struct {
	auctions map[string]auction.Auction
	lots     []*auction.Lot
	bids     []auction.Bid
	seq      int

	bidsQuery struct{ limit, offset int }
}

func newMemRepo() *memRepo { return &memRepo{auctions: map[string]auction.Auction{}} }

func (m *memRepo) CreateAuction(_ context.Context, a *auction.Auction) error {
	m.seq++
	a.ID = fmt.Sprintf("a%d", m.seq)
	m.auctions[a.ID] = *a
	return nil
}

func (m *memRepo) GetAuction(_ context.Context, id string) (auction.Auction, error) {
	a, ok := m.auctions[id]
	if !ok {
		return auction.Auction{}, auction.ErrAuctionNotFound
	}
	return a, nil
}

func (m *memRepo) CreateLot(_ context.Context, l *auction.Lot) error {
	m.seq++
	l.ID = fmt.Sprintf("l%d", m.seq)
	l.Status = auction.LotPending
	l.Position = 1
	for _, o := range m.lots {
		if o.AuctionID == l.AuctionID && o.Position >= l.Position {
			l.Position = o.Position + 1
		}
	}
	cp := *l
	m.lots = append(m.lots, &cp)
	return nil
}

func (m *memRepo) GetLot(_ context.Context, id string) (auction.Lot, error) {
	for _, l := range m.lots {
		if l.ID == id {
			return *l, nil
		}
	}
	return auction.Lot{}, auction.ErrLotNotFound
}

func (m *memRepo) ListLotsByAuction(_ context.Context, auctionID string) ([]auction.Lot, error) {
	return m.filter(func(l *auction.Lot) bool { return l.AuctionID == auctionID }), nil
}

func (m *memRepo) ListActiveLotsByAuction(_ context.Context, auctionID string) ([]auction.Lot, error) {
	return m.filter(func(l *auction.Lot) bool { return l.AuctionID == auctionID && l.Status == auction.LotActive }), nil
}

func (m *memRepo) CancelLot(_ context.Context, lotID string) (bool, error) {
	for _, l := range m.lots {
		if l.ID == lotID && l.Status != auction.LotActive && l.Status != auction.LotCompleted && l.Status != auction.LotCancelled {
			l.Status = auction.LotCancelled
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepo) ListBidsForLot(_ context.Context, lotID string, status auction.BidStatus, limit, offset int) ([]auction.Bid, error) {
	m.bidsQuery.limit, m.bidsQuery.offset = limit, offset
	var out []auction.Bid
	for i := len(m.bids) - 1; i >= 0; i-- {
		if b := m.bids[i]; b.LotID == lotID && b.Status == status {
			out = append(out, b)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memRepo) filter(keep func(*auction.Lot) bool) []auction.Lot {
	var out []auction.Lot
	for _, l := range m.lots {
		if keep(l) {
			out = append(out, *l)
		}
	}
	return out
}

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*Server, *memRepo, *cache.Cache) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	repo := newMemRepo()
	c := cache.New(rdb, time.Minute)
	s := NewServer(zap.NewNop(), repo, c)
	s.now = func() time.Time { return now }
	return s, repo, c
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestCreateAuction(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		want       int
		wantCutoff int
	}{
		{name: "defaults cutoff", body: `{"title":"Spring","start_date":"2026-03-02T12:00:00Z"}`, want: http.StatusCreated, wantCutoff: 2},
		{name: "explicit cutoff", body: `{"title":"Spring","start_date":"2026-03-02T12:00:00Z","lot_registration_cutoff_hours":0}`, want: http.StatusCreated, wantCutoff: 0},
		{name: "missing title", body: `{"start_date":"2026-03-02T12:00:00Z"}`, want: http.StatusBadRequest},
		{name: "missing start date", body: `{"title":"Spring"}`, want: http.StatusBadRequest},
		{name: "bad json", body: `{`, want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, _ := newTestServer(t)
			rec := do(t, s, http.MethodPost, "/auctions", tt.body)
			require.Equal(t, tt.want, rec.Code)
			if tt.want != http.StatusCreated {
				return
			}
			a := decode[auction.Auction](t, rec)
			require.NotEmpty(t, a.ID)
			require.Equal(t, auction.AuctionDraft, a.Status)
			require.Equal(t, tt.wantCutoff, a.CutoffHours)

			rec = do(t, s, http.MethodGet, "/auctions/"+a.ID, "")
			require.Equal(t, http.StatusOK, rec.Code)
		})
	}
}

func TestCreateLot(t *testing.T) {
	s, repo, _ := newTestServer(t)
	repo.auctions["open"] = auction.Auction{ID: "open", Status: auction.AuctionDraft, StartDate: now.Add(24 * time.Hour), CutoffHours: 2}
	repo.auctions["late"] = auction.Auction{ID: "late", Status: auction.AuctionDraft, StartDate: now.Add(time.Hour), CutoffHours: 2}
	repo.auctions["live"] = auction.Auction{ID: "live", Status: auction.AuctionActive, StartDate: now.Add(-time.Hour)}

	rec := do(t, s, http.MethodPost, "/auctions/open/lots", `{"product_id":"p1","seller_id":"s1","starting_price":100}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	first := decode[auction.Lot](t, rec)
	require.Equal(t, int64(20), first.BidIncrement)
	require.Equal(t, 600, first.TimerDurationSeconds)
	require.Equal(t, 1, first.Position)
	require.Equal(t, auction.LotPending, first.Status)

	rec = do(t, s, http.MethodPost, "/auctions/open/lots", `{"product_id":"p2","seller_id":"s1","starting_price":99,"increment_percent":10,"timer_duration_seconds":60}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	second := decode[auction.Lot](t, rec)
	require.Equal(t, int64(10), second.BidIncrement) // 9.9 arredondado para cima
	require.Equal(t, 60, second.TimerDurationSeconds)
	require.Equal(t, 2, second.Position)

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"cutoff passed", "/auctions/late/lots", `{"product_id":"p","seller_id":"s","starting_price":100}`, http.StatusConflict},
		{"auction active", "/auctions/live/lots", `{"product_id":"p","seller_id":"s","starting_price":100}`, http.StatusConflict},
		{"unknown auction", "/auctions/nope/lots", `{"product_id":"p","seller_id":"s","starting_price":100}`, http.StatusNotFound},
		{"zero price", "/auctions/open/lots", `{"product_id":"p","seller_id":"s","starting_price":0}`, http.StatusBadRequest},
		{"missing seller", "/auctions/open/lots", `{"product_id":"p","starting_price":100}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, do(t, s, http.MethodPost, tt.path, tt.body).Code)
		})
	}

	rec = do(t, s, http.MethodGet, "/auctions/open/lots", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[[]auction.Lot](t, rec), 2)

	rec = do(t, s, http.MethodGet, "/auctions/live/lots", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `[]`, rec.Body.String())
}

func TestActiveLot(t *testing.T) {
	s, repo, _ := newTestServer(t)
	repo.auctions["a1"] = auction.Auction{ID: "a1", Status: auction.AuctionActive}
	repo.lots = []*auction.Lot{
		{ID: "l1", AuctionID: "a1", Position: 1, Status: auction.LotCompleted},
		{ID: "l2", AuctionID: "a1", Position: 2, Status: auction.LotActive},
	}

	rec := do(t, s, http.MethodGet, "/auctions/a1/active-lot", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "l2", decode[auction.Lot](t, rec).ID)

	repo.lots[1].Status = auction.LotCompleted
	require.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/auctions/a1/active-lot", "").Code)
}

func TestGetLot_PrefersCache(t *testing.T) {
	s, repo, c := newTestServer(t)
	ctx := context.Background()
	repo.lots = []*auction.Lot{{ID: "l1", AuctionID: "a1", Status: auction.LotActive, StartingPrice: 100, BidIncrement: 20}}

	// primeira leitura vem do banco e popula o cache
	rec := do(t, s, http.MethodGet, "/lots/l1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	_, ok, err := c.Lot(ctx, "l1")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, c.SetLot(ctx, auction.Lot{ID: "l1", AuctionID: "a1", Status: auction.LotActive, CurrentBid: 150, CurrentWinnerID: "y"}))
	rec = do(t, s, http.MethodGet, "/lots/l1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, int64(150), decode[auction.Lot](t, rec).CurrentBid)

	require.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/lots/missing", "").Code)
}

func TestListBids(t *testing.T) {
	s, repo, _ := newTestServer(t)
	repo.lots = []*auction.Lot{{ID: "l1", AuctionID: "a1", Status: auction.LotActive}}
	repo.bids = []auction.Bid{
		{ID: "b1", LotID: "l1", Amount: 120, Status: auction.BidAccepted},
		{ID: "b2", LotID: "l1", Amount: 130, Status: auction.BidRejected},
		{ID: "b3", LotID: "l1", Amount: 150, Status: auction.BidAccepted},
		{ID: "b4", LotID: "l1", Amount: 180, Status: auction.BidAccepted},
	}

	rec := do(t, s, http.MethodGet, "/lots/l1/bids?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[dto.BidsPage](t, rec)
	require.Equal(t, 2, page.Limit)
	require.Equal(t, []int64{180, 150}, []int64{page.Bids[0].Amount, page.Bids[1].Amount})

	rec = do(t, s, http.MethodGet, "/lots/l1/bids?offset=2&limit=2", "")
	page = decode[dto.BidsPage](t, rec)
	require.Len(t, page.Bids, 1)
	require.Equal(t, "b1", page.Bids[0].ID)

	rec = do(t, s, http.MethodGet, "/lots/l1/bids?offset=9", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, decode[dto.BidsPage](t, rec).Bids)

	do(t, s, http.MethodGet, "/lots/l1/bids?limit=5000", "")
	require.Equal(t, maxBidsPageLimit, repo.bidsQuery.limit)

	require.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/lots/l1/bids?limit=x", "").Code)
	require.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/lots/l1/bids?offset=-1", "").Code)
	require.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/lots/nope/bids", "").Code)
}

func TestCancelLot(t *testing.T) {
	s, repo, c := newTestServer(t)
	repo.lots = []*auction.Lot{
		{ID: "pending", AuctionID: "a1", Status: auction.LotPending},
		{ID: "active", AuctionID: "a1", Status: auction.LotActive},
		{ID: "completed", AuctionID: "a1", Status: auction.LotCompleted},
	}

	rec := do(t, s, http.MethodPost, "/lots/pending/cancel", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, auction.LotCancelled, decode[auction.Lot](t, rec).Status)

	cached, ok, err := c.Lot(context.Background(), "pending")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, auction.LotCancelled, cached.Status)

	require.Equal(t, http.StatusConflict, do(t, s, http.MethodPost, "/lots/active/cancel", "").Code)
	require.Equal(t, http.StatusConflict, do(t, s, http.MethodPost, "/lots/completed/cancel", "").Code)
	// já cancelado: o update condicional não afeta nenhuma linha
	require.Equal(t, http.StatusConflict, do(t, s, http.MethodPost, "/lots/pending/cancel", "").Code)
	require.Equal(t, http.StatusNotFound, do(t, s, http.MethodPost, "/lots/nope/cancel", "").Code)
}
