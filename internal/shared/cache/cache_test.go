package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/radieske/auction-bidding-core/internal/auction"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, time.Minute), mr
}

func TestCache_LotSnapshot(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	_, ok, err := c.Lot(ctx, "l1")
	require.NoError(t, err)
	require.False(t, ok)

	lot := auction.Lot{ID: "l1", AuctionID: "a1", Status: auction.LotActive, StartingPrice: 100, BidIncrement: 20}
	require.NoError(t, c.SetLot(ctx, lot))
	require.True(t, mr.Exists("lot:l1"))
	require.Equal(t, time.Minute, mr.TTL("lot:l1"))

	got, ok, err := c.Lot(ctx, "l1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, lot.ID, got.ID)
	require.Equal(t, int64(120), got.MinimumBid())
}

func TestCache_WalletBalance(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetWalletBalance(ctx, "x", 500))
	bal, ok, err := c.WalletBalance(ctx, "x")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(500), bal)

	require.NoError(t, c.Delete(ctx, WalletBalanceKey("x")))
	_, ok, err = c.WalletBalance(ctx, "x")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestKeys(t *testing.T) {
	require.Equal(t, "lot:1", LotKey("1"))
	require.Equal(t, "wallet_balance:c", WalletBalanceKey("c"))
	require.Equal(t, "leader:bid-decider", LeaderKey("bid-decider"))
}
