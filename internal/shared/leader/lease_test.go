package leader

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestLease(t *testing.T) (*Lease, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewLease(rdb), mr
}

func TestLease_MutualExclusion(t *testing.T) {
	lease, mr := newTestLease(t)
	ctx := context.Background()
	ttl := 10 * time.Second

	ok, err := lease.TryAcquireOrRenew(ctx, "leader:bid-decider", "a", ttl)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = lease.TryAcquireOrRenew(ctx, "leader:bid-decider", "b", ttl)
	require.NoError(t, err)
	require.False(t, ok)

	// renewal by the holder keeps it
	ok, err = lease.TryAcquireOrRenew(ctx, "leader:bid-decider", "a", ttl)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, ttl, mr.TTL("leader:bid-decider"))

	// the holder stops renewing; after the TTL the standby takes over
	mr.FastForward(ttl + time.Millisecond)
	ok, err = lease.TryAcquireOrRenew(ctx, "leader:bid-decider", "b", ttl)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = lease.TryAcquireOrRenew(ctx, "leader:bid-decider", "a", ttl)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLease_ConcurrentRenewals(t *testing.T) {
	lease, _ := newTestLease(t)
	ctx := context.Background()

	var mu sync.Mutex
	winners := map[string]int{}
	var wg sync.WaitGroup
	for _, holder := range []string{"a", "b"} {
		wg.Add(1)
		go func(holder string) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				ok, err := lease.TryAcquireOrRenew(ctx, "leader:lot-timer", holder, time.Minute)
				assert.NoError(t, err)
				if ok {
					mu.Lock()
					winners[holder]++
					mu.Unlock()
				}
			}
		}(holder)
	}
	wg.Wait()

	require.Len(t, winners, 1)
}

func TestLease_ReleaseOnlyByHolder(t *testing.T) {
	lease, mr := newTestLease(t)
	ctx := context.Background()

	_, err := lease.TryAcquireOrRenew(ctx, "leader:x", "a", time.Minute)
	require.NoError(t, err)

	require.NoError(t, lease.Release(ctx, "leader:x", "b"))
	require.True(t, mr.Exists("leader:x"))

	require.NoError(t, lease.Release(ctx, "leader:x", "a"))
	require.False(t, mr.Exists("leader:x"))
}

func TestElector_FailoverOnShutdown(t *testing.T) {
	lease, _ := newTestLease(t)
	cfg := func(holder string) Config {
		return Config{Role: "bid-decider", Key: "leader:bid-decider", HolderID: holder, TTL: time.Minute, RenewInterval: 20 * time.Millisecond}
	}

	a := NewElector(cfg("a"), lease, zap.NewNop())
	b := NewElector(cfg("b"), lease, zap.NewNop())

	actx, stopA := context.WithCancel(context.Background())
	bctx, stopB := context.WithCancel(context.Background())
	defer stopB()

	aDone := make(chan struct{})
	go func() { _ = a.Run(actx); close(aDone) }()
	require.Eventually(t, a.IsLeader, time.Second, 5*time.Millisecond)

	go func() { _ = b.Run(bctx) }()

	term, err := a.AwaitTerm(context.Background())
	require.NoError(t, err)
	time.Sleep(60 * time.Millisecond)
	require.False(t, b.IsLeader())

	stopA()
	<-aDone
	require.Error(t, term.Err())
	require.False(t, a.IsLeader())

	require.Eventually(t, b.IsLeader, time.Second, 5*time.Millisecond)
}

func TestElector_AwaitTermHonorsContext(t *testing.T) {
	lease, _ := newTestLease(t)
	e := NewElector(Config{Key: "leader:x", HolderID: "a", TTL: time.Second, RenewInterval: time.Second}, lease, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := e.AwaitTerm(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
