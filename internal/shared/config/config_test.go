package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SERVICE_NAME", "bid-decider-worker")

	cfg := Load()
	require.Equal(t, "auction.bids", cfg.TopicBids)
	require.Equal(t, "auction.updates", cfg.TopicUpdates)
	require.Equal(t, 10*time.Second, cfg.LeaseTTL)
	require.Equal(t, 5*time.Second, cfg.LeaseRenewInterval)
	require.Equal(t, int64(20), cfg.ReservationPercent)
	require.Equal(t, "9097", cfg.MetricsPort)
	require.Empty(t, cfg.HTTPPort)
	require.NotEmpty(t, cfg.InstanceID)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SERVICE_NAME", "lot-timer-worker")
	t.Setenv("LEASE_TTL", "30")
	t.Setenv("LEASE_RENEW_INTERVAL", "2s")
	t.Setenv("RESERVATION_PERCENT", "35")
	t.Setenv("ALLOW_SELF_RAISE", "true")
	t.Setenv("INSTANCE_ID", "timer-a")
	t.Setenv("KAFKA_GROUP_PREFIX", "stage")

	cfg := Load()
	require.Equal(t, 30*time.Second, cfg.LeaseTTL)
	require.Equal(t, 2*time.Second, cfg.LeaseRenewInterval)
	require.Equal(t, int64(35), cfg.ReservationPercent)
	require.True(t, cfg.AllowSelfRaise)
	require.Equal(t, "timer-a", cfg.InstanceID)
	require.Equal(t, "stage-lot-timer", cfg.GroupID("lot-timer"))
	require.Equal(t, "8084", cfg.HTTPPort)
}

func TestGetDuration_InvalidFallsBack(t *testing.T) {
	t.Setenv("X_DURATION", "soon")
	require.Equal(t, time.Minute, getDuration("X_DURATION", time.Minute))
}
