package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/auction-bidding-core/internal/auction"
)

type Options struct {
	Addr     string
	Password string
	DB       int
}

func ConnectRedis(opts Options) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}

	return rdb, nil
}

func LotKey(lotID string) string              { return "lot:" + lotID }
func WalletBalanceKey(customerID string) string { return "wallet_balance:" + customerID }
func LeaderKey(role string) string             { return "leader:" + role }

// Cache holds near real-time snapshots. It is never authoritative: readers
// must tolerate stale or missing entries.
type Cache struct {
	R   redis.Cmdable
	TTL time.Duration
}

func New(r redis.Cmdable, ttl time.Duration) *Cache { return &Cache{R: r, TTL: ttl} }

// GetJSON decodes key into dst and reports whether the key existed.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	b, err := c.R.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(b, dst)
}

// SetJSON stores v under key; ttl 0 keeps the key until overwritten.
func (c *Cache) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.R.Set(ctx, key, b, ttl).Err()
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	return c.R.Del(ctx, keys...).Err()
}

// Lot returns the cached snapshot of a lot.
func (c *Cache) Lot(ctx context.Context, lotID string) (auction.Lot, bool, error) {
	var l auction.Lot
	ok, err := c.GetJSON(ctx, LotKey(lotID), &l)
	return l, ok, err
}

func (c *Cache) SetLot(ctx context.Context, l auction.Lot) error {
	return c.SetJSON(ctx, LotKey(l.ID), l, c.TTL)
}

// WalletBalance returns the cached available balance of a customer.
func (c *Cache) WalletBalance(ctx context.Context, customerID string) (int64, bool, error) {
	s, err := c.R.Get(ctx, WalletBalanceKey(customerID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

func (c *Cache) SetWalletBalance(ctx context.Context, customerID string, available int64) error {
	return c.R.Set(ctx, WalletBalanceKey(customerID), strconv.FormatInt(available, 10), c.TTL).Err()
}
