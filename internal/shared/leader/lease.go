package leader

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Set the key when it is free or already ours, refreshing its TTL either way.
var acquireScript = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
if current == false or current == ARGV[1] then
	redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
	return 1
end
return 0
`)

// Delete the key only while we still hold it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lease is a TTL bound ownership record in Redis.
type Lease struct {
	R redis.Scripter
}

func NewLease(r redis.Scripter) *Lease { return &Lease{R: r} }

// TryAcquireOrRenew reports whether holderID owns key after the call.
func (l *Lease) TryAcquireOrRenew(ctx context.Context, key, holderID string, ttl time.Duration) (bool, error) {
	n, err := acquireScript.Run(ctx, l.R, []string{key}, holderID, ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Release gives the lease up early so a standby does not wait for the TTL.
func (l *Lease) Release(ctx context.Context, key, holderID string) error {
	return releaseScript.Run(ctx, l.R, []string{key}, holderID).Err()
}
