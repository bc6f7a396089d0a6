package leader

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config identifies one role's lease and its timing.
type Config struct {
	Role          string // "bid-decider", "lot-timer"
	Key           string // "leader:<role>"
	HolderID      string
	TTL           time.Duration
	RenewInterval time.Duration
}

// Acquirer is the lease operation the elector drives.
type Acquirer interface {
	TryAcquireOrRenew(ctx context.Context, key, holderID string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, holderID string) error
}

// Elector renews a lease on a fixed interval and tracks the local view of
// leadership. Every won lease opens a term whose context is cancelled once the
// lease is lost.
type Elector struct {
	cfg   Config
	lease Acquirer
	log   *zap.Logger

	// OnTransition is called after every change of leadership (metrics).
	OnTransition func(isLeader bool)

	mu         sync.Mutex
	base       context.Context
	leading    bool
	term       context.Context
	cancelTerm context.CancelFunc
	changed    chan struct{}
}

func NewElector(cfg Config, lease Acquirer, log *zap.Logger) *Elector {
	return &Elector{
		cfg:     cfg,
		lease:   lease,
		log:     log.With(zap.String("role", cfg.Role), zap.String("holder", cfg.HolderID)),
		changed: make(chan struct{}),
	}
}

// Run checks the lease immediately and then every RenewInterval until ctx is done.
// On exit it steps down and releases the lease if held.
func (e *Elector) Run(ctx context.Context) error {
	e.mu.Lock()
	e.base = ctx
	e.mu.Unlock()

	e.check(ctx)

	ticker := time.NewTicker(e.cfg.RenewInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			wasLeader := e.IsLeader()
			e.set(false)
			if wasLeader {
				rctx, cancel := context.WithTimeout(context.Background(), time.Second)
				if err := e.lease.Release(rctx, e.cfg.Key, e.cfg.HolderID); err != nil {
					e.log.Warn("lease release failed", zap.Error(err))
				}
				cancel()
			}
			return ctx.Err()
		case <-ticker.C:
			e.check(ctx)
		}
	}
}

func (e *Elector) check(ctx context.Context) {
	cctx, cancel := context.WithTimeout(ctx, e.cfg.RenewInterval)
	defer cancel()

	ok, err := e.lease.TryAcquireOrRenew(cctx, e.cfg.Key, e.cfg.HolderID, e.cfg.TTL)
	if err != nil {
		// without a confirmed renewal we cannot assume the lease is still ours
		if ctx.Err() == nil {
			e.log.Warn("lease renewal failed", zap.Error(err))
		}
		ok = false
	}
	e.set(ok)
}

func (e *Elector) set(leading bool) {
	e.mu.Lock()
	if leading == e.leading {
		e.mu.Unlock()
		return
	}
	e.leading = leading
	if leading {
		base := e.base
		if base == nil {
			base = context.Background()
		}
		e.term, e.cancelTerm = context.WithCancel(base)
	} else if e.cancelTerm != nil {
		e.cancelTerm()
		e.term, e.cancelTerm = nil, nil
	}
	close(e.changed)
	e.changed = make(chan struct{})
	e.mu.Unlock()

	if leading {
		e.log.Info("became leader")
	} else {
		e.log.Info("lost leadership")
	}
	if e.OnTransition != nil {
		e.OnTransition(leading)
	}
}

func (e *Elector) IsLeader() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.leading
}

// AwaitTerm blocks until this instance leads and returns the term context.
func (e *Elector) AwaitTerm(ctx context.Context) (context.Context, error) {
	for {
		e.mu.Lock()
		if e.leading {
			term := e.term
			e.mu.Unlock()
			return term, nil
		}
		changed := e.changed
		e.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-changed:
		}
	}
}
