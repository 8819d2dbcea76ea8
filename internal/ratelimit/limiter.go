// Package ratelimit implements a fixed-window request limiter. Counters live
// in a TTL-expiring cache shared across invocations; the read-then-write is
// deliberately non-atomic (a client can marginally exceed its limit under
// true concurrency, accepted alongside the fail-open policy).
package ratelimit

import (
	"context"
	"log/slog"
	"math"
	"strconv"
	"time"

	"syscatalog/pkg/catalogerrors"
)

// CounterStore is a TTL key-value cache for limiter state.
type CounterStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string, ttl time.Duration) error
}

// Config carries the limiter parameters. FailClosed selects the policy for
// counter-store outages: by default the limiter fails open so a degraded
// cache never denies legitimate traffic.
type Config struct {
	Enabled     bool
	MaxRequests int
	Window      time.Duration
	FailClosed  bool
}

type Limiter struct {
	store  CounterStore
	cfg    Config
	logger *slog.Logger
	clock  func() time.Time
}

type Option func(*Limiter)

// WithClock sets the window time source for testability.
func WithClock(clock func() time.Time) Option {
	return func(l *Limiter) {
		if clock != nil {
			l.clock = clock
		}
	}
}

func New(store CounterStore, cfg Config, logger *slog.Logger, opts ...Option) *Limiter {
	l := &Limiter{store: store, cfg: cfg, logger: logger, clock: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check admits or refuses one request for the given identity. A refusal is a
// rate_limit_exceeded error carrying the seconds until the window resets.
func (l *Limiter) Check(ctx context.Context, identity string) error {
	if !l.cfg.Enabled {
		return nil
	}

	countKey := "rl:" + identity
	windowKey := "rl:window:" + identity
	now := l.clock()
	ttl := l.cfg.Window + time.Second

	count, err := l.readInt(ctx, countKey)
	if err != nil {
		return l.storeFailure(ctx, err)
	}
	windowStart, err := l.readInt(ctx, windowKey)
	if err != nil {
		return l.storeFailure(ctx, err)
	}

	elapsed := now.Sub(time.UnixMilli(windowStart))
	if elapsed > l.cfg.Window {
		// New window.
		if err := l.store.Put(ctx, countKey, "1", ttl); err != nil {
			return l.storeFailure(ctx, err)
		}
		if err := l.store.Put(ctx, windowKey, strconv.FormatInt(now.UnixMilli(), 10), ttl); err != nil {
			return l.storeFailure(ctx, err)
		}
		return nil
	}

	if count >= int64(l.cfg.MaxRequests) {
		remaining := int(math.Ceil((l.cfg.Window - elapsed).Seconds()))
		if remaining < 1 {
			remaining = 1
		}
		return catalogerrors.Newf(catalogerrors.CodeRateLimitExceeded,
			"rate limit exceeded, try again in %d seconds", remaining)
	}

	if err := l.store.Put(ctx, countKey, strconv.FormatInt(count+1, 10), ttl); err != nil {
		return l.storeFailure(ctx, err)
	}
	return nil
}

func (l *Limiter) readInt(ctx context.Context, key string) (int64, error) {
	raw, ok, err := l.store.Get(ctx, key)
	if err != nil || !ok {
		return 0, err
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		// A corrupt counter resets the window rather than wedging the client.
		return 0, nil
	}
	return n, nil
}

func (l *Limiter) storeFailure(ctx context.Context, err error) error {
	if l.cfg.FailClosed {
		l.logger.ErrorContext(ctx, "rate limiter store unavailable, refusing request", "error", err)
		return catalogerrors.Wrap(err, catalogerrors.CodeRateLimitExceeded, "rate limiter unavailable")
	}
	l.logger.WarnContext(ctx, "rate limiter store unavailable, allowing request", "error", err)
	return nil
}
