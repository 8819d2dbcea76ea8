// Package health reports a read-only liveness/readiness snapshot. It never
// mutates state and requires no credentials.
package health

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"syscatalog/internal/platform/config"
	"syscatalog/internal/store"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

type Snapshot struct {
	Status      string      `json:"status"`
	Timestamp   string      `json:"timestamp"`
	Version     string      `json:"version"`
	Error       string      `json:"error,omitempty"`
	Database    Database    `json:"database"`
	Security    Security    `json:"security"`
	Performance Performance `json:"performance"`
}

type Database struct {
	Connected     bool     `json:"connected"`
	Sheets        []string `json:"sheets"`
	MissingSheets []string `json:"missingSheets"`
}

type Security struct {
	AuthRequired bool `json:"authRequired"`
	RateLimiting bool `json:"rateLimiting"`
	AllowedUsers int  `json:"allowedUsers"`
}

type Performance struct {
	MaxPayloadSize    int64 `json:"maxPayloadSize"`
	RateLimitWindowMs int64 `json:"rateLimitWindowMs"`
	RateLimitMax      int   `json:"rateLimitMax"`
}

type Reporter struct {
	store store.Store
	cfg   config.Config
	clock func() time.Time
}

type Option func(*Reporter)

func WithClock(clock func() time.Time) Option {
	return func(r *Reporter) {
		if clock != nil {
			r.clock = clock
		}
	}
}

func New(st store.Store, cfg config.Config, opts ...Option) *Reporter {
	r := &Reporter{store: st, cfg: cfg, clock: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Check probes the store and compares available tables against the required
// set: healthy when none are missing, degraded otherwise, unhealthy when the
// store is unreachable.
func (r *Reporter) Check(ctx context.Context) Snapshot {
	snap := Snapshot{
		Timestamp: r.clock().UTC().Format(time.RFC3339),
		Version:   config.Version,
		Security: Security{
			AuthRequired: true,
			RateLimiting: r.cfg.RateLimitEnabled,
			AllowedUsers: len(r.cfg.AllowedUsers),
		},
		Performance: Performance{
			MaxPayloadSize:    r.cfg.MaxPayloadBytes,
			RateLimitWindowMs: r.cfg.RateLimitWindow.Milliseconds(),
			RateLimitMax:      r.cfg.RateLimitMax,
		},
	}

	var tables []string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.store.Ping(gctx) })
	g.Go(func() error {
		var err error
		tables, err = r.store.ListTables(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		snap.Status = StatusUnhealthy
		snap.Error = err.Error()
		return snap
	}

	present := make(map[string]struct{}, len(tables))
	for _, name := range tables {
		present[strings.ToLower(name)] = struct{}{}
	}
	missing := []string{}
	for _, required := range r.cfg.RequiredTables {
		if _, ok := present[strings.ToLower(required)]; !ok {
			missing = append(missing, required)
		}
	}

	snap.Database = Database{Connected: true, Sheets: tables, MissingSheets: missing}
	if len(missing) == 0 {
		snap.Status = StatusHealthy
	} else {
		snap.Status = StatusDegraded
	}
	return snap
}
