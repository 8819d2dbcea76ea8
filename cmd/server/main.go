package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	_ "github.com/lib/pq"

	"syscatalog/internal/audit"
	"syscatalog/internal/auth"
	"syscatalog/internal/catalog"
	"syscatalog/internal/health"
	"syscatalog/internal/platform/config"
	"syscatalog/internal/platform/httpserver"
	"syscatalog/internal/platform/logger"
	"syscatalog/internal/platform/metrics"
	platformredis "syscatalog/internal/platform/redis"
	"syscatalog/internal/ratelimit"
	"syscatalog/internal/store"
	httptransport "syscatalog/internal/transport/http"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx := context.Background()

	st, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		log.Error("store initialization failed", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	counters, closeCounters, err := newCounterStore(ctx, cfg)
	if err != nil {
		log.Error("counter store initialization failed", "error", err)
		os.Exit(1)
	}
	defer closeCounters()

	m := metrics.New()
	auditLog := audit.New(st, log)
	limiter := ratelimit.New(counters, ratelimit.Config{
		Enabled:     cfg.RateLimitEnabled,
		MaxRequests: cfg.RateLimitMax,
		Window:      cfg.RateLimitWindow,
		FailClosed:  cfg.RateLimitFailClosed,
	}, log)

	var verifier auth.Verifier
	if cfg.AuthMode == "local" {
		log.Warn("using local token verification, not suitable for production")
		verifier = auth.NewLocalVerifier(cfg.LocalSigningKey, cfg.ClientID, cfg.AllowedUsers, auditLog)
	} else {
		verifier = auth.NewTokenInfoVerifier(cfg.TokenInfoURL, cfg.ClientID, cfg.AllowedUsers, auditLog, log)
	}

	service := catalog.New(st, auditLog, log)
	reporter := health.New(st, cfg)
	handler := httptransport.New(cfg, service, verifier, limiter, reporter, auditLog, m, log)
	router := httptransport.NewRouter(handler, log)

	srv := httpserver.New(cfg.Addr, router)
	log.Info("starting system catalog API", "addr", cfg.Addr, "store", cfg.StoreBackend)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}

func newStore(ctx context.Context, cfg config.Config) (store.Store, func(), error) {
	switch cfg.StoreBackend {
	case "postgres":
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("ping postgres: %w", err)
		}
		st, err := store.NewPostgres(ctx, db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return st, func() { db.Close() }, nil
	case "memory":
		return store.NewMemory(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func newCounterStore(ctx context.Context, cfg config.Config) (ratelimit.CounterStore, func(), error) {
	if cfg.RedisURL == "" {
		return ratelimit.NewMemoryCounterStore(), func() {}, nil
	}
	client, err := platformredis.New(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return ratelimit.NewRedisCounterStore(client.Client), func() { client.Close() }, nil
}
