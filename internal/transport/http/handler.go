// Package httptransport is the thin HTTP layer over the catalog pipeline:
// size ceiling, parse, authenticate, rate-limit, sanitize, dispatch, audit.
// Every error raised inside the pipeline is converted into the error
// envelope; nothing propagates past the handler boundary.
package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"syscatalog/internal/auth"
	"syscatalog/internal/catalog"
	"syscatalog/internal/health"
	"syscatalog/internal/platform/config"
	"syscatalog/internal/platform/metrics"
	"syscatalog/internal/platform/middleware"
	"syscatalog/pkg/catalogerrors"
)

//go:generate mockgen -source=handler.go -destination=mocks/handler_mocks.go -package=mocks Service,RateLimiter

// Service defines the CRUD operations the handler dispatches to.
type Service interface {
	Get(ctx context.Context, tableName string, filters map[string]any) (*catalog.QueryResult, error)
	Create(ctx context.Context, tableName string, data map[string]any, actor string) (*catalog.MutationResult, error)
	Update(ctx context.Context, tableName string, data map[string]any, actor string) (*catalog.MutationResult, error)
	Delete(ctx context.Context, tableName string, data map[string]any, actor string) (*catalog.MutationResult, error)
}

// RateLimiter admits or refuses one call per authenticated identity.
type RateLimiter interface {
	Check(ctx context.Context, identity string) error
}

// HealthChecker produces the liveness/readiness snapshot.
type HealthChecker interface {
	Check(ctx context.Context) health.Snapshot
}

// AccessLog records API call outcomes. Satisfied by *audit.Logger.
type AccessLog interface {
	Access(ctx context.Context, email, action, status string, elapsed time.Duration)
}

type Handler struct {
	cfg      config.Config
	service  Service
	verifier auth.Verifier
	limiter  RateLimiter
	health   HealthChecker
	access   AccessLog
	metrics  *metrics.Metrics
	logger   *slog.Logger
	tables   map[string]struct{}
	clock    func() time.Time
}

type Option func(*Handler)

// WithClock sets the envelope timestamp source for testability.
func WithClock(clock func() time.Time) Option {
	return func(h *Handler) {
		if clock != nil {
			h.clock = clock
		}
	}
}

func New(
	cfg config.Config,
	service Service,
	verifier auth.Verifier,
	limiter RateLimiter,
	healthReporter HealthChecker,
	access AccessLog,
	m *metrics.Metrics,
	logger *slog.Logger,
	opts ...Option,
) *Handler {
	tables := make(map[string]struct{}, len(cfg.RequiredTables))
	for _, name := range cfg.RequiredTables {
		tables[strings.ToLower(name)] = struct{}{}
	}
	h := &Handler{
		cfg:      cfg,
		service:  service,
		verifier: verifier,
		limiter:  limiter,
		health:   healthReporter,
		access:   access,
		metrics:  m,
		logger:   logger,
		tables:   tables,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleAPI serves the POST envelope API.
func (h *Handler) HandleAPI(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	actor := ""

	result, req, identity, err := h.run(ctx, r)
	elapsed := time.Since(start)
	if identity != nil {
		actor = identity.Email
	}

	if err != nil {
		h.logger.WarnContext(ctx, "API request failed",
			"error", err,
			"method", req.Method,
			"sheet", req.Sheet,
			"request_id", middleware.GetRequestID(ctx),
		)
		h.access.Access(ctx, actor, "error", errorMessage(err), elapsed)
		h.metrics.ObserveRequest(strings.ToUpper(req.Method), "error", elapsed)
		h.writeJSON(w, ErrorResponse{
			Status:    "error",
			Message:   errorMessage(err),
			Timestamp: h.timestamp(),
			ErrorType: string(catalogerrors.CodeOf(err)),
		})
		return
	}

	if snap, ok := result.(health.Snapshot); ok {
		// Health checks skip the access log; they carry no identity.
		h.writeJSON(w, snap)
		return
	}

	action := strings.ToUpper(req.Method) + "_" + req.Sheet
	h.access.Access(ctx, actor, action, "success", elapsed)
	h.metrics.ObserveRequest(strings.ToUpper(req.Method), "success", elapsed)
	h.writeJSON(w, SuccessResponse{
		Status:         "success",
		Data:           result,
		Timestamp:      h.timestamp(),
		ProcessingTime: elapsed.Milliseconds(),
	})
}

// run executes the pipeline and returns the operation result. The request is
// returned even on failure so the caller can label logs and metrics.
func (h *Handler) run(ctx context.Context, r *http.Request) (any, Request, *auth.Identity, error) {
	var req Request

	body, err := io.ReadAll(io.LimitReader(r.Body, h.cfg.MaxPayloadBytes+1))
	if err != nil {
		return nil, req, nil, catalogerrors.Wrap(err, catalogerrors.CodeInvalidJSON, "unable to read request body")
	}
	if int64(len(body)) > h.cfg.MaxPayloadBytes {
		return nil, req, nil, catalogerrors.New(catalogerrors.CodePayloadTooLarge, "request payload too large")
	}
	if len(body) == 0 {
		return nil, req, nil, catalogerrors.New(catalogerrors.CodeInvalidJSON, "no request body provided")
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, req, nil, catalogerrors.New(catalogerrors.CodeInvalidJSON, "invalid JSON in request body")
	}

	if req.Action == "health" || strings.EqualFold(req.Method, "HEALTH") {
		return h.health.Check(ctx), req, nil, nil
	}

	identity, err := h.verifier.Verify(ctx, req.IDToken)
	if err != nil {
		h.metrics.IncAuthFailure()
		return nil, req, nil, err
	}

	if err := h.limiter.Check(ctx, identity.Email); err != nil {
		h.metrics.IncRateLimited()
		return nil, req, &identity, err
	}

	if req.Method == "" {
		return nil, req, &identity, catalogerrors.New(catalogerrors.CodeMissingField, "missing 'method' field")
	}
	if req.Sheet == "" {
		return nil, req, &identity, catalogerrors.New(catalogerrors.CodeMissingField, "missing 'sheet' field")
	}
	if _, ok := h.tables[strings.ToLower(req.Sheet)]; !ok {
		return nil, req, &identity, catalogerrors.Newf(catalogerrors.CodeUnknownTable, "invalid sheet name: %s", req.Sheet)
	}

	data := catalog.SanitizeRecord(req.Data)

	var result any
	switch strings.ToUpper(req.Method) {
	case http.MethodGet:
		result, err = h.service.Get(ctx, req.Sheet, data)
	case http.MethodPost:
		result, err = h.service.Create(ctx, req.Sheet, data, identity.Email)
	case http.MethodPut:
		result, err = h.service.Update(ctx, req.Sheet, data, identity.Email)
	case http.MethodDelete:
		result, err = h.service.Delete(ctx, req.Sheet, data, identity.Email)
	default:
		err = catalogerrors.Newf(catalogerrors.CodeValidationError, "unsupported HTTP method: %s", req.Method)
	}
	if err != nil {
		return nil, req, &identity, err
	}
	return result, req, &identity, nil
}

// HandleInfo serves GET: the health snapshot when requested via query
// parameter, a static readiness document otherwise.
func (h *Handler) HandleInfo(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("action") == "health" {
		h.writeJSON(w, h.health.Check(r.Context()))
		return
	}
	h.writeJSON(w, ReadyResponse{
		Status:    "ready",
		Message:   "System Catalog API is running",
		Version:   config.Version,
		Timestamp: h.timestamp(),
		Endpoints: map[string]string{
			"health": "GET /?action=health",
			"api":    "POST / with JSON body",
		},
	})
}

// HandleOptions answers CORS preflight with a bare plaintext OK.
func (h *Handler) HandleOptions(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) timestamp() string {
	return h.clock().UTC().Format(time.RFC3339)
}

// errorMessage prefers the catalog error's message over the wrapped cause so
// internals never leak into the envelope.
func errorMessage(err error) string {
	var ce *catalogerrors.Error
	if errors.As(err, &ce) {
		return ce.Message
	}
	return err.Error()
}
