// Package audit writes the append-only trail tables. Log writes are
// best-effort: a failed audit append is reported but never fails the request
// that triggered it.
package audit

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"syscatalog/internal/store"
)

type Logger struct {
	store store.Store
	log   *slog.Logger
	clock func() time.Time
}

type Option func(*Logger)

// WithClock sets the timestamp source for testability.
func WithClock(clock func() time.Time) Option {
	return func(l *Logger) {
		if clock != nil {
			l.clock = clock
		}
	}
}

func New(st store.Store, log *slog.Logger, opts ...Option) *Logger {
	l := &Logger{store: st, log: log, clock: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Access records one API call outcome in the access log.
func (l *Logger) Access(ctx context.Context, email, action, status string, elapsed time.Duration) {
	l.append(ctx, store.TableAccessLog, []string{
		l.timestamp(),
		orUnknown(email),
		action,
		status,
		strconv.FormatInt(elapsed.Milliseconds(), 10),
	})
}

// Deletion records one physical record removal, cascaded removals included.
func (l *Logger) Deletion(ctx context.Context, email, tableName, recordID string) {
	l.append(ctx, store.TableDeletionLog, []string{
		l.timestamp(),
		orUnknown(email),
		tableName,
		recordID,
	})
}

// Auth records one authentication attempt outcome.
func (l *Logger) Auth(ctx context.Context, email, action, status string) {
	l.append(ctx, store.TableAuthLog, []string{
		l.timestamp(),
		orUnknown(email),
		action,
		status,
	})
}

func (l *Logger) append(ctx context.Context, tableName string, row []string) {
	tbl, err := l.store.Table(ctx, tableName)
	if err == nil {
		err = tbl.Append(ctx, row)
	}
	if err != nil {
		l.log.WarnContext(ctx, "audit log write failed",
			slog.String("table", tableName), slog.Any("error", err))
	}
}

func (l *Logger) timestamp() string {
	return l.clock().UTC().Format(time.RFC3339)
}

func orUnknown(email string) string {
	if email == "" {
		return "unknown"
	}
	return email
}
