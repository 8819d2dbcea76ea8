package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"syscatalog/internal/platform/config"
	"syscatalog/internal/store"
)

var healthNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func testConfig() config.Config {
	return config.Config{
		AllowedUsers:     []string{"ops@example.com", "dev@example.com"},
		RateLimitEnabled: true,
		RateLimitMax:     30,
		RateLimitWindow:  time.Minute,
		MaxPayloadBytes:  1 << 20,
		RequiredTables:   []string{"systems", "documents", "requirements"},
	}
}

func newReporter(st store.Store, cfg config.Config) *Reporter {
	return New(st, cfg, WithClock(func() time.Time { return healthNow }))
}

func seedTables(t *testing.T, st store.Store, names ...string) {
	t.Helper()
	for _, name := range names {
		_, err := st.Table(context.Background(), name)
		require.NoError(t, err)
	}
}

func TestCheckHealthy(t *testing.T) {
	st := store.NewMemory()
	seedTables(t, st, "systems", "documents", "requirements")
	snap := newReporter(st, testConfig()).Check(context.Background())

	assert.Equal(t, StatusHealthy, snap.Status)
	assert.Equal(t, "2026-03-14T09:30:00Z", snap.Timestamp)
	assert.Equal(t, config.Version, snap.Version)
	assert.Empty(t, snap.Error)
	assert.True(t, snap.Database.Connected)
	assert.ElementsMatch(t, []string{"systems", "documents", "requirements"}, snap.Database.Sheets)
	assert.Empty(t, snap.Database.MissingSheets)
	assert.True(t, snap.Security.AuthRequired)
	assert.True(t, snap.Security.RateLimiting)
	assert.Equal(t, 2, snap.Security.AllowedUsers)
	assert.Equal(t, int64(1<<20), snap.Performance.MaxPayloadSize)
	assert.Equal(t, int64(60000), snap.Performance.RateLimitWindowMs)
	assert.Equal(t, 30, snap.Performance.RateLimitMax)
}

func TestCheckDegradedOnMissingTables(t *testing.T) {
	st := store.NewMemory()
	seedTables(t, st, "systems")
	snap := newReporter(st, testConfig()).Check(context.Background())

	assert.Equal(t, StatusDegraded, snap.Status)
	assert.True(t, snap.Database.Connected)
	assert.ElementsMatch(t, []string{"documents", "requirements"}, snap.Database.MissingSheets)
}

func TestCheckTableMatchIsCaseInsensitive(t *testing.T) {
	st := store.NewMemory()
	seedTables(t, st, "Systems", "DOCUMENTS", "requirements")
	snap := newReporter(st, testConfig()).Check(context.Background())

	assert.Equal(t, StatusHealthy, snap.Status)
}

type downStore struct{}

func (downStore) ListTables(context.Context) ([]string, error) {
	return nil, errors.New("connection refused")
}
func (downStore) Table(context.Context, string) (store.Table, error) {
	return nil, errors.New("connection refused")
}
func (downStore) Ping(context.Context) error { return errors.New("connection refused") }

func TestCheckUnhealthyOnStoreFailure(t *testing.T) {
	snap := newReporter(downStore{}, testConfig()).Check(context.Background())

	assert.Equal(t, StatusUnhealthy, snap.Status)
	assert.Equal(t, "connection refused", snap.Error)
	assert.False(t, snap.Database.Connected)
}
