package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/confessions/internal/logging"
	"github.com/dmitrijs2005/confessions/internal/server/clock"
	"github.com/dmitrijs2005/confessions/internal/server/config"
	"github.com/dmitrijs2005/confessions/internal/server/models"
	"github.com/dmitrijs2005/confessions/internal/server/repositories/confessions"
	"github.com/dmitrijs2005/confessions/internal/server/repositories/memstore"
	"github.com/dmitrijs2005/confessions/internal/server/repositories/repomanager"
)

type nopLogger struct{}

func (n nopLogger) Debug(context.Context, string, ...any) {}
func (n nopLogger) Info(context.Context, string, ...any)  {}
func (n nopLogger) Warn(context.Context, string, ...any)  {}
func (n nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger            { return n }

// recordingLogger keeps error-level entries so tests can check alerts.
type recordingLogger struct {
	nopLogger
	errors *[][]any
}

func (r recordingLogger) Error(_ context.Context, msg string, args ...any) {
	*r.errors = append(*r.errors, append([]any{msg}, args...))
}
func (r recordingLogger) With(...any) logging.Logger { return r }

var t0 = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.StorageBackend = config.StorageBackendMemory
	cfg.WindowJitter = 0
	return cfg
}

func identityFor(b byte) models.IdentityID {
	var id models.IdentityID
	for i := range id {
		id[i] = b
	}
	return id
}

type fixture struct {
	store     *memstore.Store
	clock     *clock.Manual
	admission *AdmissionService
	feed      *FeedService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testConfig()
	store := memstore.New()
	clk := clock.NewManual(t0)
	return &fixture{
		store:     store,
		clock:     clk,
		admission: NewAdmissionService(store, nil, clk, nopLogger{}, cfg),
		feed:      NewFeedService(store, clk, nopLogger{}, cfg),
	}
}

// failingManager fails every storage call with err.
type failingManager struct {
	err error
}

func (f failingManager) RunMigrations(context.Context) error { return nil }
func (f failingManager) Close() error                        { return nil }
func (f failingManager) Confessions() confessions.Repository {
	return failingConfessions{err: f.err}
}
func (f failingManager) WithinTx(context.Context, func(context.Context, repomanager.Repositories) error) error {
	return f.err
}

type failingConfessions struct {
	err error
}

func (f failingConfessions) Create(context.Context, *models.Confession) error { return f.err }
func (f failingConfessions) Get(context.Context, string) (*models.Confession, error) {
	return nil, f.err
}
func (f failingConfessions) IncrementViews(context.Context, string) (int64, error) { return 0, f.err }
func (f failingConfessions) ListRecent(context.Context, *models.FeedPosition, int) ([]*models.Confession, error) {
	return nil, f.err
}
func (f failingConfessions) ListSince(context.Context, time.Time, time.Time, int) ([]*models.Confession, error) {
	return nil, f.err
}
func (f failingConfessions) ListMostViewed(context.Context, time.Time, int) ([]*models.Confession, error) {
	return nil, f.err
}
