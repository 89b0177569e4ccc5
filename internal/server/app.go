// Package server assembles the confessions server: it selects the storage
// backend, runs migrations, builds the services and runs the gRPC and HTTP
// endpoints until a signal arrives.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/confessions/internal/logging"
	"github.com/dmitrijs2005/confessions/internal/server/clock"
	"github.com/dmitrijs2005/confessions/internal/server/config"
	"github.com/dmitrijs2005/confessions/internal/server/geo"
	"github.com/dmitrijs2005/confessions/internal/server/httpapi"
	"github.com/dmitrijs2005/confessions/internal/server/identity"
	"github.com/dmitrijs2005/confessions/internal/server/repositories/memstore"
	"github.com/dmitrijs2005/confessions/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/confessions/internal/server/services"

	gs "github.com/dmitrijs2005/confessions/internal/server/grpc"
)

type App struct {
	config           *config.Config
	logger           logging.Logger
	repomanager      repomanager.RepositoryManager
	identityService  *services.IdentityService
	admissionService *services.AdmissionService
	feedService      *services.FeedService
}

func newRepositoryManager(c *config.Config) (repomanager.RepositoryManager, error) {
	switch c.StorageBackend {
	case config.StorageBackendMemory:
		return memstore.New(), nil
	case config.StorageBackendPostgres:
		return repomanager.NewPostgresRepositoryManager(c.DatabaseDSN)
	}
	return nil, fmt.Errorf("unknown storage backend %q", c.StorageBackend)
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	rm, err := newRepositoryManager(c)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := rm.RunMigrations(ctx); err != nil {
		_ = rm.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	resolver, err := identity.NewResolver([]byte(c.IdentityKey))
	if err != nil {
		_ = rm.Close()
		return nil, err
	}

	clk := clock.NewMonotonic()
	var locator geo.Locator
	if len(c.Regions) > 0 {
		locator = geo.Regions(c.Regions)
	}

	return &App{
		config:           c,
		logger:           logger,
		repomanager:      rm,
		identityService:  services.NewIdentityService(resolver, c, clk),
		admissionService: services.NewAdmissionService(rm, locator, clk, logger, c),
		feedService:      services.NewFeedService(rm, clk, logger, c),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.identityService, app.admissionService, app.feedService)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewHTTPServer(app.config.EndpointAddrHTTP, &httpapi.Handler{
		Identity:  app.identityService,
		Admission: app.admissionService,
		Feed:      app.feedService,
		Logger:    app.logger,
	})
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until ctx is cancelled, a signal arrives or a server fails.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "storage", app.config.StorageBackend)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.repomanager.Close(); err != nil {
		app.logger.Error(ctx, "close storage", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
