package cli

import (
	"context"
	"time"

	"github.com/dmitrijs2005/confessions/internal/client/client"
	"github.com/dmitrijs2005/confessions/internal/client/config"
	"github.com/dmitrijs2005/confessions/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/confessions/internal/rpc"
)

// Service is what the commands call; *client.Service implements it.
type Service interface {
	Identify(ctx context.Context, force bool) (time.Time, error)
	Submit(ctx context.Context, content string, loc *client.Location) (*rpc.SubmitResponse, error)
	Feed(ctx context.Context, order, cursor string, limit int) (*rpc.FeedResponse, error)
	View(ctx context.Context, confessionID string) (int64, error)
	Status(ctx context.Context) (*rpc.StatusResponse, error)
}

// Opener builds a Service for cfg and returns a func releasing it.
type Opener func(ctx context.Context, cfg *config.Config) (Service, func() error, error)

// Open wires the local database and the gRPC client.
func Open(ctx context.Context, cfg *config.Config) (Service, func() error, error) {
	db, err := client.InitDatabase(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, nil, err
	}

	api, err := client.NewGRPCClient(cfg)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	svc := client.NewService(metadata.NewSQLiteRepository(db), api)
	closer := func() error {
		_ = api.Close()
		return db.Close()
	}
	return svc, closer, nil
}
