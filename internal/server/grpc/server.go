// Package grpc exposes the confession services over gRPC using the JSON
// codec from internal/rpc, alongside the standard health service.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/confessions/internal/logging"
	"github.com/dmitrijs2005/confessions/internal/rpc"
	"github.com/dmitrijs2005/confessions/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type GRPCServer struct {
	rpc.UnimplementedConfessionServiceServer
	address   string
	identity  *services.IdentityService
	admission *services.AdmissionService
	feed      *services.FeedService
	health    *health.Server
	logger    logging.Logger
}

func NewGRPCServer(a string, l logging.Logger, is *services.IdentityService, as *services.AdmissionService, fs *services.FeedService) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		identity:  is,
		admission: as,
		feed:      fs,
		health:    health.NewServer(),
	}
}

// newServer builds a gRPC server with the interceptors and services
// registered, ready to Serve.
func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.identityTokenInterceptor))

	rpc.RegisterConfessionServiceServer(srv, s)
	healthpb.RegisterHealthServer(srv, s.health)
	s.health.SetServingStatus(rpc.ServiceName, healthpb.HealthCheckResponse_SERVING)

	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
