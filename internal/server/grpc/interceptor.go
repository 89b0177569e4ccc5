package grpc

import (
	"context"

	"github.com/dmitrijs2005/confessions/internal/common"
	"github.com/dmitrijs2005/confessions/internal/rpc"
	"github.com/dmitrijs2005/confessions/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const identityKey ctxKey = "identity"

// authenticatedMethods need a valid identity token in the metadata.
var authenticatedMethods = map[string]bool{
	rpc.ConfessionService_Submit_FullMethodName: true,
	rpc.ConfessionService_Status_FullMethodName: true,
}

func (s *GRPCServer) identityTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if !authenticatedMethods[info.FullMethod] {
		return handler(ctx, req)
	}

	var token string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(common.IdentityTokenHeaderName); len(values) > 0 {
			token = values[0]
		}
	}
	if token == "" {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	id, err := s.identity.Authenticate(token)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}

	return handler(context.WithValue(ctx, identityKey, id), req)
}

func identityFromContext(ctx context.Context) (models.IdentityID, bool) {
	id, ok := ctx.Value(identityKey).(models.IdentityID)
	return id, ok && !id.IsZero()
}
