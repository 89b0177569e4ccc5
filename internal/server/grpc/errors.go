package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/confessions/internal/common"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"
)

// invalidArgumentErrors are reported with the sentinel text as message so
// clients can match them back.
var invalidArgumentErrors = []error{
	common.ErrEmptyContent,
	common.ErrTooLong,
	common.ErrInvalidSecret,
	common.ErrInvalidCursor,
	common.ErrInvalidOrder,
}

// toStatus maps service errors to gRPC status errors. Rate limits carry a
// RetryInfo detail with the remaining window.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	for _, target := range invalidArgumentErrors {
		if errors.Is(err, target) {
			return status.Error(codes.InvalidArgument, target.Error())
		}
	}

	switch {
	case errors.Is(err, common.ErrRateLimited):
		st := status.New(codes.ResourceExhausted, common.ErrRateLimited.Error())
		if retry, ok := common.RetryAfter(err); ok {
			if detailed, derr := st.WithDetails(&errdetails.RetryInfo{RetryDelay: durationpb.New(retry)}); derr == nil {
				st = detailed
			}
		}
		return st.Err()

	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "not found")

	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrTokenExpired):
		return status.Error(codes.Unauthenticated, err.Error())

	case errors.Is(err, common.ErrStorageUnavailable):
		return status.Error(codes.Unavailable, common.ErrStorageUnavailable.Error())
	}

	s.logger.Error(ctx, "unexpected error", "error", err)
	return status.Error(codes.Internal, "internal error")
}
