package grpc

import (
	"context"
	"errors"
	"math"

	"github.com/dmitrijs2005/confessions/internal/common"
	"github.com/dmitrijs2005/confessions/internal/rpc"
	"github.com/dmitrijs2005/confessions/internal/server/geo"
	"github.com/dmitrijs2005/confessions/internal/server/models"
	"github.com/dmitrijs2005/confessions/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func (s *GRPCServer) Identify(ctx context.Context, req *rpc.IdentifyRequest) (*rpc.IdentifyResponse, error) {
	grant, err := s.identity.Identify(ctx, req.DeviceSecret)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.IdentifyResponse{IdentityToken: grant.Token, ExpiresAt: grant.ExpiresAt}, nil
}

func (s *GRPCServer) Submit(ctx context.Context, req *rpc.SubmitRequest) (*rpc.SubmitResponse, error) {
	id, ok := identityFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing identity")
	}

	sub := services.Submission{Content: req.Content, RequestID: req.RequestID}
	if req.IncludeLocation {
		sub.Location = &geo.Point{Lat: req.Latitude, Lon: req.Longitude}
	}

	c, err := s.admission.TryAdmit(ctx, id, sub)
	if err != nil {
		if errors.Is(err, common.ErrDuplicateSubmission) {
			return &rpc.SubmitResponse{Duplicate: true}, nil
		}
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.SubmitResponse{ConfessionID: c.ID}, nil
}

func (s *GRPCServer) Feed(ctx context.Context, req *rpc.FeedRequest) (*rpc.FeedResponse, error) {
	order, err := services.ParseFeedOrder(req.Order)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	page, err := s.feed.Feed(ctx, services.FeedRequest{Order: order, Cursor: req.Cursor, Limit: int(req.Limit)})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &rpc.FeedResponse{Items: toWire(page.Items), NextCursor: page.NextCursor}, nil
}

func (s *GRPCServer) View(ctx context.Context, req *rpc.ViewRequest) (*rpc.ViewResponse, error) {
	if req.ConfessionID == "" {
		return nil, status.Error(codes.InvalidArgument, "confession id is required")
	}
	n, err := s.feed.RecordView(ctx, req.ConfessionID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.ViewResponse{ViewCount: n}, nil
}

func (s *GRPCServer) Status(ctx context.Context, _ *rpc.StatusRequest) (*rpc.StatusResponse, error) {
	id, ok := identityFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing identity")
	}
	st, err := s.admission.Status(ctx, id)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.StatusResponse{
		CanSubmit:         st.CanSubmit,
		RetryAfterSeconds: int64(math.Ceil(st.RetryAfter.Seconds())),
		NextEligibleAt:    st.NextEligibleAt,
		TotalPosts:        st.TotalPosts,
	}, nil
}

func toWire(cs []*models.Confession) []rpc.Confession {
	out := make([]rpc.Confession, 0, len(cs))
	for _, c := range cs {
		out = append(out, rpc.Confession{
			ID:              c.ID,
			Content:         c.Content,
			GeneralLocation: c.GeneralLocation,
			CreatedAt:       c.CreatedAt,
			ViewCount:       c.ViewCount,
			Trending:        c.Trending,
		})
	}
	return out
}
