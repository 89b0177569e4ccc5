package client

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/confessions/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/confessions/internal/common"
	"github.com/dmitrijs2005/confessions/internal/cryptox"
	"github.com/dmitrijs2005/confessions/internal/rpc"
	"github.com/google/uuid"
)

const (
	keyInstallationSecret = "installation_secret"
	keyIdentityToken      = "identity_token"
	keyTokenExpiresAt     = "identity_token_expires_at"

	// tokenRefreshMargin renews a cached token this long before it expires.
	tokenRefreshMargin = time.Minute
)

// API is the remote surface the Service needs; *GRPCClient implements it.
type API interface {
	SetToken(token string)
	Identify(ctx context.Context, secretDigest []byte) (*rpc.IdentifyResponse, error)
	Submit(ctx context.Context, req *rpc.SubmitRequest) (*rpc.SubmitResponse, error)
	Feed(ctx context.Context, req *rpc.FeedRequest) (*rpc.FeedResponse, error)
	View(ctx context.Context, confessionID string) (*rpc.ViewResponse, error)
	Status(ctx context.Context) (*rpc.StatusResponse, error)
}

type Location struct {
	Lat, Lon float64
}

type Service struct {
	metadata metadata.Repository
	api      API
	now      func() time.Time
	newID    func() string
}

func NewService(repo metadata.Repository, api API) *Service {
	return &Service{metadata: repo, api: api, now: time.Now, newID: uuid.NewString}
}

// Identify makes sure a usable identity token is cached and installed on
// the API client. force skips the cache.
func (s *Service) Identify(ctx context.Context, force bool) (time.Time, error) {
	if !force {
		token, exp, err := s.cachedToken(ctx)
		if err != nil {
			return time.Time{}, err
		}
		if token != "" && s.now().Add(tokenRefreshMargin).Before(exp) {
			s.api.SetToken(token)
			return exp, nil
		}
	}

	secret, err := s.metadata.SetIfAbsent(ctx, keyInstallationSecret, cryptox.NewInstallationSecret())
	if err != nil {
		return time.Time{}, err
	}
	digest := cryptox.DeviceDigest(secret)
	common.WipeByteArray(secret)

	resp, err := s.api.Identify(ctx, digest)
	if err != nil {
		return time.Time{}, err
	}

	if err := s.metadata.Set(ctx, keyIdentityToken, []byte(resp.IdentityToken)); err != nil {
		return time.Time{}, err
	}
	exp, err := resp.ExpiresAt.UTC().MarshalText()
	if err != nil {
		return time.Time{}, err
	}
	if err := s.metadata.Set(ctx, keyTokenExpiresAt, exp); err != nil {
		return time.Time{}, err
	}
	s.api.SetToken(resp.IdentityToken)
	return resp.ExpiresAt, nil
}

func (s *Service) cachedToken(ctx context.Context) (string, time.Time, error) {
	token, err := s.metadata.Get(ctx, keyIdentityToken)
	if err != nil || token == nil {
		return "", time.Time{}, err
	}
	raw, err := s.metadata.Get(ctx, keyTokenExpiresAt)
	if err != nil || raw == nil {
		return "", time.Time{}, err
	}
	var exp time.Time
	if err := exp.UnmarshalText(raw); err != nil {
		return "", time.Time{}, nil
	}
	return string(token), exp, nil
}

func (s *Service) forgetToken(ctx context.Context) error {
	s.api.SetToken("")
	if err := s.metadata.Delete(ctx, keyIdentityToken); err != nil {
		return err
	}
	return s.metadata.Delete(ctx, keyTokenExpiresAt)
}

// authorized runs fn with a valid token, re-identifying once if the
// server rejects the cached one.
func authorized[T any](ctx context.Context, s *Service, fn func() (T, error)) (T, error) {
	var zero T
	if _, err := s.Identify(ctx, false); err != nil {
		return zero, err
	}
	out, err := fn()
	if !errors.Is(err, ErrUnauthorized) {
		return out, err
	}

	if err := s.forgetToken(ctx); err != nil {
		return zero, err
	}
	if _, err := s.Identify(ctx, true); err != nil {
		return zero, err
	}
	return fn()
}

// Submit validates content locally, then posts it. One request id is
// used for every transport retry of this call.
func (s *Service) Submit(ctx context.Context, content string, loc *Location) (*rpc.SubmitResponse, error) {
	if strings.TrimSpace(content) == "" {
		return nil, common.ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > common.MaxContentLength {
		return nil, common.ErrTooLong
	}

	req := &rpc.SubmitRequest{Content: content, RequestID: s.newID()}
	if loc != nil {
		req.IncludeLocation = true
		req.Latitude, req.Longitude = loc.Lat, loc.Lon
	}

	return authorized(ctx, s, func() (*rpc.SubmitResponse, error) {
		return s.api.Submit(ctx, req)
	})
}

func (s *Service) Status(ctx context.Context) (*rpc.StatusResponse, error) {
	return authorized(ctx, s, func() (*rpc.StatusResponse, error) {
		return s.api.Status(ctx)
	})
}

func (s *Service) Feed(ctx context.Context, order, cursor string, limit int) (*rpc.FeedResponse, error) {
	return s.api.Feed(ctx, &rpc.FeedRequest{Order: order, Cursor: cursor, Limit: int32(limit)})
}

func (s *Service) View(ctx context.Context, confessionID string) (int64, error) {
	resp, err := s.api.View(ctx, confessionID)
	if err != nil {
		return 0, err
	}
	return resp.ViewCount, nil
}
