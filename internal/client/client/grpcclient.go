package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/confessions/internal/client/config"
	"github.com/dmitrijs2005/confessions/internal/common"
	"github.com/dmitrijs2005/confessions/internal/rpc"
	"github.com/sethvargo/go-retry"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// GRPCClient calls the confessions service. Calls that fail as
// Unavailable are retried with exponential backoff; a retried Submit
// keeps its request id, so the server never admits it twice.
type GRPCClient struct {
	conn    *grpc.ClientConn
	client  rpc.ConfessionServiceClient
	backoff func() retry.Backoff
	timeout time.Duration

	mu    sync.RWMutex
	token string
}

func NewGRPCClient(cfg *config.Config, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := newGRPCClient(nil, cfg)

	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.identityTokenInterceptor),
	}, opts...)
	conn, err := grpc.NewClient(cfg.ServerEndpointAddr, opts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.client = rpc.NewConfessionServiceClient(conn)
	return c, nil
}

func newGRPCClient(api rpc.ConfessionServiceClient, cfg *config.Config) *GRPCClient {
	attempts, base := cfg.RetryAttempts, cfg.RetryBaseDelay
	return &GRPCClient{
		client:  api,
		timeout: cfg.RequestTimeout,
		backoff: func() retry.Backoff {
			return retry.WithMaxRetries(attempts, retry.WithJitterPercent(20, retry.NewExponential(base)))
		},
	}
}

func (c *GRPCClient) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *GRPCClient) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func withIdentityToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.IdentityTokenHeaderName, token)
	return metadata.NewOutgoingContext(ctx, md)
}

func (c *GRPCClient) identityTokenInterceptor(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
	if token := c.currentToken(); token != "" {
		ctx = withIdentityToken(ctx, token)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

// call runs fn with a per-attempt timeout, retrying Unavailable results.
func call[T any](ctx context.Context, c *GRPCClient, fn func(ctx context.Context) (*T, error)) (*T, error) {
	var out *T
	err := retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		resp, err := fn(attemptCtx)
		if err != nil {
			if status.Code(err) == codes.Unavailable {
				return retry.RetryableError(err)
			}
			return err
		}
		out = resp
		return nil
	})
	if err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

func (c *GRPCClient) Identify(ctx context.Context, secretDigest []byte) (*rpc.IdentifyResponse, error) {
	return call(ctx, c, func(ctx context.Context) (*rpc.IdentifyResponse, error) {
		return c.client.Identify(ctx, &rpc.IdentifyRequest{DeviceSecret: secretDigest})
	})
}

func (c *GRPCClient) Submit(ctx context.Context, req *rpc.SubmitRequest) (*rpc.SubmitResponse, error) {
	return call(ctx, c, func(ctx context.Context) (*rpc.SubmitResponse, error) {
		return c.client.Submit(ctx, req)
	})
}

func (c *GRPCClient) Feed(ctx context.Context, req *rpc.FeedRequest) (*rpc.FeedResponse, error) {
	return call(ctx, c, func(ctx context.Context) (*rpc.FeedResponse, error) {
		return c.client.Feed(ctx, req)
	})
}

func (c *GRPCClient) View(ctx context.Context, confessionID string) (*rpc.ViewResponse, error) {
	return call(ctx, c, func(ctx context.Context) (*rpc.ViewResponse, error) {
		return c.client.View(ctx, &rpc.ViewRequest{ConfessionID: confessionID})
	})
}

func (c *GRPCClient) Status(ctx context.Context) (*rpc.StatusResponse, error) {
	return call(ctx, c, func(ctx context.Context) (*rpc.StatusResponse, error) {
		return c.client.Status(ctx, &rpc.StatusRequest{})
	})
}

func (c *GRPCClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// validationErrors are sent by the server as InvalidArgument with the
// error text as the status message.
var validationErrors = []error{
	common.ErrEmptyContent,
	common.ErrTooLong,
	common.ErrInvalidSecret,
	common.ErrInvalidCursor,
	common.ErrInvalidOrder,
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrUnavailable
		}
		return err
	}
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.NotFound:
		return common.ErrorNotFound
	case codes.ResourceExhausted:
		rl := &common.RateLimitError{}
		for _, d := range st.Details() {
			if info, ok := d.(*errdetails.RetryInfo); ok {
				rl.RetryAfter = info.GetRetryDelay().AsDuration()
			}
		}
		return rl
	case codes.InvalidArgument:
		for _, v := range validationErrors {
			if st.Message() == v.Error() {
				return v
			}
		}
		return fmt.Errorf("invalid request: %s", st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
