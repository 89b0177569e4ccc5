package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/confessions/internal/client/client"
	"github.com/dmitrijs2005/confessions/internal/client/config"
	"github.com/dmitrijs2005/confessions/internal/common"
	"github.com/dmitrijs2005/confessions/internal/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	forced    bool
	content   string
	loc       *client.Location
	submitErr error
	duplicate bool
	pages     map[string]*rpc.FeedResponse
	feedCalls []string
	views     map[string]int64
	status    *rpc.StatusResponse
}

func (f *fakeService) Identify(_ context.Context, force bool) (time.Time, error) {
	f.forced = force
	return time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC), nil
}

func (f *fakeService) Submit(_ context.Context, content string, loc *client.Location) (*rpc.SubmitResponse, error) {
	f.content, f.loc = content, loc
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	if f.duplicate {
		return &rpc.SubmitResponse{Duplicate: true}, nil
	}
	return &rpc.SubmitResponse{ConfessionID: "c-1"}, nil
}

func (f *fakeService) Feed(_ context.Context, order, cursor string, _ int) (*rpc.FeedResponse, error) {
	f.feedCalls = append(f.feedCalls, order+":"+cursor)
	return f.pages[cursor], nil
}

func (f *fakeService) View(_ context.Context, id string) (int64, error) {
	n, ok := f.views[id]
	if !ok {
		return 0, common.ErrorNotFound
	}
	return n, nil
}

func (f *fakeService) Status(context.Context) (*rpc.StatusResponse, error) {
	return f.status, nil
}

type harness struct {
	svc    *fakeService
	cfg    *config.Config
	closed bool
}

func (h *harness) open(_ context.Context, cfg *config.Config) (Service, func() error, error) {
	h.cfg = cfg
	return h.svc, func() error { h.closed = true; return nil }, nil
}

func run(t *testing.T, h *harness, stdin string, args ...string) (string, string, int) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCmd(h.open)
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	code := Execute(context.Background(), root, args, &errOut)
	return out.String(), errOut.String(), code
}

func newHarness() *harness {
	return &harness{svc: &fakeService{}}
}

func TestSubmit_FromArgs(t *testing.T) {
	h := newHarness()

	out, _, code := run(t, h, "", "submit", "I", "ate", "the", "cake")
	require.Equal(t, 0, code)
	assert.Equal(t, "I ate the cake", h.svc.content)
	assert.Nil(t, h.svc.loc)
	assert.Contains(t, out, "Posted confession c-1")
	assert.True(t, h.closed)
}

func TestSubmit_FromPipedStdin(t *testing.T) {
	h := newHarness()

	out, _, code := run(t, h, "line one\nline two\n", "submit")
	require.Equal(t, 0, code)
	assert.Equal(t, "line one\nline two", h.svc.content)
	assert.NotContains(t, out, "Your confession")
}

func TestSubmit_PromptsOnTerminal(t *testing.T) {
	orig := isTerminal
	isTerminal = func(io.Reader) bool { return true }
	t.Cleanup(func() { isTerminal = orig })

	h := newHarness()
	out, _, code := run(t, h, "first\nsecond\n\nignored\n", "submit")
	require.Equal(t, 0, code)
	assert.Equal(t, "first\nsecond", h.svc.content)
	assert.Contains(t, out, "Your confession")
}

func TestSubmit_WithLocation(t *testing.T) {
	h := newHarness()

	_, _, code := run(t, h, "", "submit", "--lat", "52.5", "--lon", "13.4", "hi")
	require.Equal(t, 0, code)
	require.NotNil(t, h.svc.loc)
	assert.Equal(t, client.Location{Lat: 52.5, Lon: 13.4}, *h.svc.loc)
}

func TestSubmit_LatWithoutLonFails(t *testing.T) {
	h := newHarness()

	_, errOut, code := run(t, h, "", "submit", "--lat", "52.5", "hi")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "lon")
}

func TestSubmit_RateLimited(t *testing.T) {
	h := newHarness()
	h.svc.submitErr = &common.RateLimitError{RetryAfter: 3*time.Hour + 12*time.Minute + 20*time.Second}

	_, errOut, code := run(t, h, "", "submit", "again")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "try again in 3h12m")
}

func TestSubmit_Duplicate(t *testing.T) {
	h := newHarness()
	h.svc.duplicate = true

	out, _, code := run(t, h, "", "submit", "again")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Already posted")
}

func TestFeed_SinglePageShowsCursor(t *testing.T) {
	h := newHarness()
	h.svc.pages = map[string]*rpc.FeedResponse{
		"": {Items: []rpc.Confession{{ID: "a", Content: "hello", ViewCount: 3, Trending: true, GeneralLocation: "Berlin"}}, NextCursor: "p2"},
	}

	out, _, code := run(t, h, "", "feed", "--order", "recent")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "[a]")
	assert.Contains(t, out, "views: 3  trending  (Berlin)")
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "--cursor p2")
	assert.Equal(t, []string{"recent:"}, h.svc.feedCalls)
}

func TestFeed_AllFollowsCursors(t *testing.T) {
	h := newHarness()
	h.svc.pages = map[string]*rpc.FeedResponse{
		"":   {Items: []rpc.Confession{{ID: "a"}}, NextCursor: "p2"},
		"p2": {Items: []rpc.Confession{{ID: "b"}}},
	}

	out, _, code := run(t, h, "", "feed", "--all")
	require.Equal(t, 0, code)
	assert.Equal(t, []string{"trending:", "trending:p2"}, h.svc.feedCalls)
	assert.Contains(t, out, "[a]")
	assert.Contains(t, out, "[b]")
	assert.NotContains(t, out, "--cursor")
}

func TestView(t *testing.T) {
	h := newHarness()
	h.svc.views = map[string]int64{"a": 4}

	out, _, code := run(t, h, "", "view", "a")
	require.Equal(t, 0, code)
	assert.Equal(t, "views: 4\n", out)

	_, errOut, code := run(t, h, "", "view", "zzz")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "confession not found")
}

func TestStatus(t *testing.T) {
	h := newHarness()
	h.svc.status = &rpc.StatusResponse{CanSubmit: true, TotalPosts: 4}

	out, _, code := run(t, h, "", "status")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Posts from this device: 4")
	assert.Contains(t, out, "You can post today.")

	h.svc.status = &rpc.StatusResponse{RetryAfterSeconds: 5400, NextEligibleAt: time.Now().Add(90 * time.Minute)}
	out, _, code = run(t, h, "", "status")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Next post possible in 1h30m")
}

func TestIdentify_Force(t *testing.T) {
	h := newHarness()

	out, _, code := run(t, h, "", "identify", "--force")
	require.Equal(t, 0, code)
	assert.True(t, h.svc.forced)
	assert.Contains(t, out, "Identity token valid until")
}

func TestFlagsOverrideConfig(t *testing.T) {
	h := newHarness()
	h.svc.status = &rpc.StatusResponse{CanSubmit: true}

	_, _, code := run(t, h, "", "--server", "example.org:1", "--db", "/tmp/x.db", "--retries", "9", "status")
	require.Equal(t, 0, code)
	assert.Equal(t, "example.org:1", h.cfg.ServerEndpointAddr)
	assert.Equal(t, "/tmp/x.db", h.cfg.DatabasePath)
	assert.EqualValues(t, 9, h.cfg.RetryAttempts)
}

func TestDefaultsWithoutFlags(t *testing.T) {
	h := newHarness()
	h.svc.status = &rpc.StatusResponse{CanSubmit: true}

	_, _, code := run(t, h, "", "status")
	require.Equal(t, 0, code)
	assert.Equal(t, "127.0.0.1:50051", h.cfg.ServerEndpointAddr)
	assert.EqualValues(t, 4, h.cfg.RetryAttempts)
}

func TestHumanDuration(t *testing.T) {
	assert.Equal(t, "less than a minute", humanDuration(20*time.Second))
	assert.Equal(t, "5m", humanDuration(5*time.Minute))
	assert.Equal(t, "2h", humanDuration(2*time.Hour))
	assert.Equal(t, "23h59m", humanDuration(23*time.Hour+59*time.Minute+10*time.Second))
}
