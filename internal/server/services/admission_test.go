package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/confessions/internal/common"
	"github.com/dmitrijs2005/confessions/internal/server/clock"
	"github.com/dmitrijs2005/confessions/internal/server/geo"
	"github.com/dmitrijs2005/confessions/internal/server/models"
	"github.com/dmitrijs2005/confessions/internal/server/repositories/memstore"
	"github.com/dmitrijs2005/confessions/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryAdmit_RejectsEmptyContent(t *testing.T) {
	f := newFixture(t)
	for _, content := range []string{"", "   ", "\n\t \r\n"} {
		_, err := f.admission.TryAdmit(context.Background(), identityFor(1), Submission{Content: content})
		assert.ErrorIs(t, err, common.ErrEmptyContent, "%q", content)
	}

	// Rejections never touch the window.
	st, err := f.admission.Status(context.Background(), identityFor(1))
	require.NoError(t, err)
	assert.True(t, st.CanSubmit)
}

func TestTryAdmit_LengthBoundary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.admission.TryAdmit(ctx, identityFor(1), Submission{Content: strings.Repeat("a", 501)})
	assert.ErrorIs(t, err, common.ErrTooLong)

	c, err := f.admission.TryAdmit(ctx, identityFor(1), Submission{Content: strings.Repeat("a", 500)})
	require.NoError(t, err)
	assert.Len(t, c.Content, 500)

	// Characters, not bytes.
	c, err = f.admission.TryAdmit(ctx, identityFor(2), Submission{Content: strings.Repeat("é", 500)})
	require.NoError(t, err)
	assert.Equal(t, 500, len([]rune(c.Content)))
}

func TestTryAdmit_StoresTrimmedContent(t *testing.T) {
	f := newFixture(t)
	c, err := f.admission.TryAdmit(context.Background(), identityFor(1), Submission{Content: "  hello  "})
	require.NoError(t, err)
	assert.Equal(t, "hello", c.Content)
	assert.Equal(t, t0, c.CreatedAt)
	assert.Zero(t, c.ViewCount)
	assert.NotEmpty(t, c.ID)
}

func TestTryAdmit_WindowBoundary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := identityFor(7)

	_, err := f.admission.TryAdmit(ctx, id, Submission{Content: "first"})
	require.NoError(t, err)

	f.clock.Set(t0.Add(23*time.Hour + 59*time.Minute))
	_, err = f.admission.TryAdmit(ctx, id, Submission{Content: "too soon"})
	require.ErrorIs(t, err, common.ErrRateLimited)
	retry, ok := common.RetryAfter(err)
	require.True(t, ok)
	assert.Equal(t, time.Minute, retry)

	f.clock.Set(t0.Add(24*time.Hour + time.Second))
	_, err = f.admission.TryAdmit(ctx, id, Submission{Content: "next day"})
	require.NoError(t, err)

	all, err := f.store.Confessions().ListRecent(ctx, nil, 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestTryAdmit_ConcurrentSameIdentityAcceptsOne(t *testing.T) {
	f := newFixture(t)
	id := identityFor(3)

	const n = 50
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		limited  int
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.admission.TryAdmit(context.Background(), id, Submission{Content: "race"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case errors.Is(err, common.ErrRateLimited):
				limited++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, accepted)
	assert.Equal(t, n-1, limited)

	all, err := f.store.Confessions().ListRecent(context.Background(), nil, 100)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestTryAdmit_IdentitiesAreIndependent(t *testing.T) {
	f := newFixture(t)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(b byte) {
			defer wg.Done()
			_, err := f.admission.TryAdmit(context.Background(), identityFor(b), Submission{Content: "hi"})
			assert.NoError(t, err)
		}(byte(i))
	}
	wg.Wait()

	all, err := f.store.Confessions().ListRecent(context.Background(), nil, 100)
	require.NoError(t, err)
	assert.Len(t, all, 20)
}

func TestTryAdmit_DuplicateRequestID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := identityFor(4)

	_, err := f.admission.TryAdmit(ctx, id, Submission{Content: "once", RequestID: "req-1"})
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	_, err = f.admission.TryAdmit(ctx, id, Submission{Content: "once", RequestID: "req-1"})
	assert.ErrorIs(t, err, common.ErrDuplicateSubmission)

	_, err = f.admission.TryAdmit(ctx, id, Submission{Content: "other", RequestID: "req-2"})
	assert.ErrorIs(t, err, common.ErrRateLimited)

	_, err = f.admission.TryAdmit(ctx, id, Submission{Content: "none"})
	assert.ErrorIs(t, err, common.ErrRateLimited)
}

func TestTryAdmit_StorageFailureIsUnavailable(t *testing.T) {
	cfg := testConfig()
	svc := NewAdmissionService(failingManager{err: errors.New("connection refused")}, nil, clock.NewManual(t0), nopLogger{}, cfg)

	_, err := svc.TryAdmit(context.Background(), identityFor(1), Submission{Content: "x"})
	assert.ErrorIs(t, err, common.ErrStorageUnavailable)
	assert.NotErrorIs(t, err, common.ErrRateLimited)

	_, err = svc.Status(context.Background(), identityFor(1))
	assert.ErrorIs(t, err, common.ErrStorageUnavailable)
}

func TestTryAdmit_InvariantViolationIsAlerted(t *testing.T) {
	var logged [][]any
	cfg := testConfig()
	svc := NewAdmissionService(failingManager{err: common.ErrInvariantViolation}, nil, clock.NewManual(t0), recordingLogger{errors: &logged}, cfg)

	_, err := svc.TryAdmit(context.Background(), identityFor(1), Submission{Content: "x"})
	require.ErrorIs(t, err, common.ErrInvariantViolation)
	require.Len(t, logged, 1)
	assert.Contains(t, logged[0], "alert")
}

func TestTryAdmit_TimeoutCommitsNothing(t *testing.T) {
	cfg := testConfig()
	cfg.StorageTimeout = 20 * time.Millisecond
	store := memstore.New()
	svc := NewAdmissionService(store, nil, clock.NewManual(t0), nopLogger{}, cfg)
	id := identityFor(9)

	// Hold the identity lock so the admission cannot finish in time.
	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = store.WithinTx(context.Background(), func(ctx context.Context, repos repomanager.Repositories) error {
			_ = repos.Windows().Lock(ctx, id.String())
			close(held)
			<-release
			return nil
		})
	}()
	<-held
	defer close(release)

	_, err := svc.TryAdmit(context.Background(), id, Submission{Content: "slow"})
	require.ErrorIs(t, err, common.ErrStorageUnavailable)

	all, err := store.Confessions().ListRecent(context.Background(), nil, 10)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestTryAdmit_Location(t *testing.T) {
	cfg := testConfig()
	store := memstore.New()
	regions := geo.Regions{{Label: "Old Town", MinLat: 10, MaxLat: 11, MinLon: 20, MaxLon: 21}}
	svc := NewAdmissionService(store, regions, clock.NewManual(t0), nopLogger{}, cfg)
	ctx := context.Background()

	c, err := svc.TryAdmit(ctx, identityFor(1), Submission{Content: "here", Location: &geo.Point{Lat: 10.5, Lon: 20.5}})
	require.NoError(t, err)
	assert.Equal(t, "Old Town", c.GeneralLocation)

	c, err = svc.TryAdmit(ctx, identityFor(2), Submission{Content: "elsewhere", Location: &geo.Point{Lat: -5, Lon: 0}})
	require.NoError(t, err)
	assert.Empty(t, c.GeneralLocation)

	c, err = svc.TryAdmit(ctx, identityFor(3), Submission{Content: "bogus", Location: &geo.Point{Lat: 91, Lon: 0}})
	require.NoError(t, err)
	assert.Empty(t, c.GeneralLocation)

	c, err = svc.TryAdmit(ctx, identityFor(4), Submission{Content: "no opt-in"})
	require.NoError(t, err)
	assert.Empty(t, c.GeneralLocation)
}

func TestStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := identityFor(5)

	st, err := f.admission.Status(ctx, id)
	require.NoError(t, err)
	assert.True(t, st.CanSubmit)
	assert.Zero(t, st.RetryAfter)
	assert.Zero(t, st.TotalPosts)

	_, err = f.admission.TryAdmit(ctx, id, Submission{Content: "x"})
	require.NoError(t, err)

	f.clock.Advance(4 * time.Hour)
	st, err = f.admission.Status(ctx, id)
	require.NoError(t, err)
	assert.False(t, st.CanSubmit)
	assert.Equal(t, 20*time.Hour, st.RetryAfter)
	assert.Equal(t, t0.Add(24*time.Hour), st.NextEligibleAt)
	assert.Equal(t, int64(1), st.TotalPosts)

	// Status is read-only: asking again changes nothing.
	st2, err := f.admission.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, st, st2)
}

func TestStatus_TotalPostsAcrossWindows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := identityFor(6)

	for i := 0; i < 3; i++ {
		_, err := f.admission.TryAdmit(ctx, id, Submission{Content: "again"})
		require.NoError(t, err)
		f.clock.Advance(25 * time.Hour)
	}

	st, err := f.admission.Status(ctx, id)
	require.NoError(t, err)
	assert.True(t, st.CanSubmit)
	assert.Equal(t, int64(3), st.TotalPosts)
}

func TestTryAdmit_WindowTimeDiffersFromCreatedAt(t *testing.T) {
	f := newFixture(t)
	f.admission.jitter = func() time.Duration { return 7*time.Minute + 3*time.Microsecond }
	ctx := context.Background()
	id := identityFor(8)

	c, err := f.admission.TryAdmit(ctx, id, Submission{Content: "hidden"})
	require.NoError(t, err)

	var w *models.SubmissionWindow
	require.NoError(t, f.store.WithinTx(ctx, func(ctx context.Context, repos repomanager.Repositories) error {
		var err error
		w, err = repos.Windows().Get(ctx, id.String())
		return err
	}))
	assert.Equal(t, t0, c.CreatedAt)
	assert.NotEqual(t, c.CreatedAt, w.LastAcceptedAt)
	assert.Equal(t, t0.Add(7*time.Minute+3*time.Microsecond), w.LastAcceptedAt)

	// The delay only ever lengthens the window.
	f.clock.Set(t0.Add(24 * time.Hour))
	_, err = f.admission.TryAdmit(ctx, id, Submission{Content: "early"})
	retry, ok := common.RetryAfter(err)
	require.True(t, ok)
	assert.Equal(t, 7*time.Minute+3*time.Microsecond, retry)
}

func TestWindowJitter(t *testing.T) {
	assert.Zero(t, windowJitter(0)())
	assert.Zero(t, windowJitter(time.Nanosecond)())

	next := windowJitter(15 * time.Minute)
	for i := 0; i < 1000; i++ {
		d := next()
		assert.GreaterOrEqual(t, d, time.Microsecond)
		assert.LessOrEqual(t, d, 15*time.Minute)
		assert.Zero(t, d%time.Microsecond)
	}
}
