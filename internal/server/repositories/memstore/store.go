// Package memstore is an in-process storage backend. Committed confessions
// are published as an immutable sorted snapshot so feed reads never take a
// lock; view counters are atomics.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/confessions/internal/common"
	"github.com/dmitrijs2005/confessions/internal/server/models"
	"github.com/dmitrijs2005/confessions/internal/server/repositories/confessions"
	"github.com/dmitrijs2005/confessions/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/confessions/internal/server/repositories/windows"
)

type entry struct {
	c     models.Confession
	views atomic.Int64
}

func (e *entry) snapshot() *models.Confession {
	c := e.c
	c.ViewCount = e.views.Load()
	return &c
}

// recentLess reports whether a comes before b in created_at desc, id desc order.
func recentLess(a, b *models.Confession) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID > b.ID
	}
	return a.CreatedAt.After(b.CreatedAt)
}

// Store implements repomanager.RepositoryManager in memory.
type Store struct {
	// mu serializes commits and guards windows.
	mu      sync.Mutex
	windows map[string]models.SubmissionWindow

	byID   sync.Map // string -> *entry
	recent atomic.Pointer[[]*entry]

	locks *keyedLock
}

var _ repomanager.RepositoryManager = (*Store)(nil)

func New() *Store {
	s := &Store{
		windows: make(map[string]models.SubmissionWindow),
		locks:   newKeyedLock(),
	}
	empty := []*entry{}
	s.recent.Store(&empty)
	return s
}

func (s *Store) RunMigrations(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) Confessions() confessions.Repository {
	return &confessionRepo{s: s}
}

// WithinTx stages every write made through repos and applies them together
// when fn succeeds. Per-identity locks taken in fn are held until the
// transaction ends.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repomanager.Repositories) error) error {
	t := &tx{
		s:       s,
		held:    make(map[string]func()),
		windows: make(map[string]models.SubmissionWindow),
	}
	defer t.releaseLocks()

	if err := fn(ctx, t); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.commit()
}

func (s *Store) window(id string) (models.SubmissionWindow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.windows[id]
	return w, ok
}

func (s *Store) load(id string) (*entry, bool) {
	v, ok := s.byID.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*entry), true
}

type tx struct {
	s       *Store
	held    map[string]func()
	windows map[string]models.SubmissionWindow
	created []*entry
}

func (t *tx) Windows() windows.Repository         { return &windowRepo{t: t} }
func (t *tx) Confessions() confessions.Repository { return &confessionRepo{s: t.s, t: t} }

func (t *tx) releaseLocks() {
	for _, unlock := range t.held {
		unlock()
	}
}

func (t *tx) commit() error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range t.created {
		if _, dup := s.byID.Load(e.c.ID); dup {
			return fmt.Errorf("%w: confession %s already exists", common.ErrInvariantViolation, e.c.ID)
		}
	}

	for id, w := range t.windows {
		s.windows[id] = w
	}

	if len(t.created) == 0 {
		return nil
	}

	old := *s.recent.Load()
	next := make([]*entry, len(old), len(old)+len(t.created))
	copy(next, old)
	for _, e := range t.created {
		i := sort.Search(len(next), func(i int) bool { return !recentLess(&next[i].c, &e.c) })
		next = append(next, nil)
		copy(next[i+1:], next[i:])
		next[i] = e
		s.byID.Store(e.c.ID, e)
	}
	s.recent.Store(&next)
	return nil
}

type windowRepo struct {
	t *tx
}

func (r *windowRepo) Lock(ctx context.Context, identityID string) error {
	if _, ok := r.t.held[identityID]; ok {
		return nil
	}
	unlock, err := r.t.s.locks.Lock(ctx, identityID)
	if err != nil {
		return err
	}
	r.t.held[identityID] = unlock
	return nil
}

func (r *windowRepo) Get(ctx context.Context, identityID string) (*models.SubmissionWindow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w, ok := r.t.windows[identityID]
	if !ok {
		w, ok = r.t.s.window(identityID)
	}
	if !ok {
		return nil, common.ErrorNotFound
	}
	w.RequestDigest = append([]byte(nil), w.RequestDigest...)
	return &w, nil
}

func (r *windowRepo) Upsert(ctx context.Context, w *models.SubmissionWindow) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	prev, ok := r.t.windows[w.IdentityID]
	if !ok {
		prev, _ = r.t.s.window(w.IdentityID)
	}
	staged := *w
	staged.RequestDigest = append([]byte(nil), w.RequestDigest...)
	staged.AcceptedCount = prev.AcceptedCount + 1
	r.t.windows[w.IdentityID] = staged
	return nil
}

// confessionRepo reads committed state; when t is set, writes are staged
// on the transaction.
type confessionRepo struct {
	s *Store
	t *tx
}

func (r *confessionRepo) Create(ctx context.Context, c *models.Confession) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.t == nil {
		return r.s.WithinTx(ctx, func(ctx context.Context, repos repomanager.Repositories) error {
			return repos.Confessions().Create(ctx, c)
		})
	}
	if _, dup := r.s.load(c.ID); dup {
		return fmt.Errorf("%w: confession %s already exists", common.ErrInvariantViolation, c.ID)
	}
	e := &entry{c: *c}
	e.c.ViewCount = 0
	e.c.TrendingScore = 0
	e.c.Trending = false
	r.t.created = append(r.t.created, e)
	return nil
}

func (r *confessionRepo) Get(ctx context.Context, id string) (*models.Confession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.t != nil {
		for _, e := range r.t.created {
			if e.c.ID == id {
				return e.snapshot(), nil
			}
		}
	}
	e, ok := r.s.load(id)
	if !ok {
		return nil, common.ErrorNotFound
	}
	return e.snapshot(), nil
}

func (r *confessionRepo) IncrementViews(ctx context.Context, id string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	e, ok := r.s.load(id)
	if !ok {
		return 0, common.ErrorNotFound
	}
	return e.views.Add(1), nil
}

func (r *confessionRepo) ListRecent(ctx context.Context, after *models.FeedPosition, limit int) ([]*models.Confession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap := *r.s.recent.Load()
	start := 0
	if after != nil {
		start = sort.Search(len(snap), func(i int) bool { return after.Before(&snap[i].c) })
	}
	return collect(snap[start:], limit, func(*entry) bool { return true }), nil
}

func (r *confessionRepo) ListSince(ctx context.Context, since, until time.Time, limit int) ([]*models.Confession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap := *r.s.recent.Load()
	start := sort.Search(len(snap), func(i int) bool { return !snap[i].c.CreatedAt.After(until) })
	return collect(snap[start:], limit, func(e *entry) bool { return !e.c.CreatedAt.Before(since) }), nil
}

func (r *confessionRepo) ListMostViewed(ctx context.Context, until time.Time, limit int) ([]*models.Confession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap := *r.s.recent.Load()
	start := sort.Search(len(snap), func(i int) bool { return !snap[i].c.CreatedAt.After(until) })

	all := make([]*models.Confession, 0, len(snap)-start)
	for _, e := range snap[start:] {
		all = append(all, e.snapshot())
	}
	// Stable keeps created_at desc, id desc among equal view counts.
	sort.SliceStable(all, func(i, j int) bool { return all[i].ViewCount > all[j].ViewCount })
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// collect copies entries from a recent-ordered slice until keep fails or
// limit is reached.
func collect(entries []*entry, limit int, keep func(*entry) bool) []*models.Confession {
	var result []*models.Confession
	for _, e := range entries {
		if len(result) >= limit || !keep(e) {
			break
		}
		result = append(result, e.snapshot())
	}
	return result
}
