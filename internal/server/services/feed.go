package services

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/dmitrijs2005/confessions/internal/common"
	"github.com/dmitrijs2005/confessions/internal/logging"
	"github.com/dmitrijs2005/confessions/internal/server/clock"
	"github.com/dmitrijs2005/confessions/internal/server/config"
	"github.com/dmitrijs2005/confessions/internal/server/models"
	"github.com/dmitrijs2005/confessions/internal/server/ranking"
	"github.com/dmitrijs2005/confessions/internal/server/repositories/repomanager"
)

type FeedOrder string

const (
	OrderRecent   FeedOrder = "recent"
	OrderTrending FeedOrder = "trending"
)

// ParseFeedOrder accepts "recent" and "trending"; empty means recent.
func ParseFeedOrder(s string) (FeedOrder, error) {
	switch FeedOrder(s) {
	case "", OrderRecent:
		return OrderRecent, nil
	case OrderTrending:
		return OrderTrending, nil
	}
	return "", common.ErrInvalidOrder
}

type FeedRequest struct {
	Order  FeedOrder
	Cursor string
	Limit  int
}

// FeedPage is one page of a feed. NextCursor is empty on the last page.
type FeedPage struct {
	Items      []*models.Confession
	NextCursor string
}

// FeedService serves the confession feeds and counts views.
type FeedService struct {
	repomanager  repomanager.RepositoryManager
	clock        clock.Clock
	logger       logging.Logger
	params       ranking.Params
	horizon      time.Duration
	candidates   int
	defaultLimit int
	maxLimit     int
	timeout      time.Duration
}

func NewFeedService(m repomanager.RepositoryManager, clk clock.Clock, logger logging.Logger, cfg *config.Config) *FeedService {
	return &FeedService{
		repomanager:  m,
		clock:        clk,
		logger:       logger.With("module", "feed"),
		params:       ranking.Params{Gravity: cfg.TrendingGravity, Threshold: cfg.TrendingThreshold},
		horizon:      cfg.TrendingHorizon,
		candidates:   cfg.TrendingCandidates,
		defaultLimit: cfg.FeedDefaultLimit,
		maxLimit:     cfg.FeedMaxLimit,
		timeout:      cfg.StorageTimeout,
	}
}

// Feed returns one page in the requested order. Limits outside
// [1, max] are replaced by the default or clamped to the max.
func (s *FeedService) Feed(ctx context.Context, req FeedRequest) (*FeedPage, error) {
	limit := s.clampLimit(req.Limit)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	switch req.Order {
	case OrderRecent, "":
		return s.recent(ctx, req.Cursor, limit)
	case OrderTrending:
		return s.trending(ctx, req.Cursor, limit)
	}
	return nil, common.ErrInvalidOrder
}

// RecordView increments the view counter of id and returns the new count.
func (s *FeedService) RecordView(ctx context.Context, id string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	n, err := s.repomanager.Confessions().IncrementViews(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return 0, err
		}
		return 0, s.storageError(ctx, "record view failed", err)
	}
	return n, nil
}

// All walks a feed page by page, yielding each confession once. Iteration
// stops at the first error, which is yielded with a nil confession.
func (s *FeedService) All(ctx context.Context, order FeedOrder, pageSize int) iter.Seq2[*models.Confession, error] {
	return func(yield func(*models.Confession, error) bool) {
		cursor := ""
		for {
			page, err := s.Feed(ctx, FeedRequest{Order: order, Cursor: cursor, Limit: pageSize})
			if err != nil {
				yield(nil, err)
				return
			}
			for _, c := range page.Items {
				if !yield(c, nil) {
					return
				}
			}
			if page.NextCursor == "" {
				return
			}
			cursor = page.NextCursor
		}
	}
}

func (s *FeedService) clampLimit(limit int) int {
	if limit <= 0 {
		return s.defaultLimit
	}
	if limit > s.maxLimit {
		return s.maxLimit
	}
	return limit
}

func (s *FeedService) recent(ctx context.Context, cursor string, limit int) (*FeedPage, error) {
	var after *models.FeedPosition
	if cursor != "" {
		var err error
		if after, err = decodeRecentCursor(cursor); err != nil {
			return nil, err
		}
	}

	items, err := s.repomanager.Confessions().ListRecent(ctx, after, limit+1)
	if err != nil {
		return nil, s.storageError(ctx, "list recent failed", err)
	}

	page := &FeedPage{Items: items}
	if len(items) > limit {
		page.Items = items[:limit]
		last := page.Items[limit-1]
		if page.NextCursor, err = encodeCursor(recentCursor{CreatedAt: last.CreatedAt, ID: last.ID}); err != nil {
			return nil, err
		}
	}
	ranking.Annotate(page.Items, s.clock.Now(), s.params)
	return page, nil
}

func (s *FeedService) trending(ctx context.Context, cursor string, limit int) (*FeedPage, error) {
	pos := &trendingCursor{AsOf: s.clock.Now()}
	if cursor != "" {
		var err error
		if pos, err = decodeTrendingCursor(cursor); err != nil {
			return nil, err
		}
	}

	eligible, err := s.trendingCandidates(ctx, pos.AsOf)
	if err != nil {
		return nil, s.storageError(ctx, "list trending candidates failed", err)
	}
	ranking.Rank(eligible, pos.AsOf, s.params)

	if pos.Offset >= len(eligible) {
		return &FeedPage{}, nil
	}
	end := min(pos.Offset+limit, len(eligible))

	page := &FeedPage{Items: eligible[pos.Offset:end]}
	if end < len(eligible) {
		if page.NextCursor, err = encodeCursor(trendingCursor{AsOf: pos.AsOf, Offset: end}); err != nil {
			return nil, err
		}
	}
	return page, nil
}

// trendingCandidates merges the newest posts inside the horizon with the
// most viewed posts up to asOf. Older posts reach the ranking only through
// their views, so unviewed ones outside the horizon are left out.
func (s *FeedService) trendingCandidates(ctx context.Context, asOf time.Time) ([]*models.Confession, error) {
	repo := s.repomanager.Confessions()

	fresh, err := repo.ListSince(ctx, asOf.Add(-s.horizon), asOf, s.candidates)
	if err != nil {
		return nil, err
	}
	popular, err := repo.ListMostViewed(ctx, asOf, s.candidates)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(fresh)+len(popular))
	out := make([]*models.Confession, 0, len(fresh)+len(popular))
	for _, c := range fresh {
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	for _, c := range popular {
		if c.ViewCount == 0 {
			break
		}
		if _, ok := seen[c.ID]; ok {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *FeedService) storageError(ctx context.Context, msg string, err error) error {
	if errors.Is(err, common.ErrInvariantViolation) {
		s.logger.Error(ctx, msg, "error", err, "alert", true)
		return err
	}
	s.logger.Warn(ctx, msg, "error", err)
	return fmt.Errorf("%w: %v", common.ErrStorageUnavailable, err)
}
