// Package confessions declares the repository contract for accepted
// confessions. Rows hold no reference to any identity.
package confessions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/confessions/internal/server/models"
)

type Repository interface {
	// Create stores a new confession. Only the admission transaction calls it.
	Create(ctx context.Context, c *models.Confession) error

	// Get returns a confession by id or common.ErrorNotFound.
	Get(ctx context.Context, id string) (*models.Confession, error)

	// IncrementViews atomically adds one view and returns the new count, or
	// common.ErrorNotFound when the confession does not exist.
	IncrementViews(ctx context.Context, id string) (int64, error)

	// ListRecent returns up to limit confessions ordered by created_at desc,
	// id desc, starting strictly after the given position (nil for the top).
	ListRecent(ctx context.Context, after *models.FeedPosition, limit int) ([]*models.Confession, error)

	// ListSince returns up to limit of the newest confessions created in
	// [since, until], newest first.
	ListSince(ctx context.Context, since, until time.Time, limit int) ([]*models.Confession, error)

	// ListMostViewed returns up to limit confessions created at or before
	// until, by view_count desc, then created_at desc, id desc.
	ListMostViewed(ctx context.Context, until time.Time, limit int) ([]*models.Confession, error)
}
