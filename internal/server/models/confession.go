package models

import "time"

// Confession is an accepted, anonymous post. It deliberately has no field
// pointing back to an identity or a submission window.
type Confession struct {
	ID              string
	Content         string
	GeneralLocation string
	CreatedAt       time.Time
	ViewCount       int64

	// TrendingScore and Trending are derived at query time and never stored.
	TrendingScore float64
	Trending      bool
}

// FeedPosition is a keyset position in the recent ordering
// (created_at desc, id desc).
type FeedPosition struct {
	CreatedAt time.Time
	ID        string
}

// Before reports whether c sorts strictly after p in the recent ordering,
// i.e. whether c belongs on a page that starts after p.
func (p FeedPosition) Before(c *Confession) bool {
	if c.CreatedAt.Equal(p.CreatedAt) {
		return c.ID < p.ID
	}
	return c.CreatedAt.Before(p.CreatedAt)
}
