// Package ranking scores confessions for the trending feed.
//
// A confession's score is views / (ageHours + 2)^gravity: views push it up,
// age pulls it down, and the +2 keeps brand-new posts from dominating on a
// single view.
package ranking

import (
	"math"
	"sort"
	"time"

	"github.com/dmitrijs2005/confessions/internal/server/models"
)

const (
	DefaultGravity   = 1.5
	DefaultThreshold = 1.0
)

type Params struct {
	Gravity float64
	// Threshold is the minimum score that earns the trending badge.
	Threshold float64
}

func DefaultParams() Params {
	return Params{Gravity: DefaultGravity, Threshold: DefaultThreshold}
}

// Score is monotonically non-decreasing in views and non-increasing in
// age. Negative ages count as zero.
func Score(views int64, age time.Duration, gravity float64) float64 {
	if views <= 0 {
		return 0
	}
	hours := age.Hours()
	if hours < 0 {
		hours = 0
	}
	return float64(views) / math.Pow(hours+2, gravity)
}

// Annotate sets TrendingScore and Trending on every confession as of now.
func Annotate(cs []*models.Confession, now time.Time, p Params) {
	for _, c := range cs {
		c.TrendingScore = Score(c.ViewCount, now.Sub(c.CreatedAt), p.Gravity)
		c.Trending = c.TrendingScore > 0 && c.TrendingScore >= p.Threshold
	}
}

// Rank annotates cs and sorts it in place by score desc, then created_at
// desc, then id desc.
func Rank(cs []*models.Confession, now time.Time, p Params) {
	Annotate(cs, now, p)
	sort.SliceStable(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		if a.TrendingScore != b.TrendingScore {
			return a.TrendingScore > b.TrendingScore
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}
