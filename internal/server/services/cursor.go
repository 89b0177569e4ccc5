package services

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/dmitrijs2005/confessions/internal/common"
	"github.com/dmitrijs2005/confessions/internal/server/models"
)

// recentCursor is a keyset position in the recent feed.
type recentCursor struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
}

// trendingCursor pins the ranking clock of a scroll session.
type trendingCursor struct {
	AsOf   time.Time `json:"as_of"`
	Offset int       `json:"offset"`
}

func encodeCursor(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func decodeCursor(s string, v any) error {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return common.ErrInvalidCursor
	}
	if err := json.Unmarshal(b, v); err != nil {
		return common.ErrInvalidCursor
	}
	return nil
}

func decodeRecentCursor(s string) (*models.FeedPosition, error) {
	var c recentCursor
	if err := decodeCursor(s, &c); err != nil {
		return nil, err
	}
	if c.ID == "" || c.CreatedAt.IsZero() {
		return nil, common.ErrInvalidCursor
	}
	return &models.FeedPosition{CreatedAt: c.CreatedAt, ID: c.ID}, nil
}

func decodeTrendingCursor(s string) (*trendingCursor, error) {
	var c trendingCursor
	if err := decodeCursor(s, &c); err != nil {
		return nil, err
	}
	if c.AsOf.IsZero() || c.Offset < 0 {
		return nil, common.ErrInvalidCursor
	}
	return &c, nil
}
