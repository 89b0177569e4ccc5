package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMonotonic_NeverGoesBackwards(t *testing.T) {
	c := NewMonotonic()
	prev := c.Now()
	for i := 0; i < 1000; i++ {
		now := c.Now()
		assert.False(t, now.Before(prev))
		prev = now
	}
	assert.Equal(t, time.UTC, prev.Location())
}

func TestManual(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	c := NewManual(t0)

	c.Advance(time.Hour)
	assert.Equal(t, t0.Add(time.Hour), c.Now())

	c.Set(t0)
	assert.Equal(t, t0, c.Now())
}
