package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCache_SetGetExpire(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New[float64]()
	c.now = func() time.Time { return now }

	c.Set("BRENT", 81.5, time.Minute)
	v, ok := c.Get("BRENT")
	assert.True(t, ok)
	assert.Equal(t, 81.5, v)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("BRENT")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCache_Cleanup(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New[string]()
	c.now = func() time.Time { return now }

	c.Set("a", "x", time.Second)
	c.Set("b", "y", time.Hour)
	now = now.Add(time.Minute)

	assert.Equal(t, 1, c.Cleanup())
	assert.Equal(t, 1, c.Len())
}
