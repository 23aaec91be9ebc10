package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLCache_Expiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewTTLCache[int]().WithClock(func() time.Time { return now })

	c.Set("a", 1, time.Minute)
	c.Set("forever", 2, 0)

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)

	v, ok = c.Get("forever")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestTTLCache_InvalidateTag(t *testing.T) {
	c := NewTTLCache[string]()
	c.Set("account:1", "acc1", time.Minute, "customer:1")
	c.Set("opening:1", "open1", time.Minute, "customer:1")
	c.Set("account:2", "acc2", time.Minute, "customer:2")
	c.Set("orders", "all", time.Minute, "orders", "customer:1")

	c.InvalidateTag("customer:1")

	_, ok := c.Get("account:1")
	assert.False(t, ok)
	_, ok = c.Get("opening:1")
	assert.False(t, ok)
	_, ok = c.Get("orders")
	assert.False(t, ok)
	v, ok := c.Get("account:2")
	assert.True(t, ok)
	assert.Equal(t, "acc2", v)
	assert.Equal(t, 1, c.Len())
}

func TestTTLCache_OverwriteDropsOldTags(t *testing.T) {
	c := NewTTLCache[int]()
	c.Set("k", 1, 0, "old")
	c.Set("k", 2, 0, "new")

	c.InvalidateTag("old")
	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	c.InvalidateTag("new")
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestNoopCache(t *testing.T) {
	var c Cache[int] = NoopCache[int]{}
	c.Set("k", 1, time.Minute, "t")
	_, ok := c.Get("k")
	assert.False(t, ok)
}
