package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyspark-go/internal/config"
	"github.com/studyspark-go/internal/models"
	"github.com/studyspark-go/pkg/logger"
)

func newTestCache(enabled bool, maxSize int) Service {
	cfg := &config.Config{}
	cfg.Cache.Enabled = enabled
	cfg.Cache.TTL = time.Minute
	cfg.Cache.MaxSize = maxSize
	return NewCache(cfg, logger.Discard())
}

func TestCacheKeyedBySettings(t *testing.T) {
	c := newTestCache(true, 10)
	ctx := context.Background()
	settings := models.DefaultSettings()
	answer := models.Message{ID: "ai-1", Content: "full", Steps: []string{"a"}}

	require.NoError(t, c.Set(ctx, "Photosynthesis?", settings, answer))

	got, ok := c.Get(ctx, "  photosynthesis? ", settings)
	require.True(t, ok)
	assert.Equal(t, "full", got.Content)

	got.Steps[0] = "mutated"
	again, _ := c.Get(ctx, "photosynthesis?", settings)
	assert.Equal(t, "a", again.Steps[0])

	settings.SimplifiedAnswers = true
	_, ok = c.Get(ctx, "photosynthesis?", settings)
	assert.False(t, ok)

	settings.FontSize = models.FontLarge
	settings.SimplifiedAnswers = false
	_, ok = c.Get(ctx, "photosynthesis?", settings)
	assert.True(t, ok, "font size does not shape answers")
}

func TestCacheDisabled(t *testing.T) {
	c := newTestCache(false, 10)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "q", models.DefaultSettings(), models.Message{ID: "ai-1"}))
	_, ok := c.Get(ctx, "q", models.DefaultSettings())
	assert.False(t, ok)
	assert.NoError(t, c.Clear(ctx))
}

func TestCacheSizeLimit(t *testing.T) {
	c := newTestCache(true, 2)
	ctx := context.Background()
	s := models.DefaultSettings()
	require.NoError(t, c.Set(ctx, "one", s, models.Message{ID: "1"}))
	require.NoError(t, c.Set(ctx, "two", s, models.Message{ID: "2"}))
	require.NoError(t, c.Set(ctx, "three", s, models.Message{ID: "3"}))

	got, ok := c.Get(ctx, "three", s)
	require.True(t, ok)
	assert.Equal(t, "3", got.ID)
	assert.LessOrEqual(t, c.(*Cache).cache.ItemCount(), 2)
}
