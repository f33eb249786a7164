package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/studyspark-go/internal/config"
	"github.com/studyspark-go/internal/models"
)

// Service defines answer cache operations
type Service interface {
	Get(ctx context.Context, question string, settings models.Settings) (models.Message, bool)
	Set(ctx context.Context, question string, settings models.Settings, answer models.Message) error
	Clear(ctx context.Context) error
}

type entry struct {
	answer    models.Message
	createdAt time.Time
}

// Cache implements caching service
type Cache struct {
	enabled bool
	cache   *cache.Cache
	logger  *logrus.Logger
	maxSize int
}

// NewCache creates a new cache service
func NewCache(cfg *config.Config, logger *logrus.Logger) Service {
	if !cfg.Cache.Enabled {
		return &Cache{enabled: false}
	}

	return &Cache{
		enabled: true,
		cache:   cache.New(cfg.Cache.TTL, cfg.Cache.TTL*2),
		logger:  logger,
		maxSize: cfg.Cache.MaxSize,
	}
}

// Get retrieves a cached answer. Callers get their own copy.
func (c *Cache) Get(ctx context.Context, question string, settings models.Settings) (models.Message, bool) {
	if !c.enabled {
		return models.Message{}, false
	}

	if val, found := c.cache.Get(c.generateKey(question, settings)); found {
		e := val.(*entry)
		c.logger.WithFields(logrus.Fields{
			"question": question,
			"age":      time.Since(e.createdAt),
		}).Debug("Cache hit")
		return e.answer.Clone(), true
	}

	return models.Message{}, false
}

// Set stores an answer in cache
func (c *Cache) Set(ctx context.Context, question string, settings models.Settings, answer models.Message) error {
	if !c.enabled {
		return nil
	}

	if c.maxSize > 0 && c.cache.ItemCount() >= c.maxSize {
		c.logger.Warn("Cache size limit reached, clearing old entries")
		c.cache.DeleteExpired()
		if c.cache.ItemCount() >= c.maxSize {
			c.cache.Flush()
		}
	}

	c.cache.SetDefault(c.generateKey(question, settings), &entry{
		answer:    answer.Clone(),
		createdAt: time.Now(),
	})
	c.logger.WithField("question", question).Debug("Answer cached")

	return nil
}

// Clear removes all cached entries
func (c *Cache) Clear(ctx context.Context) error {
	if !c.enabled {
		return nil
	}

	c.cache.Flush()
	c.logger.Info("Cache cleared")
	return nil
}

// generateKey hashes the normalized question with every setting that
// shapes the answer
func (c *Cache) generateKey(question string, s models.Settings) string {
	data := fmt.Sprintf("%s:%t:%t:%t:%s",
		s.Language, s.SimplifiedAnswers, s.StepByStepSolutions, s.ShowSources,
		strings.ToLower(strings.TrimSpace(question)))
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
