package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/studyspark-go/internal/config"
	"github.com/studyspark-go/internal/models"
)

// ErrNotFound is returned when a document or export does not exist
var ErrNotFound = errors.New("not found")

// Document is an uploaded PDF together with where its bytes live
type Document struct {
	models.PDFDocument
	Path       string    `json:"path"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Export is a rendered conversation transcript
type Export struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	HTML      string    `json:"html"`
	Messages  int       `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
}

// Storage interface defines storage operations
type Storage interface {
	// Document operations
	SaveDocument(ctx context.Context, doc *Document) error
	GetDocument(ctx context.Context, id string) (*Document, error)
	DeleteDocument(ctx context.Context, id string) error

	// Export operations
	SaveExport(ctx context.Context, exp *Export, ttl time.Duration) error
	GetExport(ctx context.Context, id string) (*Export, error)

	Ping(ctx context.Context) error
	Close() error
}

// Manager manages different storage backends
type Manager struct {
	storage Storage
	logger  *logrus.Logger
}

// NewManager creates a new storage manager
func NewManager(cfg *config.Config, logger *logrus.Logger) (*Manager, error) {
	var storage Storage

	switch cfg.Storage.Type {
	case "redis":
		redisStorage, err := NewRedisStorage(cfg, logger)
		if err != nil {
			return nil, err
		}
		storage = redisStorage
	case "memory":
		storage = NewMemoryStorage(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}

	logger.WithField("type", cfg.Storage.Type).Info("Storage initialized")
	return &Manager{storage: storage, logger: logger}, nil
}

func (m *Manager) SaveDocument(ctx context.Context, doc *Document) error {
	return m.storage.SaveDocument(ctx, doc)
}

func (m *Manager) GetDocument(ctx context.Context, id string) (*Document, error) {
	return m.storage.GetDocument(ctx, id)
}

func (m *Manager) DeleteDocument(ctx context.Context, id string) error {
	return m.storage.DeleteDocument(ctx, id)
}

func (m *Manager) SaveExport(ctx context.Context, exp *Export, ttl time.Duration) error {
	return m.storage.SaveExport(ctx, exp, ttl)
}

func (m *Manager) GetExport(ctx context.Context, id string) (*Export, error) {
	return m.storage.GetExport(ctx, id)
}

func (m *Manager) Ping(ctx context.Context) error {
	return m.storage.Ping(ctx)
}

func (m *Manager) Close() error {
	return m.storage.Close()
}

// RedisStorage implements storage using Redis
type RedisStorage struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewRedisStorage(cfg *config.Config, logger *logrus.Logger) (*RedisStorage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Storage.Redis.Addr,
		Password: cfg.Storage.Redis.Password,
		DB:       cfg.Storage.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStorage{
		client: client,
		logger: logger,
	}, nil
}

func documentKey(id string) string { return "document:" + id }
func exportKey(id string) string   { return "export:" + id }

func (r *RedisStorage) SaveDocument(ctx context.Context, doc *Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, documentKey(doc.ID), data, 0).Err()
}

func (r *RedisStorage) GetDocument(ctx context.Context, id string) (*Document, error) {
	var doc Document
	if err := r.getJSON(ctx, documentKey(id), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *RedisStorage) DeleteDocument(ctx context.Context, id string) error {
	return r.client.Del(ctx, documentKey(id)).Err()
}

func (r *RedisStorage) SaveExport(ctx context.Context, exp *Export, ttl time.Duration) error {
	data, err := json.Marshal(exp)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, exportKey(exp.ID), data, ttl).Err()
}

func (r *RedisStorage) GetExport(ctx context.Context, id string) (*Export, error) {
	var exp Export
	if err := r.getJSON(ctx, exportKey(id), &exp); err != nil {
		return nil, err
	}
	return &exp, nil
}

func (r *RedisStorage) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStorage) Close() error {
	return r.client.Close()
}

func (r *RedisStorage) getJSON(ctx context.Context, key string, v interface{}) error {
	data, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), v)
}

// MemoryStorage implements storage using in-memory cache
type MemoryStorage struct {
	documents *cache.Cache
	exports   *cache.Cache
	logger    *logrus.Logger
}

func NewMemoryStorage(cfg *config.Config, logger *logrus.Logger) *MemoryStorage {
	return &MemoryStorage{
		documents: cache.New(cache.NoExpiration, cache.NoExpiration),
		exports:   cache.New(cfg.Storage.Memory.DefaultExpiration, cfg.Storage.Memory.CleanupInterval),
		logger:    logger,
	}
}

func (m *MemoryStorage) SaveDocument(ctx context.Context, doc *Document) error {
	stored := *doc
	m.documents.Set(documentKey(doc.ID), &stored, cache.NoExpiration)
	return nil
}

func (m *MemoryStorage) GetDocument(ctx context.Context, id string) (*Document, error) {
	if val, found := m.documents.Get(documentKey(id)); found {
		doc := *val.(*Document)
		return &doc, nil
	}
	return nil, ErrNotFound
}

func (m *MemoryStorage) DeleteDocument(ctx context.Context, id string) error {
	m.documents.Delete(documentKey(id))
	return nil
}

func (m *MemoryStorage) SaveExport(ctx context.Context, exp *Export, ttl time.Duration) error {
	stored := *exp
	if ttl <= 0 {
		ttl = cache.DefaultExpiration
	}
	m.exports.Set(exportKey(exp.ID), &stored, ttl)
	return nil
}

func (m *MemoryStorage) GetExport(ctx context.Context, id string) (*Export, error) {
	if val, found := m.exports.Get(exportKey(id)); found {
		exp := *val.(*Export)
		return &exp, nil
	}
	return nil, ErrNotFound
}

func (m *MemoryStorage) Ping(ctx context.Context) error { return nil }

func (m *MemoryStorage) Close() error {
	m.documents.Flush()
	m.exports.Flush()
	return nil
}
