package storage

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

func memoryConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Storage.Type = "memory"
	cfg.Storage.Memory.DefaultExpiration = time.Hour
	cfg.Storage.Memory.CleanupInterval = time.Minute
	return cfg
}

func TestManagerRejectsUnknownBackend(t *testing.T) {
	cfg := memoryConfig()
	cfg.Storage.Type = "s3"
	_, err := NewManager(cfg, logger.Discard())
	assert.Error(t, err)
}

func TestMemoryDocuments(t *testing.T) {
	m, err := NewManager(memoryConfig(), logger.Discard())
	require.NoError(t, err)
	ctx := context.Background()

	doc := &Document{
		PDFDocument: models.PDFDocument{ID: "pdf-1", Name: "notes.pdf", Size: 42},
		Path:        "temp_uploads/notes.pdf",
	}
	require.NoError(t, m.SaveDocument(ctx, doc))
	doc.Name = "mutated.pdf"

	got, err := m.GetDocument(ctx, "pdf-1")
	require.NoError(t, err)
	assert.Equal(t, "notes.pdf", got.Name)
	assert.Equal(t, int64(42), got.Size)

	require.NoError(t, m.DeleteDocument(ctx, "pdf-1"))
	_, err = m.GetDocument(ctx, "pdf-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryExportsExpire(t *testing.T) {
	m, err := NewManager(memoryConfig(), logger.Discard())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, m.SaveExport(ctx, &Export{ID: "exp-1", Text: "transcript"}, 20*time.Millisecond))
	got, err := m.GetExport(ctx, "exp-1")
	require.NoError(t, err)
	assert.Equal(t, "transcript", got.Text)

	time.Sleep(40 * time.Millisecond)
	_, err = m.GetExport(ctx, "exp-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, m.Ping(ctx))
}
