package backend

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/studyspark-go/internal/config"
	"github.com/studyspark-go/internal/models"
	"github.com/studyspark-go/internal/services/answer"
	"github.com/studyspark-go/internal/services/cache"
	"github.com/studyspark-go/internal/services/documents"
	"github.com/studyspark-go/internal/services/export"
	"github.com/studyspark-go/internal/services/storage"
)

// Local answers, stores uploads and exports in-process. It backs both the
// HTTP API and the bot's standalone mode.
type Local struct {
	answers   *answer.Synthesizer
	cache     cache.Service
	documents *documents.Service
	exports   *export.Service
	logger    *logrus.Logger
	metrics   CacheMetrics
	now       func() time.Time
}

// CacheMetrics observes answer cache lookups
type CacheMetrics interface {
	RecordCacheHit()
	RecordCacheMiss()
}

// NewLocal wires the in-process collaborators; cache may be nil
func NewLocal(answers *answer.Synthesizer, c cache.Service, docs *documents.Service, exports *export.Service, logger *logrus.Logger) *Local {
	return &Local{
		answers:   answers,
		cache:     c,
		documents: docs,
		exports:   exports,
		logger:    logger,
		now:       time.Now,
	}
}

// NewLocalFromConfig builds the in-process collaborators over store
func NewLocalFromConfig(cfg *config.Config, store storage.Storage, logger *logrus.Logger) (*Local, error) {
	docs, err := documents.NewService(cfg.Uploads.Directory, cfg.Uploads.MaxFileSize, store, logger)
	if err != nil {
		return nil, err
	}
	exports := export.NewService(store, cfg.Exports.TTL, logger)
	return NewLocal(answer.NewSynthesizer(), cache.NewCache(cfg, logger), docs, exports, logger), nil
}

// WithMetrics reports cache lookups to m
func (l *Local) WithMetrics(m CacheMetrics) *Local {
	l.metrics = m
	return l
}

// Chat synthesizes an answer, serving repeated questions from the cache.
// Cached answers get a fresh id and timestamp.
func (l *Local) Chat(ctx context.Context, req models.ChatRequest) (*models.Message, error) {
	question := strings.TrimSpace(req.Message)

	if l.cache != nil {
		msg, ok := l.cache.Get(ctx, question, req.Settings)
		l.observe(ok)
		if ok {
			msg.ID = "ai-" + uuid.NewString()[:8]
			msg.Timestamp = l.now()
			msg.RelatedPDFIDs = req.PDFIDs
			return &msg, nil
		}
	}

	msg := l.answers.Answer(question, req.Settings)
	msg.RelatedPDFIDs = req.PDFIDs

	if l.cache != nil {
		if err := l.cache.Set(ctx, question, req.Settings, msg); err != nil {
			l.logger.WithError(err).Warn("Failed to cache answer")
		}
	}

	l.logger.WithFields(logrus.Fields{
		"id":      msg.ID,
		"pdf_ids": len(req.PDFIDs),
		"steps":   len(msg.Steps),
		"sources": len(msg.Sources),
	}).Debug("Answer synthesized")

	return &msg, nil
}

// Upload stores one PDF
func (l *Local) Upload(ctx context.Context, name string, r io.Reader) (*models.PDFDocument, error) {
	return l.documents.Save(ctx, name, r)
}

// Export renders and stores the conversation
func (l *Local) Export(ctx context.Context, messages []models.Message) (*models.ExportResponse, error) {
	return l.exports.Export(ctx, messages)
}

// Document returns a stored PDF's metadata
func (l *Local) Document(ctx context.Context, id string) (*models.PDFDocument, error) {
	return l.documents.Get(ctx, id)
}

// RemoveDocument deletes a stored PDF and its file
func (l *Local) RemoveDocument(ctx context.Context, id string) error {
	if err := l.documents.Delete(ctx, id); err != nil {
		return err
	}
	l.logger.WithField("id", id).Info("Document removed")
	return nil
}

// Exports exposes the export service
func (l *Local) Exports() *export.Service { return l.exports }

func (l *Local) observe(hit bool) {
	if l.metrics == nil {
		return
	}
	if hit {
		l.metrics.RecordCacheHit()
	} else {
		l.metrics.RecordCacheMiss()
	}
}
