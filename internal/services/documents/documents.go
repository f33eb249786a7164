// Package documents accepts uploaded study materials, keeps their bytes on
// disk and records their metadata in storage.
package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/studyspark-go/internal/models"
	"github.com/studyspark-go/internal/services/storage"
)

var (
	// ErrNoFile is returned for an upload without a file name
	ErrNoFile = errors.New("no selected file")
	// ErrNotPDF is returned when the file name does not end in .pdf
	ErrNotPDF = errors.New("file must be a PDF")
	// ErrTooLarge is returned when the file exceeds the configured size
	ErrTooLarge = errors.New("file is too large")
)

// Store is the subset of storage the service needs
type Store interface {
	SaveDocument(ctx context.Context, doc *storage.Document) error
	GetDocument(ctx context.Context, id string) (*storage.Document, error)
	DeleteDocument(ctx context.Context, id string) error
}

// Service saves uploads under a directory
type Service struct {
	dir     string
	maxSize int64
	store   Store
	logger  *logrus.Logger
	newID   func() string
}

// NewService creates the upload directory if needed
func NewService(dir string, maxSize int64, store Store, logger *logrus.Logger) (*Service, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &Service{
		dir:     dir,
		maxSize: maxSize,
		store:   store,
		logger:  logger,
		newID:   func() string { return "pdf-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8] },
	}, nil
}

// IsPDFName reports whether name carries a .pdf extension
func IsPDFName(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}

// Save writes r to disk and registers the document
func (s *Service) Save(ctx context.Context, name string, r io.Reader) (*models.PDFDocument, error) {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return nil, ErrNoFile
	}
	if !IsPDFName(name) {
		return nil, ErrNotPDF
	}

	id := s.newID()
	path := filepath.Join(s.dir, id+"_"+name)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	src := r
	if s.maxSize > 0 {
		src = io.LimitReader(r, s.maxSize+1)
	}
	size, err := io.Copy(f, src)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && s.maxSize > 0 && size > s.maxSize {
		err = ErrTooLarge
	}
	if err != nil {
		os.Remove(path)
		if errors.Is(err, ErrTooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	doc := &storage.Document{
		PDFDocument: models.PDFDocument{
			ID:           id,
			Name:         name,
			Size:         info.Size(),
			LastModified: info.ModTime(),
		},
		Path:       path,
		UploadedAt: time.Now(),
	}
	if err := s.store.SaveDocument(ctx, doc); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to record document: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"id":   id,
		"name": name,
		"size": doc.Size,
	}).Info("Document uploaded")

	out := doc.PDFDocument
	return &out, nil
}

// Get returns a stored document's metadata
func (s *Service) Get(ctx context.Context, id string) (*models.PDFDocument, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	out := doc.PDFDocument
	return &out, nil
}

// Delete removes the document and its file
func (s *Service) Delete(ctx context.Context, id string) error {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	if err := os.Remove(doc.Path); err != nil && !os.IsNotExist(err) {
		s.logger.WithError(err).WithField("path", doc.Path).Warn("Failed to remove document file")
	}
	return s.store.DeleteDocument(ctx, id)
}
