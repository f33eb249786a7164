package flow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/studyspark-go/internal/i18n"
	"github.com/studyspark-go/internal/models"
)

// ErrNoPDFs is returned when a batch holds no PDF files at all
var ErrNoPDFs = errors.New("no pdf files in batch")

// UploadFile is one file picked by the user
type UploadFile struct {
	Name        string
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// IsPDF reports whether the file looks like a PDF by MIME type or extension
func (u UploadFile) IsPDF() bool {
	if strings.EqualFold(u.ContentType, "application/pdf") {
		return true
	}
	return strings.EqualFold(filepath.Ext(u.Name), ".pdf")
}

// FileError names a file that failed to upload
type FileError struct {
	Name string
	Err  error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

func (e FileError) Unwrap() error { return e.Err }

// BatchResult is the outcome of UploadBatch. Skipped lists non-PDF names.
type BatchResult struct {
	Uploaded []models.PDFDocument
	Failed   []FileError
	Skipped  []string
}

// Err joins every per-file failure, or returns nil
func (r BatchResult) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failed))
	for _, fe := range r.Failed {
		errs = append(errs, fe)
	}
	return errors.Join(errs...)
}

// UploadBatch uploads each PDF independently. Successes join the registry
// as active context even when other files in the batch fail.
func (f *Flow) UploadBatch(ctx context.Context, files []UploadFile) (BatchResult, error) {
	var result BatchResult
	if f.uploads == nil {
		return result, errors.New("uploads are not configured")
	}

	pdfs := make([]UploadFile, 0, len(files))
	for _, file := range files {
		if file.IsPDF() {
			pdfs = append(pdfs, file)
		} else {
			result.Skipped = append(result.Skipped, file.Name)
		}
	}
	if len(pdfs) == 0 {
		f.notifier.Notify(Notice{Level: LevelError, ID: i18n.MsgUploadPDFOnly})
		return result, ErrNoPDFs
	}

	// the hint is for the batch that first brings documents into the session
	firstUpload := len(f.session.PDFs.Documents()) == 0

	for _, file := range pdfs {
		doc, err := f.uploadOne(ctx, file)
		if err != nil {
			f.logger.WithError(err).WithField("file", file.Name).Warn("Failed to upload file")
			result.Failed = append(result.Failed, FileError{Name: file.Name, Err: err})
			continue
		}
		result.Uploaded = append(result.Uploaded, *doc)
	}

	if len(result.Uploaded) > 0 {
		f.session.PDFs.Add(result.Uploaded...)

		f.notifier.Notify(Notice{
			Level: LevelSuccess,
			ID:    i18n.MsgUploadSucceeded,
			Data:  map[string]interface{}{"Count": len(result.Uploaded)},
		})
		if firstUpload && f.session.Conversation.Len() == 0 {
			f.notifier.Notify(Notice{Level: LevelInfo, ID: i18n.MsgUploadHint})
		}
	}

	if len(result.Failed) > 0 {
		names := make([]string, 0, len(result.Failed))
		for _, fe := range result.Failed {
			names = append(names, fe.Name)
		}
		f.notifier.Notify(Notice{
			Level: LevelError,
			ID:    i18n.MsgUploadFailed,
			Data:  map[string]interface{}{"Files": strings.Join(names, ", ")},
		})
	}

	f.logger.WithFields(logrus.Fields{
		"uploaded": len(result.Uploaded),
		"failed":   len(result.Failed),
		"skipped":  len(result.Skipped),
	}).Info("Upload batch finished")

	return result, result.Err()
}

func (f *Flow) uploadOne(ctx context.Context, file UploadFile) (*models.PDFDocument, error) {
	if file.Open == nil {
		return nil, errors.New("file has no content")
	}
	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer rc.Close()

	doc, err := f.uploads.Upload(ctx, file.Name, rc)
	if err != nil {
		return nil, err
	}
	if doc == nil || doc.ID == "" {
		return nil, errors.New("upload returned no document id")
	}
	if doc.Name == "" {
		doc.Name = file.Name
	}
	return doc, nil
}
