package flow

import (
	"context"
	"io"
	"time"

	"github.com/studyspark-go/internal/models"
)

// ChatService is the chat/completion collaborator
type ChatService interface {
	Chat(ctx context.Context, req models.ChatRequest) (*models.Message, error)
}

// Uploader is the PDF upload collaborator; one file per call
type Uploader interface {
	Upload(ctx context.Context, name string, r io.Reader) (*models.PDFDocument, error)
}

// Exporter is the conversation export collaborator
type Exporter interface {
	Export(ctx context.Context, messages []models.Message) (*models.ExportResponse, error)
}

// Level of a transient notification
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notice is a transient, dismissible notification. ID is an i18n message id;
// the presentation layer localizes it with Data.
type Notice struct {
	Level Level
	ID    string
	Data  map[string]interface{}
}

// Notifier surfaces notices to the user
type Notifier interface {
	Notify(n Notice)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(n Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// Metrics receives submission outcomes
type Metrics interface {
	RecordSubmission(status string, duration time.Duration)
}
