// Package export renders conversations into downloadable transcripts.
package export

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/studyspark-go/internal/models"
	"github.com/studyspark-go/internal/services/storage"
	"github.com/studyspark-go/pkg/markdown"
)

const separator = "-------------------------------------------"

// Labels are the localized strings a transcript is built from
type Labels struct {
	Title     string
	User      string
	Assistant string
	Steps     string
	Sources   string
}

// DefaultLabels are the English transcript labels
var DefaultLabels = Labels{
	Title:     "Study Spark Genie - Conversation Export",
	User:      "You",
	Assistant: "Study Spark",
	Steps:     "Step-by-step Solution:",
	Sources:   "Sources:",
}

// Transcript renders messages as plain text
func Transcript(messages []models.Message, labels Labels, date time.Time) string {
	var b strings.Builder
	b.WriteString(labels.Title + "\n\n")
	fmt.Fprintf(&b, "Date: %s\n\n", date.Format("2006-01-02"))

	for _, msg := range messages {
		sender := labels.User
		if msg.IsAssistant() {
			sender = labels.Assistant
		}
		fmt.Fprintf(&b, "[%s] %s:\n%s\n\n", msg.Timestamp.Format("2006-01-02 15:04:05"), sender, msg.Content)

		if msg.IsAssistant() && len(msg.Steps) > 0 {
			b.WriteString(labels.Steps + "\n")
			for i, step := range msg.Steps {
				fmt.Fprintf(&b, "%d. %s\n", i+1, step)
			}
			b.WriteString("\n")
		}

		if msg.IsAssistant() && len(msg.Sources) > 0 {
			b.WriteString(labels.Sources + "\n")
			for i, src := range msg.Sources {
				fmt.Fprintf(&b, "%d. %s", i+1, src.Title)
				if src.URL != "" {
					fmt.Fprintf(&b, " (%s)", src.URL)
				}
				b.WriteString("\n")
				if src.Description != "" {
					fmt.Fprintf(&b, "   %s\n", src.Description)
				}
			}
			b.WriteString("\n")
		}

		b.WriteString(separator + "\n\n")
	}
	return b.String()
}

// HTML renders messages as an HTML document fragment
func HTML(messages []models.Message, labels Labels, date time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n_%s_\n\n", labels.Title, date.Format("2006-01-02"))
	for _, msg := range messages {
		sender := labels.User
		if msg.IsAssistant() {
			sender = labels.Assistant
		}
		fmt.Fprintf(&b, "**%s** (%s)\n\n%s\n\n", sender, msg.Timestamp.Format("2006-01-02 15:04"), msg.Content)
		if msg.IsAssistant() && len(msg.Steps) > 0 {
			fmt.Fprintf(&b, "**%s**\n\n", labels.Steps)
			for i, step := range msg.Steps {
				fmt.Fprintf(&b, "%d. %s\n", i+1, step)
			}
			b.WriteString("\n")
		}
		if msg.IsAssistant() && len(msg.Sources) > 0 {
			fmt.Fprintf(&b, "**%s**\n\n", labels.Sources)
			for _, src := range msg.Sources {
				if src.URL != "" && src.URL != "#" {
					fmt.Fprintf(&b, "- [%s](%s)", src.Title, src.URL)
				} else {
					fmt.Fprintf(&b, "- %s", src.Title)
				}
				if src.Description != "" {
					fmt.Fprintf(&b, ": %s", src.Description)
				}
				b.WriteString("\n")
			}
			b.WriteString("\n")
		}
		b.WriteString("---\n\n")
	}
	return markdown.ToSafeHTML(b.String())
}

// Store keeps rendered transcripts
type Store interface {
	SaveExport(ctx context.Context, exp *storage.Export, ttl time.Duration) error
	GetExport(ctx context.Context, id string) (*storage.Export, error)
}

// Service renders and stores transcripts
type Service struct {
	store  Store
	ttl    time.Duration
	logger *logrus.Logger
	now    func() time.Time
}

// NewService creates an export service keeping transcripts for ttl
func NewService(store Store, ttl time.Duration, logger *logrus.Logger) *Service {
	return &Service{store: store, ttl: ttl, logger: logger, now: time.Now}
}

// Export renders and stores messages, returning the stored transcript's id
func (s *Service) Export(ctx context.Context, messages []models.Message) (*models.ExportResponse, error) {
	now := s.now()
	exp := &storage.Export{
		ID:        "export-" + uuid.NewString(),
		Text:      Transcript(messages, DefaultLabels, now),
		HTML:      HTML(messages, DefaultLabels, now),
		Messages:  len(messages),
		CreatedAt: now,
	}
	if err := s.store.SaveExport(ctx, exp, s.ttl); err != nil {
		return nil, fmt.Errorf("failed to store export: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"id":       exp.ID,
		"messages": exp.Messages,
	}).Info("Conversation exported")

	return &models.ExportResponse{Success: true, Message: "Export successful", ID: exp.ID}, nil
}

// Get returns a stored transcript
func (s *Service) Get(ctx context.Context, id string) (*storage.Export, error) {
	return s.store.GetExport(ctx, id)
}

// FileName is the suggested download name for a transcript made on date
func FileName(date time.Time) string {
	return "study-spark-conversation-" + date.Format("2006-01-02") + ".txt"
}
