package export

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyspark-go/internal/config"
	"github.com/studyspark-go/internal/models"
	"github.com/studyspark-go/internal/services/storage"
	"github.com/studyspark-go/pkg/logger"
)

var when = time.Date(2024, 5, 6, 14, 30, 0, 0, time.UTC)

func conversation() []models.Message {
	return []models.Message{
		{ID: "user-1", Role: models.RoleUser, Content: "Explain photosynthesis", Timestamp: when},
		{
			ID: "ai-1", Role: models.RoleAssistant, Content: "Plants convert sunlight.", Timestamp: when,
			Steps:   []string{"Absorb light", "Split water"},
			Sources: []models.Source{{Title: "Biology Online Textbook", URL: "#", Description: "Chapter 4: Plant Processes"}, {Title: "Notes"}},
		},
	}
}

func TestTranscriptFormat(t *testing.T) {
	got := Transcript(conversation(), DefaultLabels, when)

	want := "Study Spark Genie - Conversation Export\n\n" +
		"Date: 2024-05-06\n\n" +
		"[2024-05-06 14:30:00] You:\nExplain photosynthesis\n\n" +
		separator + "\n\n" +
		"[2024-05-06 14:30:00] Study Spark:\nPlants convert sunlight.\n\n" +
		"Step-by-step Solution:\n1. Absorb light\n2. Split water\n\n" +
		"Sources:\n1. Biology Online Textbook (#)\n   Chapter 4: Plant Processes\n2. Notes\n\n" +
		separator + "\n\n"
	assert.Equal(t, want, got)
}

func TestTranscriptIgnoresStepsOnUserMessages(t *testing.T) {
	msgs := []models.Message{{ID: "user-1", Role: models.RoleUser, Content: "q", Steps: []string{"x"}, Timestamp: when}}
	assert.NotContains(t, Transcript(msgs, DefaultLabels, when), "Step-by-step")
}

func TestHTML(t *testing.T) {
	got := HTML(conversation(), DefaultLabels, when)
	assert.Contains(t, got, "<h1>Study Spark Genie - Conversation Export</h1>")
	assert.Contains(t, got, "<li>Absorb light</li>")
	assert.True(t, strings.Contains(got, "Biology Online Textbook: Chapter 4: Plant Processes"))
}

func TestHTMLDropsMarkupFromMessages(t *testing.T) {
	msgs := []models.Message{
		{ID: "user-1", Role: models.RoleUser, Content: "<script>alert(document.cookie)</script>", Timestamp: when},
		{
			ID: "ai-1", Role: models.RoleAssistant, Content: "ok", Timestamp: when,
			Steps:   []string{"<iframe src=//evil></iframe>"},
			Sources: []models.Source{{Title: "<b onmouseover=x>t</b>", URL: "javascript:alert(1)"}},
		},
	}
	got := HTML(msgs, DefaultLabels, when)
	assert.NotContains(t, got, "<script")
	assert.NotContains(t, got, "<iframe")
	assert.NotContains(t, got, "<b onmouseover")
	assert.NotContains(t, got, `href="javascript:`)
}

func TestServiceStoresTranscript(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage.Memory.DefaultExpiration = time.Hour
	cfg.Storage.Memory.CleanupInterval = time.Minute
	svc := NewService(storage.NewMemoryStorage(cfg, logger.Discard()), time.Hour, logger.Discard())
	svc.now = func() time.Time { return when }

	resp, err := svc.Export(context.Background(), conversation())
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "Export successful", resp.Message)

	exp, err := svc.Get(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, exp.Messages)
	assert.True(t, strings.HasPrefix(exp.Text, DefaultLabels.Title))
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "study-spark-conversation-2024-05-06.txt", FileName(when))
}
