package answer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyspark-go/internal/models"
)

func fixed() *Synthesizer {
	s := NewSynthesizer()
	s.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	s.newID = func() string { return "ai-test" }
	return s
}

func TestPhotosynthesisAnswer(t *testing.T) {
	msg := fixed().Answer("Explain photosynthesis in simple terms", models.DefaultSettings())

	assert.Equal(t, "ai-test", msg.ID)
	assert.Equal(t, models.RoleAssistant, msg.Role)
	assert.Contains(t, msg.Content, "Photosynthesis is the process")
	require.Len(t, msg.Steps, 4)
	require.Len(t, msg.Sources, 2)
	assert.Equal(t, "Biology Online Textbook", msg.Sources[0].Title)
	assert.Equal(t, "Chapter 4: Plant Processes", msg.Sources[0].Description)
	assert.False(t, msg.Timestamp.IsZero())
}

func TestQuadraticAnswerIsCaseInsensitive(t *testing.T) {
	msg := fixed().Answer("How do I solve QUADRATIC equations?", models.DefaultSettings())
	assert.Len(t, msg.Steps, 5)
	assert.Equal(t, "Khan Academy: Quadratic Formula", msg.Sources[0].Title)
}

func TestGenericAnswerEchoesQuestion(t *testing.T) {
	msg := fixed().Answer("What caused the French Revolution?", models.DefaultSettings())
	assert.Equal(t, "I understand your question about 'What caused the French Revolution?'. Let me provide a structured explanation.", msg.Content)
	assert.Len(t, msg.Steps, 3)
	assert.Equal(t, "Volume 34, Issue 2", msg.Sources[1].Description)
}

func TestSettingsTrimAnswer(t *testing.T) {
	settings := models.DefaultSettings()
	settings.SimplifiedAnswers = true
	settings.StepByStepSolutions = false
	settings.ShowSources = false

	msg := fixed().Answer("photosynthesis", settings)
	assert.Equal(t, "Photosynthesis is the process where plants convert sunlight into energy.", msg.Content)
	assert.Empty(t, msg.Steps)
	assert.Empty(t, msg.Sources)
}

func TestAnswersDoNotShareCannedSlices(t *testing.T) {
	s := fixed()
	first := s.Answer("photosynthesis", models.DefaultSettings())
	first.Steps[0] = "mutated"
	second := s.Answer("photosynthesis", models.DefaultSettings())
	assert.Equal(t, "Light is absorbed by chlorophyll in the chloroplasts", second.Steps[0])
}

func TestFirstSentence(t *testing.T) {
	assert.Equal(t, "One.", FirstSentence("One. Two."))
	assert.Equal(t, "No period.", FirstSentence("No period"))
}
