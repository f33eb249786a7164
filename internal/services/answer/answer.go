// Package answer synthesizes study answers for the reference chat service.
// Answers are canned per topic and then trimmed by the caller's settings.
package answer

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/studyspark-go/internal/models"
)

type topic struct {
	keyword string
	content string
	steps   []string
	sources []models.Source
}

var topics = []topic{
	{
		keyword: "photosynthesis",
		content: "Photosynthesis is the process where plants convert sunlight into energy. They use carbon dioxide and water to create glucose (sugar) and oxygen.",
		steps: []string{
			"Light is absorbed by chlorophyll in the chloroplasts",
			"Water molecules are split, releasing oxygen",
			"Carbon dioxide is converted into glucose using the captured light energy",
			"Oxygen is released as a byproduct",
		},
		sources: []models.Source{
			{Title: "Biology Online Textbook", URL: "#", Description: "Chapter 4: Plant Processes"},
			{Title: "National Geographic: Photosynthesis", URL: "#"},
		},
	},
	{
		keyword: "quadratic",
		content: "Quadratic equations are in the form ax² + bx + c = 0. You can solve them using the quadratic formula: x = (-b ± √(b² - 4ac)) / 2a",
		steps: []string{
			"Ensure your equation is in the standard form: ax² + bx + c = 0",
			"Identify the values of a, b, and c",
			"Substitute these values into the quadratic formula: x = (-b ± √(b² - 4ac)) / 2a",
			"Calculate the discriminant (b² - 4ac)",
			"Find both solutions by using the + and - versions of the formula",
		},
		sources: []models.Source{
			{Title: "Khan Academy: Quadratic Formula", URL: "#"},
			{Title: "Mathematics Textbook", URL: "#", Description: "Chapter 7: Quadratic Equations"},
		},
	},
}

var genericSteps = []string{
	"First, let's understand the basic concept",
	"Next, let's look at the key principles",
	"Finally, let's examine practical applications",
}

var genericSources = []models.Source{
	{Title: "Academic Resource 1", URL: "#"},
	{Title: "Educational Journal", URL: "#", Description: "Volume 34, Issue 2"},
}

// Synthesizer builds assistant messages for questions
type Synthesizer struct {
	now   func() time.Time
	newID func() string
}

// NewSynthesizer returns a synthesizer stamping answers with the wall clock
func NewSynthesizer() *Synthesizer {
	return &Synthesizer{
		now:   time.Now,
		newID: func() string { return "ai-" + uuid.NewString()[:8] },
	}
}

// Answer returns the assistant message for question under settings
func (s *Synthesizer) Answer(question string, settings models.Settings) models.Message {
	msg := models.Message{
		ID:        s.newID(),
		Role:      models.RoleAssistant,
		Timestamp: s.now(),
	}

	lower := strings.ToLower(question)
	matched := false
	for _, t := range topics {
		if strings.Contains(lower, t.keyword) {
			msg.Content = t.content
			msg.Steps = append([]string(nil), t.steps...)
			msg.Sources = append([]models.Source(nil), t.sources...)
			matched = true
			break
		}
	}
	if !matched {
		msg.Content = fmt.Sprintf("I understand your question about '%s'. Let me provide a structured explanation.", question)
		msg.Steps = append([]string(nil), genericSteps...)
		msg.Sources = append([]models.Source(nil), genericSources...)
	}

	return Trim(msg, settings)
}

// Trim applies the answer-shaping settings: simplified answers keep only the
// first sentence, and steps or sources are dropped when switched off
func Trim(msg models.Message, settings models.Settings) models.Message {
	out := msg.Clone()
	if settings.SimplifiedAnswers {
		out.Content = FirstSentence(out.Content)
	}
	if !settings.StepByStepSolutions {
		out.Steps = nil
	}
	if !settings.ShowSources {
		out.Sources = nil
	}
	return out
}

// FirstSentence returns text up to its first period, terminated by one
func FirstSentence(text string) string {
	if i := strings.Index(text, "."); i >= 0 {
		text = text[:i]
	}
	return text + "."
}
