package models

import (
	"fmt"
	"strings"
	"time"
)

// Role identifies who authored a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "ai"
)

// Message represents one entry in the conversation log
type Message struct {
	ID            string    `json:"id"`
	Role          Role      `json:"type"`
	Content       string    `json:"content"`
	Steps         []string  `json:"steps,omitempty"`
	Sources       []Source  `json:"sources,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	RelatedPDFIDs []string  `json:"relatedPdfIds,omitempty"`
}

// IsAssistant reports whether the message was produced by the chat collaborator
func (m Message) IsAssistant() bool {
	return m.Role == RoleAssistant
}

// Clone returns a deep copy so callers can't mutate a logged message
func (m Message) Clone() Message {
	out := m
	if m.Steps != nil {
		out.Steps = append([]string(nil), m.Steps...)
	}
	if m.Sources != nil {
		out.Sources = append([]Source(nil), m.Sources...)
	}
	if m.RelatedPDFIDs != nil {
		out.RelatedPDFIDs = append([]string(nil), m.RelatedPDFIDs...)
	}
	return out
}

// Source is a citation attached to an assistant message
type Source struct {
	Title       string `json:"title"`
	URL         string `json:"url,omitempty"`
	Description string `json:"description,omitempty"`
}

// PDFDocument references an uploaded study material
type PDFDocument struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
}

// FontSize is a purely presentational setting
type FontSize string

const (
	FontSmall  FontSize = "small"
	FontMedium FontSize = "medium"
	FontLarge  FontSize = "large"
)

// ParseFontSize validates a font size name
func ParseFontSize(s string) (FontSize, error) {
	switch fs := FontSize(strings.ToLower(strings.TrimSpace(s))); fs {
	case FontSmall, FontMedium, FontLarge:
		return fs, nil
	default:
		return "", fmt.Errorf("unknown font size: %q", s)
	}
}

// Settings holds the session's display and behavior preferences
type Settings struct {
	Language            Language `json:"language"`
	VoiceEnabled        bool     `json:"voiceEnabled"`
	SimplifiedAnswers   bool     `json:"simplifiedAnswers"`
	StepByStepSolutions bool     `json:"stepByStepSolutions"`
	ShowSources         bool     `json:"showSources"`
	FontSize            FontSize `json:"fontSize"`
}

// DefaultSettings returns the settings every new session starts with
func DefaultSettings() Settings {
	return Settings{
		Language:            English,
		VoiceEnabled:        true,
		SimplifiedAnswers:   false,
		StepByStepSolutions: true,
		ShowSources:         true,
		FontSize:            FontMedium,
	}
}

// SettingsPatch is a partial settings update; nil fields are left untouched
type SettingsPatch struct {
	Language            *Language
	VoiceEnabled        *bool
	SimplifiedAnswers   *bool
	StepByStepSolutions *bool
	ShowSources         *bool
	FontSize            *FontSize
}

// Apply merges the patch into s and returns the result
func (p SettingsPatch) Apply(s Settings) Settings {
	if p.Language != nil {
		s.Language = *p.Language
	}
	if p.VoiceEnabled != nil {
		s.VoiceEnabled = *p.VoiceEnabled
	}
	if p.SimplifiedAnswers != nil {
		s.SimplifiedAnswers = *p.SimplifiedAnswers
	}
	if p.StepByStepSolutions != nil {
		s.StepByStepSolutions = *p.StepByStepSolutions
	}
	if p.ShowSources != nil {
		s.ShowSources = *p.ShowSources
	}
	if p.FontSize != nil {
		s.FontSize = *p.FontSize
	}
	return s
}

// ChatRequest is the body sent to the chat collaborator
type ChatRequest struct {
	Message  string   `json:"message"`
	Settings Settings `json:"settings"`
	PDFIDs   []string `json:"pdfIds"`
}

// ExportRequest is the body sent to the export collaborator
type ExportRequest struct {
	Messages []Message `json:"messages"`
}

// ExportResponse is the export collaborator's reply
type ExportResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	ID      string `json:"id,omitempty"`
}

// ErrorResponse is returned by the collaborator on 4xx/5xx
type ErrorResponse struct {
	Error string `json:"error"`
}
