// Package session holds the state one user's conversation owns: settings,
// the message log and the PDF context registry. A Session is passed
// explicitly to the flow and presentation layers; there is no package-level
// state, so any number of sessions can live in one process.
package session

import (
	"time"

	"github.com/studyspark-go/internal/models"
)

// Session bundles the stores owned by one conversation
type Session struct {
	ID           string
	CreatedAt    time.Time
	Settings     *SettingsStore
	Conversation *ConversationStore
	PDFs         *PDFRegistry
}

// New creates a session with the given starting settings
func New(id string, settings models.Settings) *Session {
	return &Session{
		ID:           id,
		CreatedAt:    time.Now(),
		Settings:     NewSettingsStore(settings),
		Conversation: NewConversationStore(),
		PDFs:         NewPDFRegistry(),
	}
}
