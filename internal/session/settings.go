package session

import (
	"sync"

	"github.com/studyspark-go/internal/models"
)

// SettingsStore holds one session's preferences
type SettingsStore struct {
	mu       sync.RWMutex
	settings models.Settings
}

// NewSettingsStore creates a store seeded with initial
func NewSettingsStore(initial models.Settings) *SettingsStore {
	return &SettingsStore{settings: initial}
}

// Get returns a snapshot of the current settings
func (s *SettingsStore) Get() models.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Update merges patch into the current settings and returns the result
func (s *SettingsStore) Update(patch models.SettingsPatch) models.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = patch.Apply(s.settings)
	return s.settings
}
