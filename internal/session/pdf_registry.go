package session

import (
	"sync"

	"github.com/studyspark-go/internal/models"
)

// PDFRegistry tracks uploaded study materials and the subset sent as context
type PDFRegistry struct {
	mu     sync.RWMutex
	docs   []models.PDFDocument
	active map[string]bool
}

// NewPDFRegistry creates an empty registry
func NewPDFRegistry() *PDFRegistry {
	return &PDFRegistry{active: make(map[string]bool)}
}

// SetAll replaces the known documents. Documents that were not known before
// are activated; active ids that are no longer known are dropped.
func (r *PDFRegistry) SetAll(docs []models.PDFDocument) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setAll(docs)
}

func (r *PDFRegistry) setAll(docs []models.PDFDocument) {
	previous := make(map[string]bool, len(r.docs))
	for _, d := range r.docs {
		previous[d.ID] = true
	}

	known := make(map[string]bool, len(docs))
	for _, d := range docs {
		known[d.ID] = true
		if !previous[d.ID] {
			r.active[d.ID] = true
		}
	}
	for id := range r.active {
		if !known[id] {
			delete(r.active, id)
		}
	}

	r.docs = append([]models.PDFDocument(nil), docs...)
}

// Add appends documents to the known set
func (r *PDFRegistry) Add(docs ...models.PDFDocument) {
	if len(docs) == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	known := append([]models.PDFDocument(nil), r.docs...)
	r.setAll(append(known, docs...))
}

// Remove drops every document with id; absent ids are ignored
func (r *PDFRegistry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.docs[:0:0]
	for _, d := range r.docs {
		if d.ID != id {
			kept = append(kept, d)
		}
	}
	r.docs = kept
	delete(r.active, id)
}

// ToggleActive flips whether id is sent with the next submission and returns
// the new state. Unknown ids are left alone.
func (r *PDFRegistry) ToggleActive(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.knows(id) {
		return false
	}
	if r.active[id] {
		delete(r.active, id)
		return false
	}
	r.active[id] = true
	return true
}

// IsActive reports whether id is in the active subset
func (r *PDFRegistry) IsActive(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active[id]
}

// Documents returns the known documents in upload order
func (r *PDFRegistry) Documents() []models.PDFDocument {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]models.PDFDocument(nil), r.docs...)
}

// ActiveIDs returns the active ids in upload order
func (r *PDFRegistry) ActiveIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.active))
	seen := make(map[string]bool, len(r.active))
	for _, d := range r.docs {
		if r.active[d.ID] && !seen[d.ID] {
			ids = append(ids, d.ID)
			seen[d.ID] = true
		}
	}
	return ids
}

func (r *PDFRegistry) knows(id string) bool {
	for _, d := range r.docs {
		if d.ID == id {
			return true
		}
	}
	return false
}
