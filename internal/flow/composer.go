package flow

import "sync"

// Composer holds the draft question the user is typing or dictating
type Composer struct {
	mu   sync.Mutex
	text string
}

// Text returns the current draft
func (c *Composer) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}

func (c *Composer) set(text string) {
	c.mu.Lock()
	c.text = text
	c.mu.Unlock()
}

func (c *Composer) clear() {
	c.set("")
}

// clearIf empties the draft only while it still holds text
func (c *Composer) clearIf(text string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.text != text {
		return false
	}
	c.text = ""
	return true
}
