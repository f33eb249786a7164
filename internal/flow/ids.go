package flow

import (
	"fmt"
	"sync"
	"time"
)

// idGenerator hands out role-prefixed millisecond timestamps, bumped when
// two ids would land on the same millisecond so none is ever reused
type idGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func (g *idGenerator) next(prefix string) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now().UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return fmt.Sprintf("%s-%d", prefix, ms)
}
