package testutil

import (
	"fmt"
	"sync"
)

// SequentialRunIDs hands out "<prefix>-1", "<prefix>-2", ... so traces and
// golden files stay stable across test runs.
type SequentialRunIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialRunIDs creates a generator. An empty prefix becomes "run".
func NewSequentialRunIDs(prefix string) *SequentialRunIDs {
	if prefix == "" {
		prefix = "run"
	}
	return &SequentialRunIDs{prefix: prefix}
}

// Generate implements engine.RunIDGenerator.
func (g *SequentialRunIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
