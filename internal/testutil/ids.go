// Package testutil provides deterministic helpers for tests and scenario
// runs.
package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDGenerator generates module IDs "<prefix>-0001", "<prefix>-0002", ...
//
// Unlike engine.FixedGenerator, it never runs out, which suits callers that
// cannot know in advance how many modules an elaboration produces (one per
// instance plus the top module).
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequentialIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDGenerator creates a generator. An empty prefix becomes "mod".
func NewSequentialIDGenerator(prefix string) *SequentialIDGenerator {
	if prefix == "" {
		prefix = "mod"
	}
	return &SequentialIDGenerator{prefix: prefix}
}

// Generate returns the next ID. Implements engine.IDGenerator.
func (g *SequentialIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}

// Count returns the number of IDs generated so far.
func (g *SequentialIDGenerator) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n
}

// Reset restarts the sequence. After Reset, Generate returns "<prefix>-0001".
func (g *SequentialIDGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
