package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hdlreplay/internal/engine"
)

// Compile-time check that the generator plugs into the controller.
var _ engine.IDGenerator = (*SequentialIDGenerator)(nil)

func TestSequentialIDGenerator(t *testing.T) {
	g := NewSequentialIDGenerator("alu")

	assert.Equal(t, "alu-0001", g.Generate())
	assert.Equal(t, "alu-0002", g.Generate())
	assert.Equal(t, 2, g.Count())

	g.Reset()
	assert.Equal(t, 0, g.Count())
	assert.Equal(t, "alu-0001", g.Generate())
}

func TestSequentialIDGenerator_DefaultPrefix(t *testing.T) {
	assert.Equal(t, "mod-0001", NewSequentialIDGenerator("").Generate())
}

func TestSequentialIDGenerator_Concurrent(t *testing.T) {
	g := NewSequentialIDGenerator("c")

	const n = 50
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- g.Generate()
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
}
