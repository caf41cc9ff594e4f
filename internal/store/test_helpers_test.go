package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/hdlreplay/internal/ir"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestModule builds a frozen mux module: out = en ? a : b.
func createTestModule(id, name string) *ir.Module {
	site := func(key string) ir.SiteID { return ir.SiteID{Key: key} }
	tree := &ir.Tree{
		Module:    name,
		Endpoints: []ir.EndpointDecl{{Name: "out", Width: 8}},
		Root: []ir.Node{
			&ir.BranchNode{
				Site:  site("body.0"),
				Cond:  "en",
				True:  []ir.Node{&ir.AssignNode{Site: site("body.0.then.0"), Dest: "out", Range: ir.FullRange(8), Source: "a"}},
				False: []ir.Node{&ir.AssignNode{Site: site("body.0.else.0"), Dest: "out", Range: ir.FullRange(8), Source: "b"}},
			},
		},
	}
	return &ir.Module{
		ID:   id,
		Name: name,
		Tree: tree,
		Drivers: map[ir.Endpoint][]ir.Driver{
			"out": {
				{Range: ir.FullRange(8), Source: "a", Site: site("body.0.then.0"),
					Path: []ir.PathStep{{Site: site("body.0"), Outcome: "true"}}},
				{Range: ir.FullRange(8), Source: "b", Site: site("body.0.else.0"),
					Path: []ir.PathStep{{Site: site("body.0"), Outcome: "false"}}},
			},
		},
		Invocations: 2,
		TreeHash:    ir.MustTreeHash(tree),
	}
}

// createTestParent builds a module with a single unconditional assignment
// and the given instances.
func createTestParent(id, name string, instances ...ir.Instance) *ir.Module {
	tree := &ir.Tree{
		Module:    name,
		Endpoints: []ir.EndpointDecl{{Name: "y", Width: 1}},
		Root: []ir.Node{
			&ir.AssignNode{Site: ir.SiteID{Key: "body.1"}, Dest: "y", Range: ir.FullRange(1), Source: "u0.out"},
		},
	}
	return &ir.Module{
		ID:   id,
		Name: name,
		Tree: tree,
		Drivers: map[ir.Endpoint][]ir.Driver{
			"y": {{Range: ir.FullRange(1), Source: "u0.out", Site: ir.SiteID{Key: "body.1"}, Path: []ir.PathStep{}}},
		},
		Invocations: 1,
		TreeHash:    ir.MustTreeHash(tree),
		Instances:   instances,
	}
}
