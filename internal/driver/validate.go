package driver

import (
	"fmt"
	"slices"

	"github.com/roach88/hdlreplay/internal/ir"
)

// Validate walks a frozen tree and builds its driver tables, forking at every
// BranchNode and SwitchNode. It fails with the first MultiDriveError found on
// any path through the tree.
//
// Each returned Driver carries the decision outcomes leading to it.
func Validate(tree *ir.Tree) (*Table, error) {
	t := New()
	for _, ep := range tree.Endpoints {
		if err := t.RegisterEndpoint(ep.Name, ep.Width); err != nil {
			return nil, fmt.Errorf("validate %s: %w", tree.Module, err)
		}
	}
	if err := t.walk(tree.Root, nil); err != nil {
		return nil, fmt.Errorf("validate %s: %w", tree.Module, err)
	}
	return t, nil
}

func (t *Table) walk(nodes []ir.Node, path []ir.PathStep) error {
	for _, n := range nodes {
		switch v := n.(type) {
		case *ir.AssignNode:
			d := ir.Driver{Range: v.Range, Source: v.Source, Site: v.Site, Path: slices.Clone(path)}
			if err := t.Assign(v.Dest, d); err != nil {
				return err
			}

		case *ir.BranchNode:
			onTrue, onFalse := t.Fork(), t.Fork()
			if err := onTrue.walk(v.True, step(path, v.Site, "true")); err != nil {
				return err
			}
			if err := onFalse.walk(v.False, step(path, v.Site, "false")); err != nil {
				return err
			}
			if err := t.Join(onTrue, onFalse); err != nil {
				return err
			}

		case *ir.SwitchNode:
			outs := make([]*Table, len(v.Cases))
			for i, c := range v.Cases {
				outs[i] = t.Fork()
				if err := outs[i].walk(c.Children, step(path, v.Site, c.Label())); err != nil {
					return err
				}
			}
			if err := t.Join(outs...); err != nil {
				return err
			}
		}
	}
	return nil
}

func step(path []ir.PathStep, site ir.SiteID, outcome string) []ir.PathStep {
	next := make([]ir.PathStep, len(path), len(path)+1)
	copy(next, path)
	return append(next, ir.PathStep{Site: site, Outcome: outcome})
}
