package engine

import (
	"fmt"
	"slices"

	"github.com/roach88/hdlreplay/internal/ir"
)

// unwind merges an exhausted scope into a single decision node.
//
// The reference body (outcome 0) runs from the decision to the end of the
// opening invocation, so it also holds everything after the decision's join
// point. The common join is the latest point at which any other outcome
// rejoined the reference entries: from there on they are trailing siblings
// that belong to the parent, and everything before it belongs to outcome 0.
// An outcome that never rejoined (an early return) puts the common join at
// the end of the reference body, so nothing is hoisted.
//
// An outcome that rejoined earlier than the common join shares the reference
// entries between its own join and the common one; those entries are copied
// into that outcome's children.
func (r *Recorder) unwind(s *scope) (ir.Node, []entry, error) {
	ref := s.bodies[0]

	joins := make([]int, s.outcomes)
	common := 0
	for i := 1; i < s.outcomes; i++ {
		j, err := r.joinEntry(s, i)
		if err != nil {
			return nil, nil, err
		}
		joins[i] = j
		common = max(common, j)
	}

	children := make([][]ir.Node, s.outcomes)
	children[0] = nodes(ref[:common])
	for i := 1; i < s.outcomes; i++ {
		children[i] = nodes(slices.Concat(s.bodies[i], ref[joins[i]:common]))
	}
	trailing := slices.Clone(ref[common:])

	d := s.decision
	if d.Kind == ir.EventBranch {
		return &ir.BranchNode{Site: d.Site, Cond: d.Cond, True: children[0], False: children[1]}, trailing, nil
	}

	sw := &ir.SwitchNode{Site: d.Site, Value: d.Cond, Cases: make([]ir.Case, s.outcomes)}
	for i := range sw.Cases {
		if i < len(d.Candidates) {
			sw.Cases[i] = ir.Case{Candidate: d.Candidates[i], Children: children[i]}
		} else {
			sw.Cases[i] = ir.Case{Default: true, Children: children[i]}
		}
	}
	return sw, trailing, nil
}

// joinEntry maps the join point of an outcome (an index into the raw
// reference trace) to an index into the scope's top-level reference entries.
// An outcome that never rejoined, or rejoined past where recording stopped,
// maps to the end of the reference body.
func (r *Recorder) joinEntry(s *scope, outcome int) (int, error) {
	ref := s.bodies[0]
	at := s.joins[outcome]
	if at < 0 || at >= s.refLimit {
		return len(ref), nil
	}
	key := s.ref[at].Key()
	for i, e := range ref {
		if e.key == key {
			return i, nil
		}
	}
	return 0, r.divergence(s.decision.Site, fmt.Sprintf(
		"%s rejoins inside a nested decision at %s", outcomeLabel(s.decision, outcome), s.ref[at]))
}

func outcomeLabel(d ir.Event, outcome int) string {
	if d.Kind == ir.EventBranch {
		if outcome == 0 {
			return "outcome true"
		}
		return "outcome false"
	}
	if outcome < len(d.Candidates) {
		return fmt.Sprintf("case %d", d.Candidates[outcome])
	}
	return "default"
}
