package ir

import "strconv"

// Node is a sealed interface over the behavior tree variants.
// Only *BranchNode, *SwitchNode and *AssignNode implement it.
type Node interface {
	node() // Sealed

	// NodeSite returns the call site that produced the node.
	NodeSite() SiteID
}

// BranchNode is a two-way decision. Exactly one of True and False executes
// at hardware run time.
type BranchNode struct {
	Site  SiteID
	Cond  Operand
	True  []Node
	False []Node
}

func (*BranchNode) node() {}

// NodeSite implements Node.
func (n *BranchNode) NodeSite() SiteID { return n.Site }

// SwitchNode is an enumerated decision over Value. Cases are in declaration
// order; the last case is the synthetic default ("no declared value matched").
type SwitchNode struct {
	Site  SiteID
	Value Operand
	Cases []Case
}

func (*SwitchNode) node() {}

// NodeSite implements Node.
func (n *SwitchNode) NodeSite() SiteID { return n.Site }

// Default returns the default case, or nil for a malformed node.
func (n *SwitchNode) Default() *Case {
	if len(n.Cases) == 0 || !n.Cases[len(n.Cases)-1].Default {
		return nil
	}
	return &n.Cases[len(n.Cases)-1]
}

// Case is one outcome of a SwitchNode.
type Case struct {
	Candidate int64
	Default   bool
	Children  []Node
}

// Label returns the outcome label used in driver paths.
func (c Case) Label() string {
	if c.Default {
		return "default"
	}
	return strconv.FormatInt(c.Candidate, 10)
}

// AssignNode writes Source to Range of Dest.
type AssignNode struct {
	Site   SiteID
	Dest   Endpoint
	Range  BitRange
	Source Operand
}

func (*AssignNode) node() {}

// NodeSite implements Node.
func (n *AssignNode) NodeSite() SiteID { return n.Site }

// Tree is the merged behavior of one module construction.
// A Tree is immutable once the engine returns it.
type Tree struct {
	Module    string
	Endpoints []EndpointDecl
	Root      []Node
}

// Walk visits nodes depth-first in source order. Returning false from fn
// skips the node's children.
func Walk(nodes []Node, fn func(n Node, depth int) bool) {
	walk(nodes, 0, fn)
}

func walk(nodes []Node, depth int, fn func(n Node, depth int) bool) {
	for _, n := range nodes {
		if !fn(n, depth) {
			continue
		}
		switch v := n.(type) {
		case *BranchNode:
			walk(v.True, depth+1, fn)
			walk(v.False, depth+1, fn)
		case *SwitchNode:
			for _, c := range v.Cases {
				walk(c.Children, depth+1, fn)
			}
		}
	}
}

// CountNodes returns the number of nodes in the forest.
func CountNodes(nodes []Node) int {
	count := 0
	Walk(nodes, func(Node, int) bool {
		count++
		return true
	})
	return count
}
