package ir

import (
	"fmt"
	"strconv"
)

// Endpoint identifies an assignment destination (a port, wire or register).
// The object model behind an endpoint is opaque to the engine.
type Endpoint string

// Operand identifies a resolved source value or a decision condition.
type Operand string

// BitRange is a half-open range of bits [Lo, Hi) within an endpoint.
type BitRange struct {
	Lo int `json:"lo"`
	Hi int `json:"hi"`
}

// Bits returns the range [lo, hi).
func Bits(lo, hi int) BitRange {
	return BitRange{Lo: lo, Hi: hi}
}

// FullRange returns the range covering every bit of a width-bit endpoint.
func FullRange(width int) BitRange {
	return BitRange{Lo: 0, Hi: width}
}

// Width returns the number of bits in the range.
func (r BitRange) Width() int {
	return r.Hi - r.Lo
}

// Valid reports whether the range is non-empty and starts at a non-negative bit.
func (r BitRange) Valid() bool {
	return r.Lo >= 0 && r.Hi > r.Lo
}

// Within reports whether the range lies inside [0, width).
func (r BitRange) Within(width int) bool {
	return r.Valid() && r.Hi <= width
}

// Overlaps reports whether the two ranges share at least one bit.
func (r BitRange) Overlaps(o BitRange) bool {
	return r.Lo < o.Hi && o.Lo < r.Hi
}

// Intersect returns the shared bits of two overlapping ranges.
func (r BitRange) Intersect(o BitRange) BitRange {
	return BitRange{Lo: max(r.Lo, o.Lo), Hi: min(r.Hi, o.Hi)}
}

// String renders the range as "[lo:hi)".
func (r BitRange) String() string {
	return fmt.Sprintf("[%d:%d)", r.Lo, r.Hi)
}

// SiteID identifies a decision or assignment call site.
//
// Key is the call-site key: a digest of the instrumentation call stack for
// procedural bodies, or the statement path for declarative modules.
// Occurrence counts earlier hits of the same Key within one invocation, so
// every loop iteration gets its own identity.
type SiteID struct {
	Key        string `json:"key"`
	Occurrence int    `json:"occurrence"`
}

// String renders the site as "key#occurrence".
func (s SiteID) String() string {
	return s.Key + "#" + strconv.Itoa(s.Occurrence)
}

// EndpointDecl declares an endpoint and its total bit width.
type EndpointDecl struct {
	Name  Endpoint `json:"name"`
	Width int      `json:"width"`
}

// PathStep is one decision outcome on the way from the tree root to a node.
type PathStep struct {
	Site    SiteID `json:"site"`
	Outcome string `json:"outcome"` // "true", "false", a case constant, or "default"
}

// Driver is one entry of an endpoint's driver table: the bits assigned,
// the source, and the decision outcomes under which the assignment happens.
type Driver struct {
	Range  BitRange   `json:"range"`
	Source Operand    `json:"source"`
	Site   SiteID     `json:"site"`
	Path   []PathStep `json:"path"`
}

// Module is the frozen result of elaborating one construction body.
//
// Module values are immutable once returned by the engine and may be shared
// freely with downstream consumers.
type Module struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	Tree        *Tree                 `json:"tree"`
	Drivers     map[Endpoint][]Driver `json:"drivers"`
	Invocations int                   `json:"invocations"`
	TreeHash    string                `json:"tree_hash"`
	Instances   []Instance            `json:"instances,omitempty"`
}

// Instance records a sub-module elaborated while constructing a parent.
type Instance struct {
	Name   string  `json:"name"`
	Module *Module `json:"module"`
}

// Stats summarizes a module for reporting.
type Stats struct {
	Invocations int `json:"invocations"`
	Branches    int `json:"branches"`
	Switches    int `json:"switches"`
	Assignments int `json:"assignments"`
	Endpoints   int `json:"endpoints"`
	Drivers     int `json:"drivers"`
	Depth       int `json:"depth"`
}

// Stats computes summary counts over the module's tree and driver tables.
func (m *Module) Stats() Stats {
	st := Stats{Invocations: m.Invocations}
	if m.Tree != nil {
		st.Endpoints = len(m.Tree.Endpoints)
		Walk(m.Tree.Root, func(n Node, depth int) bool {
			switch n.(type) {
			case *BranchNode:
				st.Branches++
			case *SwitchNode:
				st.Switches++
			case *AssignNode:
				st.Assignments++
			}
			if depth+1 > st.Depth {
				st.Depth = depth + 1
			}
			return true
		})
	}
	for _, drivers := range m.Drivers {
		st.Drivers += len(drivers)
	}
	return st
}
