package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// EventKind tags the variants of Event.
type EventKind string

const (
	// EventBranch is a boolean decision evaluation.
	EventBranch EventKind = "branch"

	// EventSwitch is an enumerated decision evaluation.
	EventSwitch EventKind = "switch"

	// EventAssign is a write of a source value to an endpoint bit range.
	EventAssign EventKind = "assign"

	// EventExit marks the end of one construction invocation.
	EventExit EventKind = "exit"
)

// Event is one reported trace event. Which fields are meaningful depends on Kind:
//
//	branch: Site, Cond, Outcome (0 = true, 1 = false)
//	switch: Site, Cond (the selector), Candidates, Outcome (index; len(Candidates) = default)
//	assign: Site, Dest, Range, Source
//	exit:   none
type Event struct {
	Kind       EventKind `json:"kind"`
	Site       SiteID    `json:"site"`
	Cond       Operand   `json:"cond,omitempty"`
	Candidates []int64   `json:"candidates,omitempty"`
	Outcome    int       `json:"outcome,omitempty"`
	Dest       Endpoint  `json:"dest,omitempty"`
	Range      BitRange  `json:"range"`
	Source     Operand   `json:"source,omitempty"`
}

// EventKey is the comparable structural identity of an event. Two events
// replay the same code exactly when their keys are equal. The answered
// outcome is deliberately not part of the key.
type EventKey struct {
	Kind   EventKind
	Site   SiteID
	Cond   Operand
	Domain string
	Dest   Endpoint
	Range  BitRange
	Source Operand
}

// Key returns the structural identity of the event.
func (e Event) Key() EventKey {
	return EventKey{
		Kind:   e.Kind,
		Site:   e.Site,
		Cond:   e.Cond,
		Domain: e.Domain(),
		Dest:   e.Dest,
		Range:  e.Range,
		Source: e.Source,
	}
}

// IsDecision reports whether the event is a branch or switch evaluation.
func (e Event) IsDecision() bool {
	return e.Kind == EventBranch || e.Kind == EventSwitch
}

// Outcomes returns the number of outcomes of a decision event:
// 2 for a branch, len(Candidates)+1 for a switch, 0 otherwise.
func (e Event) Outcomes() int {
	switch e.Kind {
	case EventBranch:
		return 2
	case EventSwitch:
		return len(e.Candidates) + 1
	default:
		return 0
	}
}

// Domain renders the value domain of a decision event.
func (e Event) Domain() string {
	switch e.Kind {
	case EventBranch:
		return "bool"
	case EventSwitch:
		return FormatDomain(e.Candidates)
	default:
		return ""
	}
}

// FormatDomain renders an enumerated candidate set as "{c0,c1,...}".
func FormatDomain(candidates []int64) string {
	parts := make([]string, len(candidates))
	for i, c := range candidates {
		parts[i] = strconv.FormatInt(c, 10)
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// String renders the event for diagnostics.
func (e Event) String() string {
	switch e.Kind {
	case EventBranch:
		return fmt.Sprintf("branch %s on %s", e.Site, e.Cond)
	case EventSwitch:
		return fmt.Sprintf("switch %s on %s over %s", e.Site, e.Cond, FormatDomain(e.Candidates))
	case EventAssign:
		return fmt.Sprintf("assign %s %s%s = %s", e.Site, e.Dest, e.Range, e.Source)
	case EventExit:
		return "construction exit"
	default:
		return fmt.Sprintf("unknown event %q", e.Kind)
	}
}
