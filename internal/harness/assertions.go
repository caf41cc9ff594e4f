package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/hdlreplay/internal/ir"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Context  string // Elaboration error or module summary for debugging
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if e.Context != "" {
		fmt.Fprintf(&buf, "  Context: %s\n", e.Context)
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion against result and returns the
// failure messages. A failed elaboration with no error assertion is itself
// a failure.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string

	expectsError := slices.ContainsFunc(assertions, func(a Assertion) bool { return a.Type == AssertError })
	if result.Failed() && !expectsError {
		errs = append(errs, fmt.Sprintf("unexpected elaboration error [%s]: %s", result.ErrorCode, result.ErrorMessage))
		return errs
	}

	for _, a := range assertions {
		var err error
		switch a.Type {
		case AssertInvocations:
			err = assertInvocations(result, a)
		case AssertNodeCount:
			err = assertNodeCount(result, a)
		case AssertDrivers:
			err = assertDrivers(result, a)
		case AssertError:
			err = assertError(result, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

// requireModule fails assertions that inspect the module when elaboration
// did not produce one.
func requireModule(result *Result, typ string) error {
	if result.Module != nil {
		return nil
	}
	return &AssertionError{
		Type:     typ,
		Expected: "an elaborated module",
		Actual:   "elaboration failed",
		Context:  fmt.Sprintf("[%s] %s", result.ErrorCode, result.ErrorMessage),
	}
}

func assertInvocations(result *Result, a Assertion) error {
	if err := requireModule(result, AssertInvocations); err != nil {
		return err
	}
	if got := result.Module.Invocations; got != a.Count {
		return &AssertionError{
			Type:     AssertInvocations,
			Expected: fmt.Sprintf("%d invocations", a.Count),
			Actual:   fmt.Sprintf("%d invocations", got),
			Context:  result.Module.Name,
		}
	}
	return nil
}

func assertNodeCount(result *Result, a Assertion) error {
	if err := requireModule(result, AssertNodeCount); err != nil {
		return err
	}

	count := 0
	ir.Walk(result.Module.Tree.Root, func(n ir.Node, _ int) bool {
		if nodeKind(n) == a.Kind {
			count++
		}
		return true
	})
	if count != a.Count {
		return &AssertionError{
			Type:     AssertNodeCount,
			Expected: fmt.Sprintf("%d %s nodes", a.Count, a.Kind),
			Actual:   fmt.Sprintf("%d %s nodes", count, a.Kind),
			Context:  strings.TrimSpace(ir.FormatString(result.Module.Tree)),
		}
	}
	return nil
}

func assertDrivers(result *Result, a Assertion) error {
	if err := requireModule(result, AssertDrivers); err != nil {
		return err
	}

	drivers, ok := result.Module.Drivers[ir.Endpoint(a.Endpoint)]
	if !ok {
		return &AssertionError{
			Type:     AssertDrivers,
			Expected: fmt.Sprintf("endpoint %s", a.Endpoint),
			Actual:   "endpoint not registered",
		}
	}

	sources := make([]string, len(drivers))
	for i, d := range drivers {
		sources[i] = string(d.Source)
	}
	if len(drivers) != a.Count {
		return &AssertionError{
			Type:     AssertDrivers,
			Expected: fmt.Sprintf("%d drivers of %s", a.Count, a.Endpoint),
			Actual:   fmt.Sprintf("%d drivers %v", len(drivers), sources),
		}
	}
	if len(a.Sources) > 0 && !slices.Equal(a.Sources, sources) {
		return &AssertionError{
			Type:     AssertDrivers,
			Expected: fmt.Sprintf("sources %v", a.Sources),
			Actual:   fmt.Sprintf("sources %v", sources),
		}
	}
	return nil
}

func assertError(result *Result, a Assertion) error {
	if !result.Failed() {
		return &AssertionError{
			Type:     AssertError,
			Expected: fmt.Sprintf("elaboration error %s", a.Code),
			Actual:   "elaboration succeeded",
		}
	}
	if result.ErrorCode != a.Code {
		return &AssertionError{
			Type:     AssertError,
			Expected: fmt.Sprintf("error code %s", a.Code),
			Actual:   fmt.Sprintf("error code %s", result.ErrorCode),
			Context:  result.ErrorMessage,
		}
	}
	if a.Message != "" && !strings.Contains(result.ErrorMessage, a.Message) {
		return &AssertionError{
			Type:     AssertError,
			Expected: fmt.Sprintf("message containing %q", a.Message),
			Actual:   result.ErrorMessage,
		}
	}
	return nil
}

func nodeKind(n ir.Node) string {
	switch n.(type) {
	case *ir.BranchNode:
		return "branch"
	case *ir.SwitchNode:
		return "switch"
	case *ir.AssignNode:
		return "assign"
	}
	return ""
}
