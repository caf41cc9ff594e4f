package compiler

import (
	"fmt"
	"slices"
	"sort"

	"github.com/roach88/hdlreplay/internal/ir"
)

// Validation error codes (E200-E299)
const (
	ErrInvalidPortWidth  = "E201" // port width must be positive
	ErrDuplicatePort     = "E202" // port declared twice
	ErrUnknownPort       = "E203" // assignment to an undeclared port
	ErrRangeOutsidePort  = "E204" // assignment range outside the port
	ErrEmptyCondition    = "E205" // when/select without a condition operand
	ErrDuplicateMatch    = "E206" // switch case constant repeated
	ErrUnknownModule     = "E207" // instance of a module not in the library
	ErrRecursiveInstance = "E208" // module instantiates itself (transitively)
	ErrUnknownStmtKind   = "E209" // statement kind not recognized
)

// ValidationError represents a static validation error in a module library.
type ValidationError struct {
	Module  string `json:"module"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s: %s", e.Code, e.Module, e.Field, e.Message)
}

// Validate checks every module of lib. Returns all errors found (does not
// fail-fast), ordered by module name and then statement order.
func Validate(lib ir.Library) []ValidationError {
	names := make([]string, 0, len(lib))
	for name := range lib {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []ValidationError
	for _, name := range names {
		errs = append(errs, validateModule(lib, lib[name])...)
	}
	errs = append(errs, AnalyzeInstances(lib)...)
	return errs
}

func validateModule(lib ir.Library, spec *ir.ModuleSpec) []ValidationError {
	v := &validator{lib: lib, module: spec.Name, widths: make(map[ir.Endpoint]int)}

	for _, p := range spec.Ports {
		field := "ports." + string(p.Name)
		if _, dup := v.widths[p.Name]; dup {
			v.add(field, ErrDuplicatePort, "port declared twice")
			continue
		}
		if p.Width <= 0 {
			v.add(field, ErrInvalidPortWidth, fmt.Sprintf("width must be positive, got %d", p.Width))
		}
		v.widths[p.Name] = p.Width
	}
	v.stmts(spec.Body)
	return v.errs
}

type validator struct {
	lib    ir.Library
	module string
	widths map[ir.Endpoint]int
	errs   []ValidationError
}

func (v *validator) add(field, code, msg string) {
	v.errs = append(v.errs, ValidationError{Module: v.module, Field: field, Message: msg, Code: code})
}

func (v *validator) stmts(stmts []ir.Stmt) {
	for _, s := range stmts {
		switch s.Kind {
		case ir.StmtAssign:
			width, ok := v.widths[s.Dest]
			if !ok {
				v.add(s.ID, ErrUnknownPort, fmt.Sprintf("assignment to undeclared port %q", s.Dest))
				continue
			}
			if s.Range != nil && !s.Range.Within(width) {
				v.add(s.ID, ErrRangeOutsidePort,
					fmt.Sprintf("range %s outside %s[%d]", s.Range, s.Dest, width))
			}

		case ir.StmtIf:
			if s.Cond == "" {
				v.add(s.ID, ErrEmptyCondition, "when requires a condition")
			}
			v.stmts(s.Then)
			v.stmts(s.Else)

		case ir.StmtSwitch:
			if s.Value == "" {
				v.add(s.ID, ErrEmptyCondition, "select requires a value")
			}
			var seen []int64
			for i, c := range s.Cases {
				if slices.Contains(seen, c.Match) {
					v.add(s.ID, ErrDuplicateMatch, fmt.Sprintf("case %d repeats match %d", i, c.Match))
				}
				seen = append(seen, c.Match)
				v.stmts(c.Body)
			}
			v.stmts(s.Default)

		case ir.StmtInstance:
			if _, ok := v.lib[s.Module]; !ok {
				v.add(s.ID, ErrUnknownModule, fmt.Sprintf("instance %s of unknown module %q", s.Instance, s.Module))
			}

		default:
			v.add(s.ID, ErrUnknownStmtKind, fmt.Sprintf("unknown statement kind %q", s.Kind))
		}
	}
}
