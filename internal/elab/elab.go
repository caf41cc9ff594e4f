// Package elab elaborates declarative module specs through the replay engine.
//
// A ModuleSpec is interpreted as a construction body: ports are declared,
// then statements run in order, with every if and switch reported as a
// decision. Statement IDs serve as site keys, so the resulting trees are
// stable across builds and machines.
package elab

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/roach88/hdlreplay/internal/engine"
	"github.com/roach88/hdlreplay/internal/ir"
)

// ErrUnknownModule is returned when a module or instantiated module is not in
// the library.
var ErrUnknownModule = errors.New("unknown module")

// RecursiveInstanceError reports a module that (transitively) instantiates
// itself.
type RecursiveInstanceError struct {
	Path []string
}

// Error implements the error interface.
func (e *RecursiveInstanceError) Error() string {
	return fmt.Sprintf("recursive instantiation: %v", e.Path)
}

// Elaborator runs module specs from a library through a Controller.
type Elaborator struct {
	ctrl *engine.Controller
	lib  ir.Library
}

// New creates an Elaborator over lib.
func New(ctrl *engine.Controller, lib ir.Library) *Elaborator {
	return &Elaborator{ctrl: ctrl, lib: lib}
}

// Elaborate elaborates the named module and every module it instantiates.
func (e *Elaborator) Elaborate(ctx context.Context, name string) (*ir.Module, error) {
	spec, ok := e.lib[name]
	if !ok {
		return nil, fmt.Errorf("elaborate %s: %w", name, ErrUnknownModule)
	}
	return e.ctrl.Elaborate(ctx, name, e.body(spec, []string{name}))
}

// Body returns spec as a construction body. Instance statements inside it are
// resolved against the Elaborator's library.
func (e *Elaborator) Body(spec *ir.ModuleSpec) engine.Body {
	return e.body(spec, []string{spec.Name})
}

func (e *Elaborator) body(spec *ir.ModuleSpec, stack []string) engine.Body {
	return func(c *engine.Ctx) {
		for _, p := range spec.Ports {
			c.Port(string(p.Name), p.Width)
		}
		e.run(c, spec.Body, "body", stack)
	}
}

func (e *Elaborator) run(c *engine.Ctx, stmts []ir.Stmt, prefix string, stack []string) {
	for i, s := range stmts {
		if c.Err() != nil {
			return
		}
		key := s.ID
		if key == "" {
			key = prefix + "." + strconv.Itoa(i)
		}

		switch s.Kind {
		case ir.StmtAssign:
			if s.Range == nil {
				c.AssignAllAt(key, s.Dest, s.Source)
			} else {
				c.AssignAt(key, s.Dest, *s.Range, s.Source)
			}

		case ir.StmtIf:
			c.IfAt(key, s.Cond, func() {
				e.run(c, s.Then, key+".then", stack)
			}, func() {
				e.run(c, s.Else, key+".else", stack)
			})

		case ir.StmtSwitch:
			e.runSwitch(c, s, key, stack)

		case ir.StmtInstance:
			e.instantiate(c, s, stack)

		default:
			c.Fail(fmt.Errorf("%s: unknown statement kind %q", key, s.Kind))
		}
	}
}

// runSwitch executes the case matching the decided value and, while a case
// falls through, the cases after it. Falling through the last case runs the
// default.
func (e *Elaborator) runSwitch(c *engine.Ctx, s ir.Stmt, key string, stack []string) {
	matches := make([]int64, len(s.Cases))
	for i, sc := range s.Cases {
		matches[i] = sc.Match
	}
	v := c.SwitchAt(key, s.Value, matches...)
	if c.Err() != nil {
		return
	}

	start := slices.Index(matches, v)
	if start < 0 {
		e.run(c, s.Default, key+".default", stack)
		return
	}
	for i := start; i < len(s.Cases); i++ {
		e.run(c, s.Cases[i].Body, key+".case."+strconv.Itoa(i), stack)
		if !s.Cases[i].Fallthrough {
			return
		}
	}
	e.run(c, s.Default, key+".default", stack)
}

func (e *Elaborator) instantiate(c *engine.Ctx, s ir.Stmt, stack []string) {
	child, ok := e.lib[s.Module]
	if !ok {
		c.Fail(fmt.Errorf("instance %s: %s: %w", s.Instance, s.Module, ErrUnknownModule))
		return
	}
	if slices.Contains(stack, s.Module) {
		c.Fail(&RecursiveInstanceError{Path: append(slices.Clone(stack), s.Module)})
		return
	}
	c.InstanceOf(s.Instance, s.Module, e.body(child, append(slices.Clone(stack), s.Module)))
}
