package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"

	"github.com/roach88/hdlreplay/internal/ir"
)

// Ctx is the construction context handed to a Body on every invocation.
//
// Every decision and assignment is reported through Ctx. Call sites are
// identified by the call stack that reached them, function and line per
// frame (so a helper called from two places, or from two closures on one
// line, yields two sites), plus an occurrence counter for calls repeated
// within one invocation, such as statements inside a loop. The *At variants
// take an explicit key instead.
//
// The first error is sticky: every later call is inert, decisions answer
// their zero outcome, and the controller returns the error once the body
// finishes. Bodies that want to stop early may check Err.
type Ctx struct {
	ctx  context.Context
	ctrl *Controller
	el   *elaboration
	occ  map[string]int
	err  error
}

var (
	enginePkg      = packageOf(reflect.ValueOf(packageOf).Pointer())
	ctxMethods     = enginePkg + ".(*Ctx)."
	controllerStop = enginePkg + ".(*Controller)."
)

func packageOf(pc uintptr) string {
	name := runtime.FuncForPC(pc).Name()
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[:i]
	}
	return name
}

// Context returns the context the elaboration was started with.
func (c *Ctx) Context() context.Context {
	return c.ctx
}

// Module returns the name of the module under construction.
func (c *Ctx) Module() string {
	return c.el.name
}

// Err returns the first error of this invocation, if any.
func (c *Ctx) Err() error {
	return c.err
}

// Port declares an endpoint of width bits and returns its handle.
func (c *Ctx) Port(name string, width int) ir.Endpoint {
	dest := ir.Endpoint(name)
	if c.err != nil {
		return dest
	}
	c.setErr(c.el.rec.RegisterEndpoint(dest, width))
	return dest
}

// Assign drives bits rng of dest from src.
func (c *Ctx) Assign(dest ir.Endpoint, rng ir.BitRange, src ir.Operand) {
	if c.err != nil {
		return
	}
	c.assign(c.site(c.callerKey()), dest, rng, src)
}

// AssignAt is Assign with an explicit site key.
func (c *Ctx) AssignAt(key string, dest ir.Endpoint, rng ir.BitRange, src ir.Operand) {
	if c.err != nil {
		return
	}
	c.assign(c.site(key), dest, rng, src)
}

// AssignAll drives every bit of dest from src.
func (c *Ctx) AssignAll(dest ir.Endpoint, src ir.Operand) {
	if c.err != nil {
		return
	}
	width, _ := c.el.rec.Width(dest)
	c.assign(c.site(c.callerKey()), dest, ir.FullRange(width), src)
}

// AssignAllAt is AssignAll with an explicit site key.
func (c *Ctx) AssignAllAt(key string, dest ir.Endpoint, src ir.Operand) {
	if c.err != nil {
		return
	}
	width, _ := c.el.rec.Width(dest)
	c.assign(c.site(key), dest, ir.FullRange(width), src)
}

func (c *Ctx) assign(site ir.SiteID, dest ir.Endpoint, rng ir.BitRange, src ir.Operand) {
	c.setErr(c.el.rec.OnAssignment(site, dest, rng, src))
}

// Branch reports a boolean decision on cond and returns the outcome this
// invocation takes.
func (c *Ctx) Branch(cond ir.Operand) bool {
	if c.err != nil {
		return false
	}
	return c.branch(c.site(c.callerKey()), cond)
}

// BranchAt is Branch with an explicit site key.
func (c *Ctx) BranchAt(key string, cond ir.Operand) bool {
	if c.err != nil {
		return false
	}
	return c.branch(c.site(key), cond)
}

func (c *Ctx) branch(site ir.SiteID, cond ir.Operand) bool {
	taken, err := c.el.rec.OnBranchDecision(site, cond)
	c.setErr(err)
	return taken && err == nil
}

// If runs then or els depending on the outcome of a branch on cond.
// Either function may be nil.
func (c *Ctx) If(cond ir.Operand, then, els func()) {
	if c.err != nil {
		return
	}
	c.ifAt(c.site(c.callerKey()), cond, then, els)
}

// IfAt is If with an explicit site key.
func (c *Ctx) IfAt(key string, cond ir.Operand, then, els func()) {
	if c.err != nil {
		return
	}
	c.ifAt(c.site(key), cond, then, els)
}

func (c *Ctx) ifAt(site ir.SiteID, cond ir.Operand, then, els func()) {
	taken := c.branch(site, cond)
	if c.err != nil {
		return
	}
	switch {
	case taken && then != nil:
		then()
	case !taken && els != nil:
		els()
	}
}

// Switch reports an enumerated decision on value over candidates and returns
// the value this invocation observes: one of the candidates, or a value
// distinct from all of them standing for "none matched".
func (c *Ctx) Switch(value ir.Operand, candidates ...int64) int64 {
	if c.err != nil {
		return DefaultCandidate(candidates)
	}
	return c.switchAt(c.site(c.callerKey()), value, candidates)
}

// SwitchAt is Switch with an explicit site key.
func (c *Ctx) SwitchAt(key string, value ir.Operand, candidates ...int64) int64 {
	if c.err != nil {
		return DefaultCandidate(candidates)
	}
	return c.switchAt(c.site(key), value, candidates)
}

func (c *Ctx) switchAt(site ir.SiteID, value ir.Operand, candidates []int64) int64 {
	v, err := c.el.rec.OnSwitchDecision(site, value, candidates)
	c.setErr(err)
	return v
}

// Instance elaborates body as a child module named name. The child has its
// own independent replay state; it is elaborated once and the frozen result
// is reused by every later invocation of the parent.
func (c *Ctx) Instance(name string, body Body) *ir.Module {
	return c.InstanceOf(name, name, body)
}

// InstanceOf is Instance for an instance whose module name differs from the
// instance name.
func (c *Ctx) InstanceOf(name, module string, body Body) *ir.Module {
	if c.err != nil {
		return nil
	}
	m, err := c.ctrl.instance(c.ctx, c.el, name, module, body)
	c.setErr(err)
	return m
}

// Fail records err as the invocation's error, aborting the elaboration once
// the body returns. Only the first error is kept.
func (c *Ctx) Fail(err error) {
	c.setErr(err)
}

func (c *Ctx) setErr(err error) {
	if err != nil && c.err == nil {
		c.err = err
	}
}

// site numbers repeated occurrences of key within the invocation.
func (c *Ctx) site(key string) ir.SiteID {
	n := c.occ[key]
	c.occ[key] = n + 1
	return ir.SiteID{Key: key, Occurrence: n}
}

// callerKey derives a site key from the body frames above the Ctx method,
// stopping at the controller that invoked the body.
func (c *Ctx) callerKey() string {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(2, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var rendered []string
	for {
		f, more := frames.Next()
		if strings.HasPrefix(f.Function, controllerStop) {
			break
		}
		if !strings.HasPrefix(f.Function, ctxMethods) {
			rendered = append(rendered, fmt.Sprintf("%s:%d(%s)", filepath.Base(f.File), f.Line, funcName(f.Function)))
		}
		if !more {
			break
		}
	}
	return ir.SiteKey(rendered)
}

// funcName strips the import path from a qualified function name, keeping
// closure suffixes such as "func1" that tell apart closures on one line.
func funcName(qualified string) string {
	if i := strings.LastIndex(qualified, "/"); i >= 0 {
		return qualified[i+1:]
	}
	return qualified
}
