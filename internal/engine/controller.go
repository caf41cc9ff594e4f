package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/hdlreplay/internal/driver"
	"github.com/roach88/hdlreplay/internal/ir"
)

const (
	// DefaultMaxInvocations bounds the replay invocations of one module.
	DefaultMaxInvocations = 4096

	// DefaultMaxEvents bounds the events reported by a single invocation.
	DefaultMaxEvents = 1 << 16
)

// Body is a module construction body. It is re-executed from scratch once
// per replay invocation and must depend only on the answers it receives from
// the Ctx.
type Body func(c *Ctx)

// Controller is the DecisionReplayController: it runs a construction body
// repeatedly, answering each decision from the recorded path or with the next
// unexplored outcome, until every outcome of every decision has been visited
// and the behavior tree is frozen.
//
// A Controller holds configuration only. Each Elaborate call owns its own
// Recorder, so one Controller may elaborate many modules, including nested
// instances, and concurrent Elaborate calls do not share state.
type Controller struct {
	maxInvocations int
	maxEvents      int
	logger         *slog.Logger
	ids            IDGenerator
}

// Option configures a Controller.
type Option func(*Controller)

// WithMaxInvocations sets the maximum replay invocations per module.
//
// Default: 4096 (DefaultMaxInvocations). A value <= 0 disables the bound.
func WithMaxInvocations(n int) Option {
	return func(c *Controller) {
		c.maxInvocations = n
	}
}

// WithMaxEvents sets the maximum events per invocation.
//
// Default: 65536 (DefaultMaxEvents). A value <= 0 disables the bound.
func WithMaxEvents(n int) Option {
	return func(c *Controller) {
		c.maxEvents = n
	}
}

// WithLogger sets the logger for elaboration progress.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// WithIDGenerator sets the generator for module IDs.
//
// Default: UUIDv7Generator. Tests use FixedGenerator for stable output.
func WithIDGenerator(g IDGenerator) Option {
	return func(c *Controller) {
		c.ids = g
	}
}

// New creates a Controller.
func New(opts ...Option) *Controller {
	c := &Controller{
		maxInvocations: DefaultMaxInvocations,
		maxEvents:      DefaultMaxEvents,
		logger:         slog.Default(),
		ids:            UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// elaboration is the state of one Elaborate call that survives across its
// invocations.
type elaboration struct {
	name      string
	rec       *Recorder
	quota     *InvocationQuota
	instances map[string]*ir.Module
	order     []string
}

// Elaborate runs body until its behavior tree is complete and returns the
// frozen module: the tree, the per-endpoint driver lists (validated on every
// path), and the invocation count.
//
// ctx is checked between invocations; a running invocation is never
// interrupted. On any error no partial module is returned.
func (c *Controller) Elaborate(ctx context.Context, name string, body Body) (*ir.Module, error) {
	el := &elaboration{
		name:      name,
		rec:       NewRecorder(name, c.maxEvents),
		quota:     NewInvocationQuota(c.maxInvocations),
		instances: make(map[string]*ir.Module),
	}
	log := c.logger.With("module", name)
	log.Debug("elaboration started")

	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("elaborate %s: %w", name, err)
		}
		if err := el.quota.Check(name); err != nil {
			log.Warn("elaboration aborted", "error", err)
			return nil, err
		}

		done, err := c.invoke(ctx, el, body)
		if err != nil {
			log.Debug("elaboration failed", "invocation", el.rec.Invocations(), "error", err)
			return nil, err
		}
		log.Debug("invocation finished",
			"invocation", el.rec.Invocations(),
			"open_scopes", el.rec.Depth(),
		)
		if done {
			break
		}
	}

	tree := el.rec.Tree()
	tbl, err := driver.Validate(tree)
	if err != nil {
		return nil, validationError(name, err)
	}
	hash, err := ir.TreeHash(tree)
	if err != nil {
		return nil, fmt.Errorf("elaborate %s: %w", name, err)
	}

	m := &ir.Module{
		ID:          c.ids.Generate(),
		Name:        name,
		Tree:        tree,
		Drivers:     tbl.Snapshot(),
		Invocations: el.rec.Invocations(),
		TreeHash:    hash,
	}
	for _, inst := range el.order {
		m.Instances = append(m.Instances, ir.Instance{Name: inst, Module: el.instances[inst]})
	}

	log.Info("elaboration finished",
		"invocations", m.Invocations,
		"nodes", ir.CountNodes(tree.Root),
		"tree_hash", hash,
	)
	return m, nil
}

// invoke runs one invocation of body, bracketed by the recorder's enter and
// exit events.
func (c *Controller) invoke(ctx context.Context, el *elaboration, body Body) (bool, error) {
	el.rec.OnEnterConstruction()
	cx := &Ctx{
		ctx:  ctx,
		ctrl: c,
		el:   el,
		occ:  make(map[string]int),
	}
	body(cx)
	if cx.err != nil {
		return false, cx.err
	}
	return el.rec.OnConstructionExit()
}

// instance elaborates a child module once per parent elaboration. Later
// invocations of the parent reuse the frozen child.
func (c *Controller) instance(ctx context.Context, el *elaboration, name, module string, body Body) (*ir.Module, error) {
	if m, ok := el.instances[name]; ok {
		return m, nil
	}
	m, err := c.Elaborate(ctx, module, body)
	if err != nil {
		return nil, fmt.Errorf("instance %s of %s: %w", name, el.name, err)
	}
	el.instances[name] = m
	el.order = append(el.order, name)
	return m, nil
}

// validationError converts a failure of the frozen-tree driver check.
func validationError(module string, err error) error {
	ee := &ElaborationError{
		Code:    ErrCodeInvalidEndpoint,
		Message: err.Error(),
		Module:  module,
		Err:     err,
	}
	var md *driver.MultiDriveError
	var re *driver.RangeError
	switch {
	case errors.As(err, &md):
		ee.Code = ErrCodeMultiDrive
		ee.Dest, ee.Range = md.Dest, md.Range
	case errors.As(err, &re):
		ee.Dest, ee.Range = re.Dest, re.Range
	}
	return ee
}
