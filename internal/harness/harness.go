package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/hdlreplay/internal/compiler"
	"github.com/roach88/hdlreplay/internal/elab"
	"github.com/roach88/hdlreplay/internal/engine"
	"github.com/roach88/hdlreplay/internal/ir"
	"github.com/roach88/hdlreplay/internal/store"
	"github.com/roach88/hdlreplay/internal/testutil"
)

// Harness is the scenario execution engine.
// Module IDs come from a sequential generator so stored rows are
// reproducible.
type Harness struct {
	store  *store.Store
	lib    ir.Library
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Load and compile the CUE module library
// 3. Validate the library statically
// 4. Elaborate the module twice and compare the results
// 5. Store the module and read it back
// 6. Evaluate assertions
//
// An error is returned only when the scenario cannot be executed at all;
// elaboration failures are part of the result.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	lib, err := compiler.LoadFiles(scenario.Specs...)
	if err != nil {
		return nil, fmt.Errorf("failed to load specs: %w", err)
	}

	h := &Harness{
		store:  st,
		lib:    lib,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	ctx := context.Background()
	result := NewResult()

	if errs := compiler.Validate(lib); len(errs) > 0 {
		result.ErrorCode = errs[0].Code
		result.ErrorMessage = errs[0].Error()
	} else if err := h.elaborate(ctx, scenario, result); err != nil {
		return nil, err
	}

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}
	return result, nil
}

// elaborate runs the module, checks the run is reproducible, and
// round-trips the module through the store.
func (h *Harness) elaborate(ctx context.Context, scenario *Scenario, result *Result) error {
	m, err := h.elaborateOnce(ctx, scenario)
	if err != nil {
		result.ErrorCode = ErrorCode(err)
		result.ErrorMessage = err.Error()
		return nil
	}

	again, err := h.elaborateOnce(ctx, scenario)
	if err != nil {
		result.AddError(fmt.Sprintf("second elaboration failed: %v", err))
		return nil
	}
	first, err := ir.ModuleHash(m)
	if err != nil {
		return fmt.Errorf("hash module: %w", err)
	}
	second, err := ir.ModuleHash(again)
	if err != nil {
		return fmt.Errorf("hash module: %w", err)
	}
	if first != second {
		result.AddError(fmt.Sprintf("elaboration is not reproducible: module hash %s then %s", first, second))
	}

	id, _, err := h.store.WriteModule(ctx, m)
	if err != nil {
		return fmt.Errorf("failed to store module: %w", err)
	}
	stored, err := h.store.ReadModule(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to read module back: %w", err)
	}
	if storedHash, err := ir.ModuleHash(stored); err != nil || storedHash != first {
		result.AddError(fmt.Sprintf("stored module differs from elaborated module (%s)", id))
	}

	stats := m.Stats()
	result.Module = m
	result.Stats = &stats
	result.StoredID = id
	return nil
}

func (h *Harness) elaborateOnce(ctx context.Context, scenario *Scenario) (*ir.Module, error) {
	opts := []engine.Option{
		engine.WithLogger(h.logger),
		engine.WithIDGenerator(testutil.NewSequentialIDGenerator(scenario.Name)),
	}
	if scenario.MaxInvocations > 0 {
		opts = append(opts, engine.WithMaxInvocations(scenario.MaxInvocations))
	}
	if scenario.MaxEvents > 0 {
		opts = append(opts, engine.WithMaxEvents(scenario.MaxEvents))
	}
	return elab.New(engine.New(opts...), h.lib).Elaborate(ctx, scenario.Module)
}

// ErrorCode maps an elaboration failure to the code an error assertion
// matches: the engine code, or the compiler code for library errors the
// elaborator detects at run time. Anything else is E001.
func ErrorCode(err error) string {
	if code := engine.CodeOf(err); code != "" {
		return string(code)
	}
	var rec *elab.RecursiveInstanceError
	switch {
	case errors.Is(err, elab.ErrUnknownModule):
		return compiler.ErrUnknownModule
	case errors.As(err, &rec):
		return compiler.ErrRecursiveInstance
	default:
		return "E001"
	}
}
