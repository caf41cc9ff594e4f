package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/hdlreplay/internal/compiler"
	"github.com/roach88/hdlreplay/internal/elab"
	"github.com/roach88/hdlreplay/internal/engine"
	"github.com/roach88/hdlreplay/internal/harness"
	"github.com/roach88/hdlreplay/internal/ir"
	"github.com/roach88/hdlreplay/internal/store"
)

// ElaborateOptions holds flags for the elaborate command.
type ElaborateOptions struct {
	*RootOptions
	Database       string
	MaxInvocations int
	MaxEvents      int

	// IDGenerator allows overriding the module ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDGenerator engine.IDGenerator
}

// ElaborateResult is the JSON payload of a successful elaboration.
type ElaborateResult struct {
	ID        string           `json:"id"`
	Module    string           `json:"module"`
	TreeHash  string           `json:"tree_hash"`
	Stats     ir.Stats         `json:"stats"`
	Instances []InstanceResult `json:"instances,omitempty"`
	Tree      json.RawMessage  `json:"tree"`    // canonical JSON
	Drivers   json.RawMessage  `json:"drivers"` // canonical JSON
	Stored    bool             `json:"stored"`
}

// InstanceResult summarizes one sub-module of an elaborated module.
type InstanceResult struct {
	Name     string `json:"name"`
	Module   string `json:"module"`
	TreeHash string `json:"tree_hash"`
}

// NewElaborateCommand creates the elaborate command.
func NewElaborateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ElaborateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "elaborate <specs-dir> <module>",
		Short: "Elaborate a module into its behavior tree",
		Long: `Elaborate a module by decision replay and print its behavior tree.

The module body is re-run until every decision outcome has been explored.
With --db the frozen module (and every instance) is stored; storing the same
elaboration twice is a no-op.

Exit codes:
  0 - Module elaborated
  1 - Elaboration failed (driver conflict, divergence, quota, invalid library)
  2 - Command error (invalid paths, database errors, etc.)

Examples:
  hdlreplay elaborate ./specs mux
  hdlreplay elaborate ./specs top --db ./hdl.db
  hdlreplay elaborate ./specs top --max-invocations 64 --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runElaborate(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", rootOpts.Config.Database, "store the elaboration in this SQLite database (env HDLREPLAY_DB)")
	cmd.Flags().IntVar(&opts.MaxInvocations, "max-invocations", rootOpts.Config.MaxInvocations, "replay invocations per module, <= 0 for no bound (env HDLREPLAY_MAX_INVOCATIONS)")
	cmd.Flags().IntVar(&opts.MaxEvents, "max-events", rootOpts.Config.MaxEvents, "events per invocation, <= 0 for no bound (env HDLREPLAY_MAX_EVENTS)")

	return cmd
}

func runElaborate(opts *ElaborateOptions, specsDir, module string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	ctx := commandContext(cmd)

	loadResult, loadErr := loadLibrary(specsDir)
	if loadErr != nil {
		_ = formatter.Error(loadErr.Code, loadErr.Message, nil)
		return NewExitError(ExitCommandError, loadErr.Error())
	}
	if errs := compiler.Validate(loadResult.Library); len(errs) > 0 {
		_ = formatter.Error(errs[0].Code, errs[0].Error(), errs)
		return NewExitError(ExitFailure, fmt.Sprintf("library has %d validation error(s)", len(errs)))
	}

	m, err := elaborateModule(ctx, opts, loadResult.Library, module)
	if err != nil {
		code := harness.ErrorCode(err)
		_ = formatter.Error(code, err.Error(), nil)
		return WrapExitError(ExitFailure, "elaboration failed", err)
	}

	stored := false
	if opts.Database != "" {
		formatter.VerboseLog("Storing %s in %s", m.ID, opts.Database)
		id, inserted, err := storeModule(ctx, opts.Database, m)
		if err != nil {
			_ = formatter.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to store module", err)
		}
		if !inserted {
			formatter.VerboseLog("Identical elaboration already stored as %s", id)
		}
		m.ID = id
		stored = true
	}

	if opts.Format == "json" {
		result, err := newElaborateResult(m, stored)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to encode module", err)
		}
		return json.NewEncoder(formatter.Writer).Encode(CLIResponse{
			Status:   "ok",
			Data:     result,
			ModuleID: m.ID,
		})
	}
	return outputElaborateText(formatter.Writer, m, stored)
}

// elaborateModule runs the elaborator with the command's bounds and logger.
func elaborateModule(ctx context.Context, opts *ElaborateOptions, lib ir.Library, module string) (*ir.Module, error) {
	ids := opts.IDGenerator
	if ids == nil {
		ids = engine.UUIDv7Generator{}
	}
	ctrl := engine.New(
		engine.WithLogger(opts.logger()),
		engine.WithIDGenerator(ids),
		engine.WithMaxInvocations(opts.MaxInvocations),
		engine.WithMaxEvents(opts.MaxEvents),
	)
	return elab.New(ctrl, lib).Elaborate(ctx, module)
}

func storeModule(ctx context.Context, path string, m *ir.Module) (string, bool, error) {
	st, err := store.Open(path)
	if err != nil {
		return "", false, err
	}
	defer st.Close()
	return st.WriteModule(ctx, m)
}

func newElaborateResult(m *ir.Module, stored bool) (ElaborateResult, error) {
	tree, err := ir.MarshalTree(m.Tree)
	if err != nil {
		return ElaborateResult{}, err
	}
	drivers, err := ir.MarshalDrivers(m.Drivers)
	if err != nil {
		return ElaborateResult{}, err
	}
	result := ElaborateResult{
		ID:       m.ID,
		Module:   m.Name,
		TreeHash: m.TreeHash,
		Stats:    m.Stats(),
		Tree:     tree,
		Drivers:  drivers,
		Stored:   stored,
	}
	for _, inst := range m.Instances {
		result.Instances = append(result.Instances, InstanceResult{
			Name:     inst.Name,
			Module:   inst.Module.Name,
			TreeHash: inst.Module.TreeHash,
		})
	}
	return result, nil
}

func outputElaborateText(w io.Writer, m *ir.Module, stored bool) error {
	if err := ir.Format(w, m.Tree); err != nil {
		return err
	}
	fmt.Fprintln(w)

	st := m.Stats()
	fmt.Fprintf(w, "✓ %s elaborated in %d invocation(s)\n", m.Name, st.Invocations)
	fmt.Fprintf(w, "  Nodes: %d branch, %d switch, %d assign\n", st.Branches, st.Switches, st.Assignments)
	fmt.Fprintf(w, "  Drivers: %s\n", driverSummary(m))
	for _, inst := range m.Instances {
		fmt.Fprintf(w, "  Instance %s: %s (%d invocation(s))\n", inst.Name, inst.Module.Name, inst.Module.Invocations)
	}
	fmt.Fprintf(w, "  Tree hash: %s\n", m.TreeHash)
	if stored {
		fmt.Fprintf(w, "  Stored as: %s\n", m.ID)
	}
	return nil
}

// driverSummary lists each declared endpoint with its driver count, in
// declaration order.
func driverSummary(m *ir.Module) string {
	if len(m.Tree.Endpoints) == 0 {
		return "none"
	}
	parts := make([]string, len(m.Tree.Endpoints))
	for i, e := range m.Tree.Endpoints {
		parts[i] = fmt.Sprintf("%s=%d", e.Name, len(m.Drivers[e.Name]))
	}
	return strings.Join(parts, " ")
}
