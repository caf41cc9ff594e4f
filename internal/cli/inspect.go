package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/hdlreplay/internal/ir"
	"github.com/roach88/hdlreplay/internal/store"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	Database string
	Module   string // optional - filter or select by module name
	ID       string // optional - show one module
	Latest   bool   // show the latest module named Module
	Endpoint string // optional - restrict driver output to one endpoint
}

// InspectListResult is the payload of a module listing.
type InspectListResult struct {
	Modules   []store.ModuleRecord `json:"modules"`
	Stored    int                  `json:"stored"`
	Instances int                  `json:"instances"`
}

// InspectShowResult is the payload of a single module.
type InspectShowResult struct {
	ElaborateResult
	Endpoint string      `json:"endpoint,omitempty"`
	Entries  []ir.Driver `json:"entries,omitempty"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "List or show stored elaborations",
		Long: `Inspect the elaboration store.

Without --id or --latest, lists stored modules in insertion order.
With --id (or --latest and --module), prints the module's behavior tree and
driver tables. --endpoint restricts the driver output to one endpoint and
shows the decision path of every entry.

Examples:
  hdlreplay inspect --db ./hdl.db
  hdlreplay inspect --db ./hdl.db --module mux
  hdlreplay inspect --db ./hdl.db --module top --latest
  hdlreplay inspect --db ./hdl.db --id 0192... --endpoint out --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", rootOpts.Config.Database, "path to SQLite database (required, env HDLREPLAY_DB)")
	cmd.Flags().StringVar(&opts.Module, "module", "", "module name")
	cmd.Flags().StringVar(&opts.ID, "id", "", "module ID to show")
	cmd.Flags().BoolVar(&opts.Latest, "latest", false, "show the latest module named --module")
	cmd.Flags().StringVar(&opts.Endpoint, "endpoint", "", "show driver entries of this endpoint only")

	return cmd
}

func runInspect(opts *InspectOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)

	if opts.Database == "" {
		return NewExitError(ExitCommandError, "--db is required (or set HDLREPLAY_DB)")
	}
	if opts.Latest && opts.Module == "" {
		return NewExitError(ExitCommandError, "--latest requires --module")
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if opts.ID == "" && !opts.Latest {
		return inspectList(ctx, st, opts, formatter)
	}
	return inspectShow(ctx, st, opts, formatter)
}

func inspectList(ctx context.Context, st *store.Store, opts *InspectOptions, formatter *OutputFormatter) error {
	records, err := st.ListModules(ctx, opts.Module)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list modules", err)
	}
	modules, instances, err := st.Stats(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to count modules", err)
	}

	if opts.Format == "json" {
		return formatter.Success(InspectListResult{Modules: records, Stored: modules, Instances: instances})
	}

	w := formatter.Writer
	if len(records) == 0 {
		fmt.Fprintln(w, "No modules found in database.")
		return nil
	}
	fmt.Fprintf(w, "Stored modules: %d (%d instance link(s))\n\n", modules, instances)
	for _, r := range records {
		fmt.Fprintf(w, "%4d  %s  %-16s %4d invocation(s)  %s\n", r.Seq, r.ID, r.Name, r.Invocations, shortHash(r.TreeHash))
	}
	return nil
}

func inspectShow(ctx context.Context, st *store.Store, opts *InspectOptions, formatter *OutputFormatter) error {
	var (
		m   *ir.Module
		err error
	)
	if opts.ID != "" {
		m, err = st.ReadModule(ctx, opts.ID)
	} else {
		m, err = st.LatestModule(ctx, opts.Module)
	}
	if errors.Is(err, sql.ErrNoRows) {
		_ = formatter.Error(ErrCodeNotFound, "module not found", nil)
		return NewExitError(ExitCommandError, "module not found")
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read module", err)
	}

	var entries []ir.Driver
	if opts.Endpoint != "" {
		drivers, ok := m.Drivers[ir.Endpoint(opts.Endpoint)]
		if !ok {
			_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("endpoint %s not declared by %s", opts.Endpoint, m.Name), nil)
			return NewExitError(ExitCommandError, fmt.Sprintf("unknown endpoint %s", opts.Endpoint))
		}
		entries = drivers
	}

	if opts.Format == "json" {
		result, err := newElaborateResult(m, true)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to encode module", err)
		}
		return json.NewEncoder(formatter.Writer).Encode(CLIResponse{
			Status: "ok",
			Data: InspectShowResult{
				ElaborateResult: result,
				Endpoint:        opts.Endpoint,
				Entries:         entries,
			},
			ModuleID: m.ID,
		})
	}

	w := formatter.Writer
	if opts.Endpoint != "" {
		fmt.Fprintf(w, "%s.%s: %d driver(s)\n", m.Name, opts.Endpoint, len(entries))
		writeDrivers(w, ir.Endpoint(opts.Endpoint), entries)
		return nil
	}
	return outputElaborateText(w, m, true)
}

// writeDrivers prints one line per driver entry with its decision path.
func writeDrivers(w io.Writer, dest ir.Endpoint, drivers []ir.Driver) {
	for _, d := range drivers {
		fmt.Fprintf(w, "  %s%s = %s", dest, d.Range, d.Source)
		if len(d.Path) > 0 {
			steps := make([]string, len(d.Path))
			for i, p := range d.Path {
				steps[i] = fmt.Sprintf("%s=%s", p.Site.Key, p.Outcome)
			}
			fmt.Fprintf(w, "  when %s", strings.Join(steps, ", "))
		}
		fmt.Fprintln(w)
	}
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
