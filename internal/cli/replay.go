package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/hdlreplay/internal/ir"
	"github.com/roach88/hdlreplay/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database       string
	Module         string // optional - one module name only
	MaxInvocations int
	MaxEvents      int
}

// ReplayModuleResult holds the replay result for a single stored module.
type ReplayModuleResult struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	StoredHash    string `json:"stored_hash"`
	ReplayHash    string `json:"replay_hash,omitempty"`
	Invocations   int    `json:"invocations"`
	Deterministic bool   `json:"deterministic"`
	Error         string `json:"error,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Modules          []ReplayModuleResult `json:"modules"`
	TotalModules     int                  `json:"total_modules"`
	AllDeterministic bool                 `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <specs-dir>",
		Short: "Re-elaborate stored modules and verify determinism",
		Long: `Re-elaborate every stored module from the current specs and verify the
result is identical to what was stored.

A module is deterministic when its re-elaboration has the same module hash
(name, tree hash, and the name and hash of every instance) as the stored one.

Exit codes:
  0 - All modules are deterministic
  1 - Determinism verification failed (differences detected)
  2 - Command error (database not found, etc.)

Examples:
  hdlreplay replay ./specs --db ./hdl.db
  hdlreplay replay ./specs --db ./hdl.db --module top
  hdlreplay replay ./specs --db ./hdl.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", rootOpts.Config.Database, "path to SQLite database (required, env HDLREPLAY_DB)")
	cmd.Flags().StringVar(&opts.Module, "module", "", "replay modules with this name only")
	cmd.Flags().IntVar(&opts.MaxInvocations, "max-invocations", rootOpts.Config.MaxInvocations, "replay invocations per module, <= 0 for no bound")
	cmd.Flags().IntVar(&opts.MaxEvents, "max-events", rootOpts.Config.MaxEvents, "events per invocation, <= 0 for no bound")

	return cmd
}

func runReplay(opts *ReplayOptions, specsDir string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)

	if opts.Database == "" {
		return NewExitError(ExitCommandError, "--db is required (or set HDLREPLAY_DB)")
	}

	loadResult, loadErr := loadLibrary(specsDir)
	if loadErr != nil {
		return NewExitError(ExitCommandError, loadErr.Error())
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	records, err := st.ListModules(ctx, opts.Module)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list modules", err)
	}

	result := ReplayResult{
		Modules:          make([]ReplayModuleResult, 0, len(records)),
		TotalModules:     len(records),
		AllDeterministic: true,
	}
	if len(records) == 0 {
		if opts.Format == "json" {
			return outputReplayJSON(cmd, result)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No modules found in database.")
		return nil
	}

	elabOpts := &ElaborateOptions{
		RootOptions:    opts.RootOptions,
		MaxInvocations: opts.MaxInvocations,
		MaxEvents:      opts.MaxEvents,
	}
	for _, rec := range records {
		moduleResult := replayModule(ctx, elabOpts, loadResult.Library, rec)
		result.Modules = append(result.Modules, moduleResult)
		if !moduleResult.Deterministic {
			result.AllDeterministic = false
		}
	}

	if opts.Format == "json" {
		return outputReplayJSON(cmd, result)
	}
	return outputReplayText(cmd, result, opts.Verbose)
}

// replayModule re-elaborates one stored module and compares module hashes.
func replayModule(ctx context.Context, opts *ElaborateOptions, lib ir.Library, rec store.ModuleRecord) ReplayModuleResult {
	result := ReplayModuleResult{
		ID:         rec.ID,
		Name:       rec.Name,
		StoredHash: rec.ModuleHash,
	}

	m, err := elaborateModule(ctx, opts, lib, rec.Name)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	hash, err := ir.ModuleHash(m)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.ReplayHash = hash
	result.Invocations = m.Invocations
	result.Deterministic = hash == rec.ModuleHash
	return result
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(cmd *cobra.Command, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	if !result.AllDeterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_DETERMINISM",
			Message: "determinism verification failed",
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if !result.AllDeterministic {
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Replay Summary: %d module(s)\n", result.TotalModules)
	fmt.Fprintln(w)

	for _, m := range result.Modules {
		status := "✓"
		if !m.Deterministic {
			status = "✗"
		}

		fmt.Fprintf(w, "%s Module: %s (%s)\n", status, m.Name, m.ID)

		if verbose {
			fmt.Fprintf(w, "  Stored hash: %s\n", m.StoredHash)
			fmt.Fprintf(w, "  Replay hash: %s\n", m.ReplayHash)
		}
		if m.Error != "" {
			fmt.Fprintf(w, "  Error: %s\n", m.Error)
		} else {
			fmt.Fprintf(w, "  Invocations: %d\n", m.Invocations)
		}

		if !m.Deterministic && m.Error == "" {
			fmt.Fprintln(w, "  Warning: Re-elaboration differs from the stored module!")
		}
		fmt.Fprintln(w)
	}

	if result.AllDeterministic {
		fmt.Fprintln(w, "✓ All modules verified deterministic")
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	return NewExitError(ExitFailure, "determinism verification failed")
}
