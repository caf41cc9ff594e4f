package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/hdlreplay/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string
}

// CompileResult is the compiled library, modules sorted by name.
type CompileResult struct {
	IRVersion string          `json:"ir_version"`
	Modules   []ir.ModuleSpec `json:"modules"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <specs-dir>",
		Short: "Compile module descriptions to statement IR",
		Long: `Compile CUE module descriptions to the statement IR the elaborator
interprets. Every statement carries its site key (its path in the body).

Examples:
  hdlreplay compile ./specs
  hdlreplay compile ./specs -o library.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the compiled library to a file instead of stdout")

	return cmd
}

func runCompile(opts *CompileOptions, specsDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	loadResult, loadErr := loadLibrary(specsDir)
	if loadErr != nil {
		_ = formatter.Error(loadErr.Code, loadErr.Message, nil)
		return NewExitError(ExitCommandError, loadErr.Error())
	}

	result := CompileResult{IRVersion: ir.IRVersion}
	for _, name := range loadResult.Names() {
		result.Modules = append(result.Modules, *loadResult.Library[name])
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to encode library", err)
	}

	if opts.Output != "" {
		if dir := filepath.Dir(opts.Output); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
				return WrapExitError(ExitCommandError, "failed to create output directory", err)
			}
		}
		if err := os.WriteFile(opts.Output, append(data, '\n'), 0644); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to write output", err)
		}
		formatter.VerboseLog("Wrote %d module(s) to %s", len(result.Modules), opts.Output)
		if opts.Format == "json" {
			return formatter.Success(map[string]interface{}{"modules": len(result.Modules), "output": opts.Output})
		}
		fmt.Fprintf(formatter.Writer, "✓ Compiled %d module(s) to %s\n", len(result.Modules), opts.Output)
		return nil
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintln(formatter.Writer, string(data))
	return nil
}
