package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/loadout-dev/loadout/internal/application/dto"
	apperrors "github.com/loadout-dev/loadout/internal/application/errors"
	"github.com/loadout-dev/loadout/internal/infrastructure/output"
)

// compileOptions holds the flags of compile and diff.
type compileOptions struct {
	CommonOptions
	tools     []string
	dryRun    bool
	ephemeral bool
	// changesOnly hides unchanged paths in the report.
	changesOnly bool
}

var compileOpts = compileOptions{CommonOptions: DefaultCommonOptions()}

var compileCmd = &cobra.Command{
	Use:   "compile <profile>",
	Short: "Build a profile into staged per-tool output",
	Long: `Resolve the profile, select and order its components, bind variables and
render every tool's files. The staged build and its manifests are written to
the state directory; the report classifies each path against the previous
build as added, changed, unchanged or removed.

On failure nothing is written and the structured diagnostic is reported.`,
	Example: `  loadout compile personal
  loadout compile personal --tool claude --format json
  loadout compile work --dry-run`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(_ *cobra.Command, _ []string) error {
		return compileOpts.ValidateFlags()
	},
	RunE: withContainer(func(cc *CommandContext, cmd *cobra.Command, args []string) error {
		return runCompile(cc, cmd.OutOrStdout(), args[0], compileOpts)
	}),
}

var diffOpts = compileOptions{CommonOptions: DefaultCommonOptions(), dryRun: true, changesOnly: true}

var diffCmd = &cobra.Command{
	Use:   "diff <profile>",
	Short: "Show what compiling a profile would change",
	Long: `Compile the profile without writing anything and report only the paths
that differ from the last successful build.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(_ *cobra.Command, _ []string) error {
		return diffOpts.ValidateFlags()
	},
	RunE: withContainer(func(cc *CommandContext, cmd *cobra.Command, args []string) error {
		return runCompile(cc, cmd.OutOrStdout(), args[0], diffOpts)
	}),
}

func init() {
	compileOpts.RegisterFlags(compileCmd)
	compileCmd.Flags().StringArrayVarP(&compileOpts.tools, "tool", "t", nil, "Build only this tool (repeatable)")
	compileCmd.Flags().BoolVar(&compileOpts.dryRun, "dry-run", false, "Render and diff without writing")
	compileCmd.Flags().BoolVar(&compileOpts.ephemeral, "ephemeral", false, "Keep build state in memory (nothing persists)")
	compileCmd.Flags().BoolVar(&compileOpts.changesOnly, "changes-only", false, "Hide unchanged paths")

	diffOpts.RegisterFlags(diffCmd)
	diffCmd.Flags().StringArrayVarP(&diffOpts.tools, "tool", "t", nil, "Diff only this tool (repeatable)")

	rootCmd.AddCommand(compileCmd, diffCmd)
}

// runCompile builds profile and writes the report to w.
func runCompile(cc *CommandContext, w io.Writer, profile string, opts compileOptions) error {
	options := cc.Container.RuntimeConfig().CompileOptions(opts.dryRun)
	if opts.Timeout > 0 {
		options.Timeout = opts.Timeout
	}

	result, err := cc.Container.CompileUseCase().Execute(cc.Context, dto.CompileRequest{
		Metadata: dto.RequestMetadata{RequestID: uuid.NewString()},
		Profile:  profile,
		Tools:    opts.tools,
		Options:  options,
	})
	if err != nil {
		var buildErr *apperrors.BuildError
		if errors.As(err, &buildErr) && opts.Format != "table" && !opts.Quiet {
			// Machine formats get the diagnostic on stdout as well.
			if werr := writeDiagnostic(w, opts.Format, buildErr); werr != nil {
				cc.Logger.Warn("failed to write diagnostic", "error", werr)
			}
		}
		return err
	}

	if opts.Quiet {
		return nil
	}

	formatter, err := output.NewFormatterFactory().Create(opts.Format, w, opts.FormatterOptions(opts.changesOnly))
	if err != nil {
		return err
	}
	if err := formatter.Format(result); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	return nil
}
