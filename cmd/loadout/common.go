package main

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/loadout-dev/loadout/internal/application/ports"
	"github.com/loadout-dev/loadout/internal/infrastructure/output"
	"github.com/loadout-dev/loadout/internal/version"
)

// CommonOptions contains flags shared by the build commands.
type CommonOptions struct {
	// Output
	Format string

	// Execution
	Timeout time.Duration

	// Flags (bools grouped for alignment)
	Quiet bool
}

// DefaultCommonOptions returns sensible defaults.
func DefaultCommonOptions() CommonOptions {
	return CommonOptions{
		Format: "table",
	}
}

// RegisterFlags adds common flags to a cobra command.
func (opts *CommonOptions) RegisterFlags(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", opts.Timeout,
		"Build timeout (0 uses the system config, default 2m)")
	cmd.Flags().StringVar(&opts.Format, "format", opts.Format,
		"Output format: "+strings.Join(output.NewFormatterFactory().SupportedFormats(), ", "))
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false,
		"Quiet output (errors only)")
}

// ApplyToContext applies timeout to context.
// Returns new context and cancel function.
func (opts *CommonOptions) ApplyToContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if opts.Timeout > 0 {
		return context.WithTimeout(ctx, opts.Timeout)
	}
	// No timeout - return no-op cancel
	return ctx, func() {}
}

// ValidateFlags validates common options.
func (opts *CommonOptions) ValidateFlags() error {
	if opts.Timeout < 0 {
		return fmt.Errorf("--timeout must not be negative")
	}

	valid := output.NewFormatterFactory().SupportedFormats()
	if !slices.Contains(valid, opts.Format) {
		return fmt.Errorf("invalid format: %s (valid: %s)", opts.Format, strings.Join(valid, ", "))
	}

	return nil
}

// FormatterOptions builds formatter options from the flags and config.
func (opts *CommonOptions) FormatterOptions(changesOnly bool) ports.FormatterOptions {
	return ports.FormatterOptions{
		Indent:      true,
		NoColor:     viper.GetBool("no-color"),
		ChangesOnly: changesOnly,
		Version:     version.Get().Version,
	}
}
