package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/loadout-dev/loadout/internal/templates"
)

// InitOptions holds the answers that shape a new source tree.
type InitOptions struct {
	Dir           string
	Profile       string
	Tools         []string
	Examples      bool
	Force         bool
	NoInteractive bool
}

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Create a new source tree",
	Long: `Scaffold a source tree with a base profile, a personal profile extending it
and output schemas for the selected tools. Existing files are left alone
unless --force is given.

Supported tools: ` + strings.Join(templates.SupportedTools, ", "),
	Example: `  loadout init
  loadout init ~/dotfiles/loadout --profile alice --tool claude --examples --no-interactive`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().String("profile", "", "Name of the personal profile")
	initCmd.Flags().StringSlice("tool", nil, "Tools to configure ("+strings.Join(templates.SupportedTools, ", ")+")")
	initCmd.Flags().Bool("examples", false, "Include example components")
	initCmd.Flags().Bool("force", false, "Overwrite existing files")
	initCmd.Flags().Bool("no-interactive", false, "Disable interactive prompts")

	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	opts := InitOptions{Dir: viper.GetString("source")}
	if len(args) == 1 {
		opts.Dir = args[0]
	}
	opts.Profile, _ = cmd.Flags().GetString("profile")
	opts.Tools, _ = cmd.Flags().GetStringSlice("tool")
	opts.Examples, _ = cmd.Flags().GetBool("examples")
	opts.Force, _ = cmd.Flags().GetBool("force")
	opts.NoInteractive, _ = cmd.Flags().GetBool("no-interactive")

	if !opts.NoInteractive {
		if err := promptInit(&opts, cmd.Flags().Changed("examples")); err != nil {
			return err
		}
	}
	if opts.Profile == "" {
		opts.Profile = "personal"
	}
	if len(opts.Tools) == 0 {
		opts.Tools = templates.SupportedTools
	}

	return scaffold(cmd.OutOrStdout(), opts)
}

func promptInit(opts *InitOptions, examplesSet bool) error {
	if opts.Profile == "" {
		opts.Profile = "personal"
		err := huh.NewInput().
			Title("Profile name").
			Description("Your personal profile; it extends base").
			Value(&opts.Profile).
			Run()
		if err != nil {
			return err
		}
	}

	if len(opts.Tools) == 0 {
		options := make([]huh.Option[string], 0, len(templates.SupportedTools))
		for _, tool := range templates.SupportedTools {
			options = append(options, huh.NewOption(tool, tool).Selected(true))
		}
		err := huh.NewMultiSelect[string]().
			Title("Select tools to configure").
			Options(options...).
			Value(&opts.Tools).
			Run()
		if err != nil {
			return err
		}
	}

	if !examplesSet {
		err := huh.NewConfirm().
			Title("Add example components?").
			Value(&opts.Examples).
			Run()
		if err != nil {
			return err
		}
	}
	return nil
}

// scaffold renders the source tree into opts.Dir.
func scaffold(w io.Writer, opts InitOptions) error {
	files, err := templates.Scaffold(templates.ScaffoldData{
		Profile:  opts.Profile,
		Tools:    opts.Tools,
		Examples: opts.Examples,
	})
	if err != nil {
		return err
	}

	var written, skipped int
	for _, f := range files {
		path := filepath.Join(opts.Dir, filepath.FromSlash(f.Path))
		if !opts.Force {
			if _, err := os.Stat(path); err == nil {
				skipped++
				if _, err := fmt.Fprintf(w, "  skip   %s (exists)\n", f.Path); err != nil {
					return err
				}
				continue
			} else if !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("failed to check %s: %w", path, err)
			}
		}

		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", f.Path, err)
		}
		if err := os.WriteFile(path, f.Content, 0o600); err != nil {
			return fmt.Errorf("failed to write %s: %w", f.Path, err)
		}
		written++
		if _, err := fmt.Fprintf(w, "  create %s\n", f.Path); err != nil {
			return err
		}
	}

	_, err = fmt.Fprintf(w, "\n✓ Source tree ready in %s (%d written, %d skipped)\nRun 'loadout compile %s' to build it.\n",
		opts.Dir, written, skipped, opts.Profile)
	return err
}
