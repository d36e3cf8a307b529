package main

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/loadout-dev/loadout/internal/infrastructure/watch"
)

var watchOpts = compileOptions{CommonOptions: DefaultCommonOptions()}

var watchCmd = &cobra.Command{
	Use:   "watch <profile>",
	Short: "Recompile a profile whenever the source tree changes",
	Long: `Compile the profile once, then again after every batch of changes to the
source tree. A failed build is reported and the previous staged build is
left in place; watching continues until interrupted.`,
	Example: `  loadout watch personal
  loadout watch personal --tool cursor --debounce 500ms`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(_ *cobra.Command, _ []string) error {
		return watchOpts.ValidateFlags()
	},
	RunE: withContainer(func(cc *CommandContext, cmd *cobra.Command, args []string) error {
		debounce, _ := cmd.Flags().GetDuration("debounce")
		return runWatch(cc, cmd.OutOrStdout(), args[0], debounce)
	}),
}

func init() {
	watchOpts.RegisterFlags(watchCmd)
	watchCmd.Flags().StringArrayVarP(&watchOpts.tools, "tool", "t", nil, "Build only this tool (repeatable)")
	watchCmd.Flags().BoolVar(&watchOpts.changesOnly, "changes-only", true, "Hide unchanged paths")
	watchCmd.Flags().Duration("debounce", watch.DefaultDebounce, "Quiet period before rebuilding")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cc *CommandContext, w io.Writer, profile string, debounce time.Duration) error {
	watcher, err := watch.New(cc.Container.SourceDir(), debounce, cc.Logger)
	if err != nil {
		return err
	}

	build := func() {
		if err := runCompile(cc, w, profile, watchOpts); err != nil {
			reportError(err)
		}
	}
	build()

	stateDir, _ := filepath.Abs(cc.Container.StateDir())
	err = watcher.Run(cc.Context, func(_ context.Context, changed []string) {
		relevant := changed[:0]
		for _, p := range changed {
			if abs, err := filepath.Abs(p); err == nil && stateDir != "" && strings.HasPrefix(abs, stateDir+string(filepath.Separator)) {
				continue
			}
			relevant = append(relevant, p)
		}
		if len(relevant) == 0 {
			return
		}
		cc.Logger.Info("source changed, rebuilding", "profile", profile, "paths", len(relevant))
		build()
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
