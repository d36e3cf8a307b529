package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	apperrors "github.com/loadout-dev/loadout/internal/application/errors"
	"github.com/loadout-dev/loadout/internal/infrastructure/sensitivedata"
)

var (
	cfgFile string
	verbose bool

	// redactor collects secrets resolved during deploy so the log writer
	// can scrub them.
	redactor = sensitivedata.NewProvider()
)

// rootCmd is the application entry point.
var rootCmd = &cobra.Command{
	Use:   "loadout",
	Short: "Compile AI assistant configuration from reusable components",
	Long: `Loadout composes rules, skills, commands, hooks and MCP server definitions
into per-tool configuration. Profiles select components, dependencies are
resolved, variables bound and every tool's files rendered into a staged
build that can be diffed before it is deployed.

Source layout:
  components/**   one component per file (yaml, json, jsonc, md)
  profiles/*      selection policies, optionally extending each other
  tools/*         per-tool output schemas`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		setupLogging()
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and returns the process exit code.
func Execute(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		reportError(err)
		return 1
	}
	return 0
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "CLI config file (default is $HOME/.loadout.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	flags.StringP("source", "s", ".", "source tree root")
	flags.String("system-config", "", "system config file (default is $HOME/.loadout/config.yaml)")
	flags.String("state-dir", "", "directory holding staged builds, manifests and history")
	flags.Bool("no-color", false, "disable colored output")

	for _, name := range []string{"source", "system-config", "state-dir", "no-color"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}
}

// initConfig loads configuration from the config file and environment.
// Every global flag can also be set as LOADOUT_<FLAG> (dashes become
// underscores) or as a key in the config file.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigType("yaml")
		viper.SetConfigName(".loadout")
	}

	viper.SetEnvPrefix("LOADOUT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		slog.Debug("using config file", "file", viper.ConfigFileUsed())
	}
}

func setupLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	// Using TextHandler for CLI friendliness
	logger := slog.New(slog.NewTextHandler(sensitivedata.NewWriter(os.Stderr, redactor), &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}

// reportError logs err with its structured diagnostic when it carries one.
func reportError(err error) {
	err = sensitivedata.SafeError(err, redactor)

	var buildErr *apperrors.BuildError
	if errors.As(err, &buildErr) {
		d := buildErr.Diagnostic
		attrs := []any{"stage", d.Stage, "message", d.Message}
		for _, kv := range [][2]string{
			{"profile", d.Profile},
			{"component", d.ComponentID},
			{"tool", d.Tool},
			{"file", d.File},
		} {
			if kv[1] != "" {
				attrs = append(attrs, kv[0], kv[1])
			}
		}
		slog.Error("build failed", attrs...)
		return
	}
	slog.Error("command failed", "error", err)
}
