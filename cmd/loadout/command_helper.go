package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/loadout-dev/loadout/internal/infrastructure/container"
)

// CommandContext provides common command dependencies.
// Eliminates repetitive container initialization across CLI commands.
type CommandContext struct {
	Container *container.Container
	Logger    *slog.Logger
	Context   context.Context
}

// CommandHandler is a function that executes with initialized dependencies.
// Commands focus on business logic, not infrastructure setup.
type CommandHandler func(*CommandContext, *cobra.Command, []string) error

// withContainer wraps a command handler with container initialization.
// Handles common setup: config loading, logger creation, dependency injection.
// Commands that define an --ephemeral flag get in-memory build state.
func withContainer(handler CommandHandler) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		logger := slog.Default()
		ephemeral, _ := cmd.Flags().GetBool("ephemeral")

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		c, err := container.New(ctx, container.Options{
			Logger:           logger,
			SourceDir:        viper.GetString("source"),
			SystemConfigPath: viper.GetString("system-config"),
			StateDir:         viper.GetString("state-dir"),
			Ephemeral:        ephemeral,
			Redactor:         redactor,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize application: %w", err)
		}
		defer func() {
			if err := c.Close(); err != nil {
				logger.Warn("failed to close resources", "error", err)
			}
		}()

		return handler(&CommandContext{
			Container: c,
			Logger:    logger,
			Context:   ctx,
		}, cmd, args)
	}
}
