package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/loadout-dev/loadout/internal/application/dto"
)

type deployOptions struct {
	CommonOptions
	tools  []string
	dryRun bool
}

var deployOpts = deployOptions{CommonOptions: DefaultCommonOptions()}

var deployCmd = &cobra.Command{
	Use:   "deploy <profile>",
	Short: "Place the last staged build into each tool's target directory",
	Long: `Copy the staged build of a profile into the configured target directories
(deploy.targets.<tool> in the system config). Staged files are verified against
their manifest first, ${secret:NAME} references are resolved and every target
is locked while it is written.`,
	Example: `  loadout deploy personal
  loadout deploy personal --tool claude --dry-run`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(_ *cobra.Command, _ []string) error {
		if err := deployOpts.ValidateFlags(); err != nil {
			return err
		}
		if deployOpts.Format == "sarif" {
			return fmt.Errorf("sarif output is not available for deploy")
		}
		return nil
	},
	RunE: withContainer(func(cc *CommandContext, cmd *cobra.Command, args []string) error {
		ctx, cancel := deployOpts.ApplyToContext(cc.Context)
		defer cancel()

		result, err := cc.Container.DeployUseCase().Execute(ctx, dto.DeployRequest{
			Metadata: dto.RequestMetadata{RequestID: uuid.NewString()},
			Profile:  args[0],
			Tools:    deployOpts.tools,
			DryRun:   deployOpts.dryRun,
		})
		if err != nil {
			return err
		}
		if deployOpts.Quiet {
			return nil
		}
		return writeDeployResult(cmd.OutOrStdout(), deployOpts.Format, result)
	}),
}

func init() {
	deployOpts.RegisterFlags(deployCmd)
	deployCmd.Flags().StringArrayVarP(&deployOpts.tools, "tool", "t", nil, "Deploy only this tool (repeatable)")
	deployCmd.Flags().BoolVar(&deployOpts.dryRun, "dry-run", false, "Verify and report without writing")

	rootCmd.AddCommand(deployCmd)
}

func writeDeployResult(w io.Writer, format string, result *dto.DeployResult) error {
	if done, err := encodeStructured(w, format, result); done {
		return err
	}

	verb := "Deployed"
	if result.DryRun {
		verb = "Would deploy"
	}
	if _, err := fmt.Fprintf(w, "%s build %s of profile %s\n\n", verb, result.BuildID, result.Profile); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	if _, err := fmt.Fprintln(tw, "TOOL\tTARGET\tFILES\tSECRETS"); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, t := range result.Tools {
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", t.Tool, t.Target, len(t.Written), t.Secrets); err != nil {
			return fmt.Errorf("failed to write deploy info: %w", err)
		}
	}
	return tw.Flush()
}
