package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/loadout-dev/loadout/internal/application/dto"
	"github.com/loadout-dev/loadout/internal/domain/entities"
	"github.com/loadout-dev/loadout/internal/domain/values"
	"github.com/loadout-dev/loadout/internal/infrastructure/output"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List components in the source tree",
	Long: `List components, optionally narrowed by kind, tag or a filter expression.

Filter expressions see the fields id, kind, version, tags, priority,
depends_on and tools, e.g.

  loadout list --filter 'kind == "rule" && priority > 10'`,
	Example: `  loadout list
  loadout list --kind mcp-global --kind mcp-local
  loadout list --tag git --format json`,
	Args: cobra.NoArgs,
	RunE: withContainer(func(cc *CommandContext, cmd *cobra.Command, _ []string) error {
		kindNames, _ := cmd.Flags().GetStringArray("kind")
		tags, _ := cmd.Flags().GetStringArray("tag")
		filter, _ := cmd.Flags().GetString("filter")
		format, _ := cmd.Flags().GetString("format")

		kinds := make([]values.ComponentKind, 0, len(kindNames))
		for _, name := range kindNames {
			k, err := values.NewComponentKind(name)
			if err != nil {
				return err
			}
			kinds = append(kinds, k)
		}

		components, err := cc.Container.ListComponentsUseCase().Execute(cc.Context, dto.ListRequest{
			Kinds:            kinds,
			Tags:             tags,
			FilterExpression: filter,
		})
		if err != nil {
			return err
		}
		return writeComponents(cmd.OutOrStdout(), format, components)
	}),
}

var historyCmd = &cobra.Command{
	Use:   "history [profile]",
	Short: "Show recorded builds",
	Long:  `Show the most recent written builds, newest first, one row per tool.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: withContainer(func(cc *CommandContext, cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		format, _ := cmd.Flags().GetString("format")
		if limit == 0 {
			limit = cc.Container.SystemConfig().History.Limit
		}

		var profile string
		if len(args) == 1 {
			profile = args[0]
		}

		records, err := cc.Container.BuildHistoryUseCase().Execute(cc.Context, profile, limit)
		if err != nil {
			return err
		}
		return writeHistory(cmd.OutOrStdout(), format, records)
	}),
}

func init() {
	listCmd.Flags().StringArray("kind", nil, "Only components of this kind (repeatable): "+values.KindNames())
	listCmd.Flags().StringArray("tag", nil, "Only components carrying this tag (repeatable)")
	listCmd.Flags().String("filter", "", "Filter expression over component fields")
	listCmd.Flags().String("format", "table", "Output format: table, json, yaml")

	historyCmd.Flags().Int("limit", 0, "Maximum number of rows (0 uses history.limit from the system config)")
	historyCmd.Flags().String("format", "table", "Output format: table, json, yaml")

	rootCmd.AddCommand(listCmd, historyCmd)
}

// encodeStructured writes v as json or yaml and reports whether format was
// a structured one.
func encodeStructured(w io.Writer, format string, v any) (bool, error) {
	if format == "table" {
		return false, nil
	}
	enc, err := output.NewFormatterFactory().NewEncoder(format, w)
	if err != nil {
		return true, err
	}
	return true, enc.Encode(v)
}

func writeComponents(w io.Writer, format string, components []*entities.Component) error {
	if done, err := encodeStructured(w, format, components); done {
		return err
	}

	if len(components) == 0 {
		_, err := fmt.Fprintln(w, "No components found.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	if _, err := fmt.Fprintln(tw, "ID\tKIND\tVERSION\tPRIORITY\tTAGS"); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, c := range components {
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			c.ID,
			c.Kind,
			c.Version,
			c.Priority,
			strings.Join(c.Tags, ","),
		); err != nil {
			return fmt.Errorf("failed to write component info: %w", err)
		}
	}
	return tw.Flush()
}

func writeHistory(w io.Writer, format string, records []dto.BuildRecord) error {
	if done, err := encodeStructured(w, format, records); done {
		return err
	}

	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No builds recorded.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	if _, err := fmt.Fprintln(tw, "BUILD\tPROFILE\tTOOL\tWHEN\tFILES\tCHANGES\tDIGEST"); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range records {
		digest := strings.TrimPrefix(r.Digest, "blake3:")
		// Truncate digest
		if len(digest) > 12 {
			digest = digest[:12]
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t+%d ~%d -%d\t%s\n",
			r.BuildID,
			r.Profile,
			r.Tool,
			r.CreatedAt.Local().Format(time.DateTime),
			r.Files,
			r.Added, r.Changed, r.Removed,
			digest,
		); err != nil {
			return fmt.Errorf("failed to write build info: %w", err)
		}
	}
	return tw.Flush()
}
