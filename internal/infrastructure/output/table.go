package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/loadout-dev/loadout/internal/application/dto"
	"github.com/loadout-dev/loadout/internal/domain/entities"
	"github.com/loadout-dev/loadout/internal/domain/values"
)

var (
	colorAdded   = color.New(color.FgGreen)
	colorChanged = color.New(color.FgYellow)
	colorRemoved = color.New(color.FgRed)
	colorMuted   = color.New(color.FgHiBlack)
	colorHeading = color.New(color.Bold)
	colorWarning = color.New(color.FgYellow, color.Bold)
)

const ruleWidth = 72

// TableFormatter formats build results as a human-readable report.
type TableFormatter struct {
	writer      io.Writer
	EnableColor bool
	// ChangesOnly hides unchanged paths.
	ChangesOnly bool
}

// NewTableFormatter creates a new table formatter.
func NewTableFormatter(w io.Writer) *TableFormatter {
	return &TableFormatter{
		writer:      w,
		EnableColor: true, // Default to true, caller can disable
	}
}

func (f *TableFormatter) paint(c *color.Color, text string) string {
	if !f.EnableColor {
		return text
	}
	return c.Sprint(text)
}

// Format writes the build result as a per-tool change report.
//
//nolint:errcheck // Table formatting errors are non-critical (best-effort terminal output)
func (f *TableFormatter) Format(result *dto.BuildResult) error {
	rule := f.paint(colorMuted, strings.Repeat("─", ruleWidth))

	fmt.Fprintln(f.writer, rule)
	fmt.Fprintf(f.writer, "Profile: %s\n", f.paint(colorHeading, result.Profile))
	fmt.Fprintf(f.writer, "Build:   %s\n", result.BuildID)
	fmt.Fprintf(f.writer, "Took:    %s\n", result.Metadata.Duration.Round(time.Millisecond))
	if !result.Metadata.Written {
		fmt.Fprintf(f.writer, "Mode:    %s\n", f.paint(colorWarning, "dry run (nothing written)"))
	}
	fmt.Fprintln(f.writer)

	if len(result.Outputs) == 0 {
		fmt.Fprintln(f.writer, "No tool outputs.")
		return nil
	}

	for _, out := range result.Outputs {
		f.formatTool(out)
	}

	if len(result.Diagnostics) > 0 {
		fmt.Fprintln(f.writer, f.paint(colorHeading, "Warnings:"))
		for _, d := range result.Diagnostics {
			f.formatDiagnostic(d)
		}
		fmt.Fprintln(f.writer)
	}

	fmt.Fprintln(f.writer, rule)
	f.formatSummary(result)
	fmt.Fprintln(f.writer, rule)
	return nil
}

//nolint:errcheck // Best-effort terminal output
func (f *TableFormatter) formatTool(out *dto.ToolOutput) {
	files := 0
	if out.Manifest != nil {
		files = len(out.Manifest.Entries)
	}
	fmt.Fprintf(f.writer, "%s %s\n", f.paint(colorHeading, out.Tool), f.paint(colorMuted, fmt.Sprintf("(%d files)", files)))

	shown := 0
	for _, ch := range out.Diff.Changes {
		if f.ChangesOnly && ch.Change == values.ChangeUnchanged {
			continue
		}
		symbol, c := changeStyle(ch.Change)
		fmt.Fprintf(f.writer, "  %s %s\n", f.paint(c, symbol), ch.Path)
		shown++
	}
	if shown == 0 {
		fmt.Fprintf(f.writer, "  %s\n", f.paint(colorMuted, "no changes"))
	}
	fmt.Fprintln(f.writer)
}

//nolint:errcheck // Best-effort terminal output
func (f *TableFormatter) formatDiagnostic(d entities.Diagnostic) {
	var where []string
	if d.Tool != "" {
		where = append(where, "tool="+d.Tool)
	}
	if d.ComponentID != "" {
		where = append(where, "component="+d.ComponentID)
	}
	if d.File != "" {
		where = append(where, "file="+d.File)
	}
	loc := ""
	if len(where) > 0 {
		loc = " " + f.paint(colorMuted, "["+strings.Join(where, " ")+"]")
	}
	fmt.Fprintf(f.writer, "  %s %s: %s%s\n", f.paint(colorWarning, "⚠"), d.Stage, d.Message, loc)
}

//nolint:errcheck // Best-effort terminal output
func (f *TableFormatter) formatSummary(result *dto.BuildResult) {
	var added, changed, unchanged, removed int
	for _, out := range result.Outputs {
		added += out.Diff.Count(values.ChangeAdded)
		changed += out.Diff.Count(values.ChangeChanged)
		unchanged += out.Diff.Count(values.ChangeUnchanged)
		removed += out.Diff.Count(values.ChangeRemoved)
	}
	fmt.Fprintf(f.writer, "Tools: %d  %s  %s  %s  %s\n",
		len(result.Outputs),
		f.paint(colorAdded, fmt.Sprintf("+%d added", added)),
		f.paint(colorChanged, fmt.Sprintf("~%d changed", changed)),
		f.paint(colorRemoved, fmt.Sprintf("-%d removed", removed)),
		f.paint(colorMuted, fmt.Sprintf("=%d unchanged", unchanged)),
	)
}

func changeStyle(c values.ChangeType) (string, *color.Color) {
	switch c {
	case values.ChangeAdded:
		return "+", colorAdded
	case values.ChangeChanged:
		return "~", colorChanged
	case values.ChangeRemoved:
		return "-", colorRemoved
	default:
		return "=", colorMuted
	}
}
