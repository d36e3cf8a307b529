// Package output provides formatters for loadout build results.
package output

import (
	"fmt"
	"io"

	"github.com/owenrumney/go-sarif/v3/pkg/report/v210/sarif"

	"github.com/loadout-dev/loadout/internal/application/dto"
)

// SARIFFormatter formats build results as SARIF 2.1.0 JSON.
// Every added, changed or removed path becomes a note-level result located
// at <tool>/<path>; warnings become warning-level results.
type SARIFFormatter struct {
	writer  io.Writer
	version string
}

// NewSARIFFormatter creates a new SARIF formatter. version is reported as
// the driver version.
func NewSARIFFormatter(writer io.Writer, version string) *SARIFFormatter {
	return &SARIFFormatter{
		writer:  writer,
		version: version,
	}
}

// Format writes the build result as SARIF 2.1.0 JSON.
func (f *SARIFFormatter) Format(result *dto.BuildResult) error {
	report := sarif.NewReport()

	run := sarif.NewRunWithInformationURI("loadout", "https://github.com/loadout-dev/loadout")
	if f.version != "" {
		run.Tool.Driver.Version = &f.version
	}

	newSARIFMapper(result).mapToRun(run)
	report.AddRun(run)

	if err := report.Write(f.writer); err != nil {
		return fmt.Errorf("failed to write SARIF output: %w", err)
	}
	_, err := f.writer.Write([]byte("\n"))
	return err
}

func ptrString(s string) *string {
	return &s
}

func ptrBool(b bool) *bool {
	return &b
}
