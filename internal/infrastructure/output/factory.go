package output

import (
	"fmt"
	"io"

	"github.com/loadout-dev/loadout/internal/application/ports"
)

var _ ports.OutputFormatterFactory = (*FormatterFactory)(nil)

// FormatterFactory implements ports.OutputFormatterFactory.
type FormatterFactory struct{}

// NewFormatterFactory creates a new formatter factory.
func NewFormatterFactory() *FormatterFactory {
	return &FormatterFactory{}
}

// Create returns a formatter for the given format name.
func (f *FormatterFactory) Create(
	format string,
	writer io.Writer,
	options ports.FormatterOptions,
) (ports.OutputFormatter, error) {
	switch format {
	case "table":
		t := NewTableFormatter(writer)
		t.EnableColor = !options.NoColor
		t.ChangesOnly = options.ChangesOnly
		return t, nil
	case "json":
		return NewJSONFormatter(writer, options.Indent), nil
	case "yaml":
		return NewYAMLFormatter(writer), nil
	case "sarif":
		return NewSARIFFormatter(writer, options.Version), nil
	default:
		return nil, fmt.Errorf(
			"unknown format: %s (supported: %v)",
			format, f.SupportedFormats(),
		)
	}
}

// Encoder writes an arbitrary report (deploy results, component lists,
// history) in a structured format.
type Encoder interface {
	Encode(v any) error
}

// NewEncoder returns the encoder for json or yaml. Table and sarif only
// describe build results, so they have no encoder.
func (f *FormatterFactory) NewEncoder(format string, writer io.Writer) (Encoder, error) {
	switch format {
	case "json":
		return NewJSONFormatter(writer, true), nil
	case "yaml":
		return NewYAMLFormatter(writer), nil
	default:
		return nil, fmt.Errorf("format %s cannot encode this report (use json or yaml)", format)
	}
}

// SupportedFormats returns list of available format names.
func (f *FormatterFactory) SupportedFormats() []string {
	return []string{"table", "json", "yaml", "sarif"}
}
