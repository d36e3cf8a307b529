package output

import (
	"encoding/json"
	"io"

	"github.com/loadout-dev/loadout/internal/application/dto"
)

// JSONFormatter writes build results, or any other report, as JSON.
type JSONFormatter struct {
	writer io.Writer
	indent bool
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter(w io.Writer, indent bool) *JSONFormatter {
	return &JSONFormatter{
		writer: w,
		indent: indent,
	}
}

// Format writes the build result as JSON.
func (f *JSONFormatter) Format(result *dto.BuildResult) error {
	return f.Encode(result)
}

// Encode writes v as one JSON document.
func (f *JSONFormatter) Encode(v any) error {
	enc := json.NewEncoder(f.writer)
	if f.indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
