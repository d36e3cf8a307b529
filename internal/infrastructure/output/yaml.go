package output

import (
	"io"

	"github.com/goccy/go-yaml"

	"github.com/loadout-dev/loadout/internal/application/dto"
)

// YAMLFormatter writes build results, or any other report, as YAML.
type YAMLFormatter struct {
	writer io.Writer
}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter(w io.Writer) *YAMLFormatter {
	return &YAMLFormatter{writer: w}
}

// Format writes the build result as YAML.
func (f *YAMLFormatter) Format(result *dto.BuildResult) error {
	return f.Encode(result)
}

// Encode writes v as one YAML document.
func (f *YAMLFormatter) Encode(v any) error {
	encoder := yaml.NewEncoder(f.writer, yaml.Indent(2))
	if err := encoder.Encode(v); err != nil {
		return err
	}
	return encoder.Close()
}
