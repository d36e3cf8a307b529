package entities

import (
	"fmt"
	"maps"
	"slices"

	"github.com/loadout-dev/loadout/internal/domain/values"
)

// DefaultSeparator joins appended fragments when a format sets none.
const DefaultSeparator = "\n\n"

// ToolSchema declares how one target tool consumes rendered output.
type ToolSchema struct {
	Tool      string                 `yaml:"tool" json:"tool" validate:"required,component_id"`
	Formats   map[string]FormatEntry `yaml:"formats" json:"formats" validate:"required,min=1,dive,keys,required,endkeys"`
	Variables []VariableDecl         `yaml:"variables,omitempty" json:"variables,omitempty" validate:"dive"`

	// Source is the file the schema was loaded from.
	Source string `yaml:"-" json:"-"`
}

// FormatEntry maps one render-format tag to an output path and merge strategy.
type FormatEntry struct {
	// Path is a template relative to the tool's staging root.
	Path     string               `yaml:"path" json:"path" validate:"required"`
	Strategy values.MergeStrategy `yaml:"strategy" json:"strategy" validate:"required,oneof=append json-merge overwrite"`
	// Template, when set, is rendered over the component to build the fragment.
	Template string `yaml:"template,omitempty" json:"template,omitempty"`
	// Field names the content key used as the fragment when Template is empty.
	Field     string  `yaml:"field,omitempty" json:"field,omitempty"`
	Separator *string `yaml:"separator,omitempty" json:"separator,omitempty"`
}

// JoinSeparator returns the separator used by the append strategy.
func (f FormatEntry) JoinSeparator() string {
	if f.Separator == nil {
		return DefaultSeparator
	}
	return *f.Separator
}

// ContentField returns the content key the fragment is read from.
// An empty result means the whole content.
func (f FormatEntry) ContentField() string {
	if f.Field != "" {
		return f.Field
	}
	if f.Strategy.IsText() {
		return "body"
	}
	return ""
}

// VariableDecl declares a variable a tool's templates consume.
type VariableDecl struct {
	Name     string      `yaml:"name" json:"name" validate:"required"`
	Required bool        `yaml:"required,omitempty" json:"required,omitempty"`
	Default  interface{} `yaml:"default,omitempty" json:"default,omitempty"`
}

// Format returns the entry for a render-format tag.
func (t *ToolSchema) Format(tag string) (FormatEntry, bool) {
	f, ok := t.Formats[tag]
	return f, ok
}

// FormatTags returns the declared format tags, sorted.
func (t *ToolSchema) FormatTags() []string {
	return slices.Sorted(maps.Keys(t.Formats))
}

// Default returns the declared default for a variable.
func (t *ToolSchema) Default(name string) (interface{}, bool) {
	for _, v := range t.Variables {
		if v.Name == name && v.Default != nil {
			return v.Default, true
		}
	}
	return nil, false
}

// Validate checks strategies and duplicate variable declarations.
func (t *ToolSchema) Validate() error {
	if t.Tool == "" {
		return NewSchemaError(StageRender, t.Source, "tool", "tool name cannot be empty")
	}
	if !IsSafeName(t.Tool) {
		return NewSchemaError(StageRender, t.Source, "tool",
			fmt.Sprintf("invalid tool name %q (letters, digits, '.', '_' and '-' only; not '.' or '..')", t.Tool))
	}
	if len(t.Formats) == 0 {
		return NewSchemaError(StageRender, t.Source, "formats", "at least one format is required")
	}
	for _, tag := range t.FormatTags() {
		entry := t.Formats[tag]
		if entry.Path == "" {
			return NewSchemaError(StageRender, t.Source, "formats."+tag+".path", "path cannot be empty")
		}
		if _, err := values.NewMergeStrategy(entry.Strategy.String()); err != nil {
			return NewSchemaError(StageRender, t.Source, "formats."+tag+".strategy", err.Error())
		}
	}
	seen := make(map[string]bool, len(t.Variables))
	for i, v := range t.Variables {
		if seen[v.Name] {
			return NewSchemaError(StageRender, t.Source, fmt.Sprintf("variables[%d].name", i),
				fmt.Sprintf("duplicate variable %q", v.Name))
		}
		seen[v.Name] = true
	}
	return nil
}
