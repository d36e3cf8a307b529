// Package entities contains domain entities for the loadout domain model.
// These are pure domain types with NO infrastructure dependencies.
package entities

import (
	"fmt"
	"path/filepath"
	"regexp"
	"slices"

	"github.com/loadout-dev/loadout/internal/domain/values"
)

var componentIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// Component is an atomic, versioned configuration fragment.
//
// Entity Identity: ID uniquely identifies a component within a store.
// Content is opaque to the compiler except for ${name} placeholders.
type Component struct {
	ID            string                 `yaml:"id" json:"id" validate:"required,component_id"`
	Version       string                 `yaml:"version" json:"version" validate:"required,semver"`
	Kind          values.ComponentKind   `yaml:"kind" json:"kind" validate:"required,oneof=rule skill command hook mcp-global mcp-local"`
	Description   string                 `yaml:"description,omitempty" json:"description,omitempty"`
	Tags          []string               `yaml:"tags,omitempty" json:"tags,omitempty" validate:"dive,required"`
	Priority      int                    `yaml:"priority,omitempty" json:"priority,omitempty"`
	DependsOn     []string               `yaml:"depends_on,omitempty" json:"depends_on,omitempty" validate:"dive,component_id"`
	ConflictsWith []string               `yaml:"conflicts_with,omitempty" json:"conflicts_with,omitempty" validate:"dive,component_id"`
	Content       map[string]interface{} `yaml:"content,omitempty" json:"content,omitempty"`
	Output        map[string]string      `yaml:"output,omitempty" json:"output,omitempty" validate:"dive,keys,required,endkeys,required"`

	// Source is the file the component was loaded from.
	Source string `yaml:"-" json:"-"`
}

// IsValidComponentID reports whether id is a well-formed component id.
func IsValidComponentID(id string) bool {
	return componentIDPattern.MatchString(id)
}

// IsSafeName reports whether name can be used as a single directory or file
// name under the state directory. Profile and tool names must satisfy it.
func IsSafeName(name string) bool {
	return componentIDPattern.MatchString(name) &&
		name != "." && name != ".." &&
		filepath.IsLocal(name)
}

// Validate checks the invariants every component must satisfy regardless of
// how it was decoded.
func (c *Component) Validate() error {
	if !IsValidComponentID(c.ID) {
		return NewSchemaError(StageStore, c.Source, "id", fmt.Sprintf("invalid component id %q", c.ID))
	}
	if !c.Kind.IsValid() {
		return NewSchemaError(StageStore, c.Source, "kind",
			fmt.Sprintf("invalid kind %q (valid: %s)", c.Kind, values.KindNames()))
	}
	if slices.Contains(c.DependsOn, c.ID) {
		return NewSchemaError(StageStore, c.Source, "depends_on", "component cannot depend on itself")
	}
	if slices.Contains(c.ConflictsWith, c.ID) {
		return NewSchemaError(StageStore, c.Source, "conflicts_with", "component cannot conflict with itself")
	}
	return nil
}

// HasTag reports whether the component carries tag.
func (c *Component) HasTag(tag string) bool {
	return slices.Contains(c.Tags, tag)
}

// OutputFor returns the render-format tag the component declares for tool.
func (c *Component) OutputFor(tool string) (string, bool) {
	format, ok := c.Output[tool]
	return format, ok
}

// Tools returns the tool names of the output map, sorted.
func (c *Component) Tools() []string {
	tools := make([]string, 0, len(c.Output))
	for tool := range c.Output {
		tools = append(tools, tool)
	}
	slices.Sort(tools)
	return tools
}

// WithContent returns a shallow copy of the component carrying content.
// The receiver is not modified.
func (c *Component) WithContent(content map[string]interface{}) *Component {
	clone := *c
	clone.Content = content
	return &clone
}
