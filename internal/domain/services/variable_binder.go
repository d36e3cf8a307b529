package services

import (
	"errors"
	"fmt"
	"maps"
	"reflect"
	"regexp"
	"slices"
	"strings"

	"github.com/loadout-dev/loadout/internal/domain/entities"
)

// Placeholder pattern: ${name} or ${nested.name}.
// Secret references (${secret:NAME}) never match because of the colon.
var placeholderPattern = regexp.MustCompile(`\$\{([a-zA-Z_][a-zA-Z0-9_-]*(?:\.[a-zA-Z0-9_-]+)*)\}`)

// Bindings resolves placeholder names: profile variables first, then the
// defaults declared by tool schemas.
type Bindings struct {
	builtins map[string]interface{}
	vars     map[string]interface{}
	defaults map[string]interface{}
}

// NewBindings builds the lookup used by the binder. Tool schemas are
// visited in the order given; the first declared default wins.
func NewBindings(vars map[string]interface{}, tools []*entities.ToolSchema) *Bindings {
	defaults := make(map[string]interface{})
	for _, tool := range tools {
		for _, decl := range tool.Variables {
			if decl.Default == nil {
				continue
			}
			if _, exists := defaults[decl.Name]; !exists {
				defaults[decl.Name] = decl.Default
			}
		}
	}
	return &Bindings{vars: vars, defaults: defaults}
}

// WithBuiltins returns bindings where builtins shadow every other source.
// The receiver is not modified.
func (b *Bindings) WithBuiltins(builtins map[string]interface{}) *Bindings {
	return &Bindings{builtins: builtins, vars: b.vars, defaults: b.defaults}
}

// Lookup resolves a (possibly dotted) variable path.
func (b *Bindings) Lookup(path string) (interface{}, bool) {
	if v, ok := b.builtins[path]; ok {
		return v, true
	}
	if v, ok := lookupVar(b.vars, path); ok {
		return v, true
	}
	if v, ok := lookupVar(b.defaults, path); ok {
		return v, true
	}
	return nil, false
}

// Has reports whether a variable resolves.
func (b *Bindings) Has(path string) bool {
	_, ok := b.Lookup(path)
	return ok
}

// VariableBinder substitutes ${name} placeholders in component content.
// There is no silent empty-string substitution: an unresolved placeholder
// fails with UnboundVariableError.
type VariableBinder struct{}

// NewVariableBinder creates a new variable binder service.
func NewVariableBinder() *VariableBinder {
	return &VariableBinder{}
}

// Bind returns copies of the components with bound content. Inputs are not
// modified.
func (b *VariableBinder) Bind(components []*entities.Component, bindings *Bindings) ([]*entities.Component, error) {
	bound := make([]*entities.Component, 0, len(components))
	for _, c := range components {
		content, err := b.bindValue(CopyVars(c.Content), bindings)
		if err != nil {
			var unbound *unboundPlaceholder
			if errors.As(err, &unbound) {
				return nil, &entities.UnboundVariableError{ComponentID: c.ID, Variable: unbound.name}
			}
			return nil, fmt.Errorf("component %s: %w", c.ID, err)
		}
		m, _ := content.(map[string]interface{})
		bound = append(bound, c.WithContent(m))
	}
	return bound, nil
}

// Expand substitutes placeholders in a single string. It is used for output
// path templates.
func (b *VariableBinder) Expand(s string, bindings *Bindings) (string, error) {
	var missing string
	out := placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		v, ok := bindings.Lookup(name)
		if !ok {
			if missing == "" {
				missing = name
			}
			return match
		}
		return formatValue(v)
	})
	if missing != "" {
		return "", &unboundPlaceholder{name: missing}
	}
	return out, nil
}

// Placeholders lists the placeholder names in s, in order of appearance.
func Placeholders(s string) []string {
	var names []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(s, -1) {
		names = append(names, m[1])
	}
	return names
}

// bindValue walks nested maps in key order and lists in index order. A string that is exactly one
// placeholder takes the bound value with its type; other strings are
// interpolated.
func (b *VariableBinder) bindValue(value interface{}, bindings *Bindings) (interface{}, error) {
	switch v := value.(type) {
	case string:
		if m := placeholderPattern.FindStringSubmatchIndex(v); m != nil && m[0] == 0 && m[1] == len(v) {
			name := v[m[2]:m[3]]
			bound, ok := bindings.Lookup(name)
			if !ok {
				return nil, &unboundPlaceholder{name: name}
			}
			return DeepCopyValue(bound), nil
		}
		return b.Expand(v, bindings)

	case map[string]interface{}:
		for _, key := range slices.Sorted(maps.Keys(v)) {
			bound, err := b.bindValue(v[key], bindings)
			if err != nil {
				return nil, err
			}
			v[key] = bound
		}
		return v, nil

	case []interface{}:
		for i, elem := range v {
			bound, err := b.bindValue(elem, bindings)
			if err != nil {
				return nil, err
			}
			v[i] = bound
		}
		return v, nil

	default:
		// Other types (int, bool, etc.) don't need substitution
		return v, nil
	}
}

// unboundPlaceholder is raised internally and mapped to UnboundVariableError
// by the caller that knows the component.
type unboundPlaceholder struct {
	name string
}

func (e *unboundPlaceholder) Error() string {
	return fmt.Sprintf("unbound variable %q", e.name)
}

// UnboundName reports the variable name carried by an internal unbound error.
func UnboundName(err error) (string, bool) {
	var u *unboundPlaceholder
	if errors.As(err, &u) {
		return u.name, true
	}
	return "", false
}

// lookupVar looks up a variable value by path (e.g., "config.path").
// Supports nested paths using dot notation.
func lookupVar(vars map[string]interface{}, path string) (interface{}, bool) {
	if vars == nil {
		return nil, false
	}
	if v, ok := vars[path]; ok {
		return v, true
	}

	parts := strings.Split(path, ".")
	current := interface{}(vars)
	for _, part := range parts {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		value, exists := m[part]
		if !exists {
			return nil, false
		}
		current = value
	}
	return current, true
}

// formatValue converts a bound value to its interpolated string form.
func formatValue(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		val := reflect.ValueOf(v)
		if val.Kind() == reflect.Float64 && val.Float() == float64(int64(val.Float())) {
			return fmt.Sprintf("%d", int64(val.Float()))
		}
		return fmt.Sprintf("%v", v)
	}
}
