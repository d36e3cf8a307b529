package services

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/loadout-dev/loadout/internal/domain/entities"
	"github.com/loadout-dev/loadout/internal/domain/values"
)

// ComponentEnv defines the variables available during filter expression evaluation.
type ComponentEnv struct {
	ID        string   `expr:"id"`
	Kind      string   `expr:"kind"`
	Version   string   `expr:"version"`
	Tags      []string `expr:"tags"`
	Priority  int      `expr:"priority"`
	DependsOn []string `expr:"depends_on"`
	Tools     []string `expr:"tools"`
}

// NewComponentEnv builds the evaluation environment for c.
func NewComponentEnv(c *entities.Component) ComponentEnv {
	return ComponentEnv{
		ID:        c.ID,
		Kind:      c.Kind.String(),
		Version:   c.Version,
		Tags:      c.Tags,
		Priority:  c.Priority,
		DependsOn: c.DependsOn,
		Tools:     c.Tools(),
	}
}

// CompileFilterExpression compiles a boolean expression over ComponentEnv.
func CompileFilterExpression(source string) (*vm.Program, error) {
	program, err := expr.Compile(source, expr.Env(ComponentEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("invalid filter expression: %w", err)
	}
	return program, nil
}

// ComponentFilter implements store queries by kind, tag and expression.
// It backs the list command; profile selection uses the Selector.
type ComponentFilter struct {
	kinds map[values.ComponentKind]bool
	tags  map[string]bool

	filterProgram *vm.Program
}

// NewComponentFilter initializes a new empty filter.
func NewComponentFilter() *ComponentFilter {
	return &ComponentFilter{
		kinds: make(map[values.ComponentKind]bool),
		tags:  make(map[string]bool),
	}
}

// WithKinds includes only components of these kinds.
func (f *ComponentFilter) WithKinds(kinds []values.ComponentKind) *ComponentFilter {
	f.kinds = make(map[values.ComponentKind]bool, len(kinds))
	for _, k := range kinds {
		f.kinds[k] = true
	}
	return f
}

// WithTags includes only components with any of these tags.
func (f *ComponentFilter) WithTags(tags []string) *ComponentFilter {
	f.tags = toSet(tags)
	return f
}

// WithFilterExpression applies a compiled Expr program for advanced filtering.
func (f *ComponentFilter) WithFilterExpression(program *vm.Program) *ComponentFilter {
	f.filterProgram = program
	return f
}

// Matches evaluates whether a component matches the filter criteria.
// It returns a reason when the component is filtered out.
func (f *ComponentFilter) Matches(c *entities.Component) (bool, string) {
	var specs []ComponentSpecification

	if len(f.kinds) > 0 {
		specs = append(specs, NewKindSpecification(f.kinds))
	}

	if len(f.tags) > 0 {
		specs = append(specs, NewIncludedTagsSpecification(f.tags))
	}

	if f.filterProgram != nil {
		specs = append(specs, NewExpressionSpecification(f.filterProgram))
	}

	return NewAndSpecification(specs...).IsSatisfiedBy(c)
}

// Apply returns the store components matching the filter, in id order.
func (f *ComponentFilter) Apply(store *entities.ComponentStore) []*entities.Component {
	var out []*entities.Component
	for _, c := range store.All() {
		if ok, _ := f.Matches(c); ok {
			out = append(out, c)
		}
	}
	return out
}

// toSet converts a slice to a map (set)
func toSet(slice []string) map[string]bool {
	s := make(map[string]bool, len(slice))
	for _, item := range slice {
		s[item] = true
	}
	return s
}
