package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/loadout-dev/loadout/internal/domain/values"
)

// SchemaError reports a malformed component, profile or tool schema file.
type SchemaError struct {
	Cause   error
	Stage   Stage
	File    string
	Field   string
	Message string
}

// NewSchemaError creates a new schema error.
func NewSchemaError(stage Stage, file, field, message string) *SchemaError {
	return &SchemaError{Stage: stage, File: file, Field: field, Message: message}
}

func (e *SchemaError) Error() string {
	var b strings.Builder
	b.WriteString("schema error")
	if e.File != "" {
		fmt.Fprintf(&b, " in %s", e.File)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, ": field %s", e.Field)
	}
	fmt.Fprintf(&b, ": %s", e.Message)
	return b.String()
}

func (e *SchemaError) Unwrap() error {
	return e.Cause
}

// Diagnostic implements DiagnosticError.
func (e *SchemaError) Diagnostic() Diagnostic {
	stage := e.Stage
	if stage == "" {
		stage = StageStore
	}
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("field %s: %s", e.Field, e.Message)
	}
	return Diagnostic{Stage: stage, File: e.File, Message: msg}
}

// CyclicProfileError reports an extends chain that revisits a profile.
type CyclicProfileError struct {
	// Cycle lists the walk from the requested profile to the revisited one.
	Cycle []string
}

func (e *CyclicProfileError) Error() string {
	return fmt.Sprintf("cyclic profile inheritance: %s", strings.Join(e.Cycle, " -> "))
}

// Diagnostic implements DiagnosticError.
func (e *CyclicProfileError) Diagnostic() Diagnostic {
	d := Diagnostic{Stage: StageProfile, Message: e.Error()}
	if len(e.Cycle) > 0 {
		d.Profile = e.Cycle[0]
	}
	return d
}

// ProfileNotFoundError reports a requested or extended profile that does not exist.
type ProfileNotFoundError struct {
	Name         string
	ReferencedBy string
}

func (e *ProfileNotFoundError) Error() string {
	if e.ReferencedBy != "" {
		return fmt.Sprintf("profile %q extends unknown profile %q", e.ReferencedBy, e.Name)
	}
	return fmt.Sprintf("profile %q not found", e.Name)
}

// Diagnostic implements DiagnosticError.
func (e *ProfileNotFoundError) Diagnostic() Diagnostic {
	profile := e.ReferencedBy
	if profile == "" {
		profile = e.Name
	}
	return Diagnostic{Stage: StageProfile, Profile: profile, Message: e.Error()}
}

// MissingDependencyError reports a depends_on reference to an id absent from the store.
type MissingDependencyError struct {
	Dependent string
	Missing   string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("component %s depends on missing component %s", e.Dependent, e.Missing)
}

// Diagnostic implements DiagnosticError.
func (e *MissingDependencyError) Diagnostic() Diagnostic {
	return Diagnostic{Stage: StageDependency, ComponentID: e.Dependent, Message: e.Error()}
}

// ExcludedDependencyError reports a dependency that the profile explicitly excludes.
type ExcludedDependencyError struct {
	Dependent string
	Excluded  string
	Pattern   string
}

func (e *ExcludedDependencyError) Error() string {
	return fmt.Sprintf("component %s depends on %s, which is excluded by pattern %q",
		e.Dependent, e.Excluded, e.Pattern)
}

// Diagnostic implements DiagnosticError.
func (e *ExcludedDependencyError) Diagnostic() Diagnostic {
	return Diagnostic{Stage: StageDependency, ComponentID: e.Dependent, Message: e.Error()}
}

// ConflictError reports two mutually exclusive components in the same selection.
type ConflictError struct {
	A string
	B string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("components %s and %s conflict; exclude one of them in the profile", e.A, e.B)
}

// Diagnostic implements DiagnosticError.
func (e *ConflictError) Diagnostic() Diagnostic {
	return Diagnostic{Stage: StageDependency, ComponentID: e.A, Message: e.Error()}
}

// VersionConstraintError reports a selected component whose version violates a profile constraint.
type VersionConstraintError struct {
	ComponentID string
	Version     string
	Constraint  string
}

func (e *VersionConstraintError) Error() string {
	return fmt.Sprintf("component %s version %s does not satisfy constraint %q",
		e.ComponentID, e.Version, e.Constraint)
}

// Diagnostic implements DiagnosticError.
func (e *VersionConstraintError) Diagnostic() Diagnostic {
	return Diagnostic{Stage: StageDependency, ComponentID: e.ComponentID, Message: e.Error()}
}

// UnboundVariableError reports a placeholder with no binding and no default.
type UnboundVariableError struct {
	ComponentID string
	Tool        string
	Variable    string
}

func (e *UnboundVariableError) Error() string {
	if e.ComponentID == "" {
		return fmt.Sprintf("tool %s requires variable %q, which the profile does not bind", e.Tool, e.Variable)
	}
	return fmt.Sprintf("component %s: unbound variable %q", e.ComponentID, e.Variable)
}

// Diagnostic implements DiagnosticError.
func (e *UnboundVariableError) Diagnostic() Diagnostic {
	stage := StageBind
	if e.ComponentID == "" {
		stage = StageRender
	}
	return Diagnostic{Stage: stage, ComponentID: e.ComponentID, Tool: e.Tool, Message: e.Error()}
}

// UnknownRenderFormatError reports an output format missing from the tool schema.
type UnknownRenderFormatError struct {
	ComponentID string
	Tool        string
	Format      string
}

func (e *UnknownRenderFormatError) Error() string {
	return fmt.Sprintf("component %s: tool %s has no render format %q", e.ComponentID, e.Tool, e.Format)
}

// Diagnostic implements DiagnosticError.
func (e *UnknownRenderFormatError) Diagnostic() Diagnostic {
	return Diagnostic{Stage: StageRender, ComponentID: e.ComponentID, Tool: e.Tool, Message: e.Error()}
}

// UnknownToolError reports a requested tool without a tool schema.
type UnknownToolError struct {
	Tool string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("no tool schema defined for tool %q", e.Tool)
}

// Diagnostic implements DiagnosticError.
func (e *UnknownToolError) Diagnostic() Diagnostic {
	return Diagnostic{Stage: StageRender, Tool: e.Tool, Message: e.Error()}
}

// RenderConflictError reports two merge strategies targeting one output path.
type RenderConflictError struct {
	ComponentID string
	Tool        string
	Path        string
	Existing    values.MergeStrategy
	Requested   values.MergeStrategy
}

func (e *RenderConflictError) Error() string {
	return fmt.Sprintf("component %s: tool %s path %s is rendered with %s but %s was requested",
		e.ComponentID, e.Tool, e.Path, e.Existing, e.Requested)
}

// Diagnostic implements DiagnosticError.
func (e *RenderConflictError) Diagnostic() Diagnostic {
	return Diagnostic{Stage: StageRender, ComponentID: e.ComponentID, Tool: e.Tool, File: e.Path, Message: e.Error()}
}

// SecretLeakError reports a concrete secret value found in staged output.
type SecretLeakError struct {
	Tool string
	Path string
	Rule string
	Line int
}

func (e *SecretLeakError) Error() string {
	return fmt.Sprintf("tool %s: staged file %s line %d contains a secret (rule %s); use a secret reference instead",
		e.Tool, e.Path, e.Line, e.Rule)
}

// Diagnostic implements DiagnosticError.
func (e *SecretLeakError) Diagnostic() Diagnostic {
	return Diagnostic{Stage: StageGuard, Tool: e.Tool, File: e.Path, Message: e.Error()}
}

// BuildTimeoutError reports a build aborted by its deadline.
type BuildTimeoutError struct {
	Cause   error
	Stage   Stage
	Timeout time.Duration
}

func (e *BuildTimeoutError) Error() string {
	return fmt.Sprintf("build aborted during %s after %s: %v", e.Stage, e.Timeout, e.Cause)
}

func (e *BuildTimeoutError) Unwrap() error {
	return e.Cause
}

// Diagnostic implements DiagnosticError.
func (e *BuildTimeoutError) Diagnostic() Diagnostic {
	return Diagnostic{Stage: e.Stage, Message: e.Error()}
}

// IntegrityError indicates a staged file no longer matches its manifest digest.
type IntegrityError struct {
	Path     string
	Expected values.Digest
	Actual   values.Digest
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf(
		"integrity check failed for %s: expected %s, got %s",
		e.Path,
		e.Expected.String(),
		e.Actual.String(),
	)
}

// Diagnostic implements DiagnosticError.
func (e *IntegrityError) Diagnostic() Diagnostic {
	return Diagnostic{Stage: StageDeploy, File: e.Path, Message: e.Error()}
}
