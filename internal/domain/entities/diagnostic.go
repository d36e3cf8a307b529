package entities

import "errors"

// Stage names the pipeline stage a diagnostic originates from.
type Stage string

const (
	StageStore      Stage = "store"
	StageProfile    Stage = "profile"
	StageSelect     Stage = "select"
	StageDependency Stage = "dependency"
	StageBind       Stage = "bind"
	StageRender     Stage = "render"
	StageGuard      Stage = "guard"
	StageManifest   Stage = "manifest"
	StageBuild      Stage = "build"
	StageDeploy     Stage = "deploy"
)

// DiagnosticLevel separates fatal records from warnings.
type DiagnosticLevel string

const (
	LevelError   DiagnosticLevel = "error"
	LevelWarning DiagnosticLevel = "warning"
)

// Diagnostic is the structured record reported for every fatal condition
// and for non-fatal warnings. Tooling renders and tests against these fields.
type Diagnostic struct {
	Stage       Stage           `json:"stage" yaml:"stage"`
	Level       DiagnosticLevel `json:"level" yaml:"level"`
	ComponentID string          `json:"component_id,omitempty" yaml:"component_id,omitempty"`
	Profile     string          `json:"profile,omitempty" yaml:"profile,omitempty"`
	Tool        string          `json:"tool,omitempty" yaml:"tool,omitempty"`
	File        string          `json:"file,omitempty" yaml:"file,omitempty"`
	Message     string          `json:"message" yaml:"message"`
}

// DiagnosticError is implemented by every error of the build taxonomy.
type DiagnosticError interface {
	error
	Diagnostic() Diagnostic
}

// DiagnosticFrom extracts the structured record carried by err.
// Errors outside the taxonomy are reported against StageBuild.
// profile fills the Profile field when the error itself does not know it.
func DiagnosticFrom(err error, profile string) Diagnostic {
	var d Diagnostic
	var de DiagnosticError
	if errors.As(err, &de) {
		d = de.Diagnostic()
	} else {
		d = Diagnostic{Stage: StageBuild, Message: err.Error()}
	}
	if d.Level == "" {
		d.Level = LevelError
	}
	if d.Profile == "" {
		d.Profile = profile
	}
	return d
}

// Warning builds a non-fatal diagnostic.
func Warning(stage Stage, componentID, message string) Diagnostic {
	return Diagnostic{
		Stage:       stage,
		Level:       LevelWarning,
		ComponentID: componentID,
		Message:     message,
	}
}
