// Package apperrors defines application-level error types.
package apperrors

import (
	"fmt"

	"github.com/loadout-dev/loadout/internal/domain/entities"
)

// ValidationError indicates request or filter validation failed.
type ValidationError struct {
	Field   string   // Field that failed validation
	Message string   // Error message
	Details []string // Additional details
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s: %s (%d issues)", e.Field, e.Message, len(e.Details))
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string, details ...string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Details: details,
	}
}

// BuildError indicates a build failed. No staging tree or manifest was
// written. Diagnostic carries the structured record of the cause.
type BuildError struct {
	Cause      error
	Diagnostic entities.Diagnostic
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build of profile %q failed at %s: %v", e.Diagnostic.Profile, e.Diagnostic.Stage, e.Cause)
}

func (e *BuildError) Unwrap() error {
	return e.Cause
}

// NewBuildError wraps a pipeline failure for profile.
func NewBuildError(profile string, cause error) *BuildError {
	return &BuildError{
		Cause:      cause,
		Diagnostic: entities.DiagnosticFrom(cause, profile),
	}
}

// ConfigurationError indicates system config or setup issue.
type ConfigurationError struct {
	Cause   error
	Aspect  string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("configuration error (%s): %s: %v", e.Aspect, e.Message, e.Cause)
	}
	return fmt.Sprintf("configuration error (%s): %s", e.Aspect, e.Message)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Cause
}

// NewConfigurationError creates a new configuration error.
func NewConfigurationError(aspect, message string, cause error) *ConfigurationError {
	return &ConfigurationError{
		Aspect:  aspect,
		Message: message,
		Cause:   cause,
	}
}
