// Package dto contains data transfer objects for application layer use cases.
package dto

import (
	"time"

	"github.com/loadout-dev/loadout/internal/domain/values"
)

// DefaultBuildTimeout bounds a whole build when the request sets none.
const DefaultBuildTimeout = 2 * time.Minute

// CompileRequest encapsulates all inputs needed to compile a profile.
type CompileRequest struct {
	Metadata RequestMetadata
	Profile  string
	// Tools lists the requested tools. Empty means every tool referenced by
	// the final component set.
	Tools   []string
	Options CompileOptions
}

// CompileOptions controls build execution.
type CompileOptions struct {
	// DryRun renders and diffs without writing staging trees or manifests.
	DryRun bool

	// Timeout aborts the whole build (0 = DefaultBuildTimeout)
	Timeout time.Duration

	// MaxParallelTools limits concurrent tool renderers (0 = no limit)
	MaxParallelTools int

	// SkipSecretGuard disables the staged output secret scan
	SkipSecretGuard bool
}

// EffectiveTimeout returns the configured timeout or the default.
func (o CompileOptions) EffectiveTimeout() time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	return DefaultBuildTimeout
}

// DeployRequest encapsulates inputs for deploying the last staged build.
type DeployRequest struct {
	Metadata RequestMetadata
	Profile  string
	// Tools restricts the deploy. Empty means every staged tool.
	Tools []string
	// DryRun verifies and reports without touching targets.
	DryRun bool
}

// ListRequest encapsulates store query inputs.
type ListRequest struct {
	Kinds            []values.ComponentKind
	Tags             []string
	FilterExpression string
}

// RequestMetadata contains metadata for request tracking.
type RequestMetadata struct {
	// RequestID uniquely identifies this request
	RequestID string
}
