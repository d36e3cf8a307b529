package dto

import (
	"time"

	"github.com/loadout-dev/loadout/internal/domain/entities"
)

// BuildResult is the outcome of one successful compile.
type BuildResult struct {
	BuildID string   `json:"build_id" yaml:"build_id"`
	Profile string   `json:"profile" yaml:"profile"`
	Tools   []string `json:"tools" yaml:"tools"`
	// Outputs are sorted by tool name.
	Outputs     []*ToolOutput         `json:"outputs" yaml:"outputs"`
	Diagnostics []entities.Diagnostic `json:"diagnostics" yaml:"diagnostics"`
	Metadata    ResponseMetadata      `json:"metadata" yaml:"metadata"`
}

// Output returns the output for tool.
func (r *BuildResult) Output(tool string) (*ToolOutput, bool) {
	for _, o := range r.Outputs {
		if o.Tool == tool {
			return o, true
		}
	}
	return nil, false
}

// HasChanges reports whether any tool output differs from its previous build.
func (r *BuildResult) HasChanges() bool {
	for _, o := range r.Outputs {
		if o.Diff.HasChanges() {
			return true
		}
	}
	return false
}

// ToolOutput is one tool's staged tree, manifest and diff.
type ToolOutput struct {
	Tool     string              `json:"tool" yaml:"tool"`
	Manifest *entities.Manifest  `json:"manifest" yaml:"manifest"`
	Diff     entities.DiffReport `json:"diff" yaml:"diff"`
	// Files holds the staged content by path.
	Files map[string][]byte `json:"-" yaml:"-"`
}

// ResponseMetadata contains metadata about the response.
type ResponseMetadata struct {
	// RequestID from the original request
	RequestID string `json:"request_id,omitempty" yaml:"request_id,omitempty"`

	// ProcessedAt is when the request was processed
	ProcessedAt time.Time `json:"processed_at" yaml:"processed_at"`

	// Duration is how long the request took
	Duration time.Duration `json:"duration" yaml:"duration"`

	// Written is false for dry runs
	Written bool `json:"written" yaml:"written"`
}

// DeployResult reports what a deploy placed.
type DeployResult struct {
	BuildID string        `json:"build_id" yaml:"build_id"`
	Profile string        `json:"profile" yaml:"profile"`
	Tools   []*ToolDeploy `json:"tools" yaml:"tools"`
	DryRun  bool          `json:"dry_run" yaml:"dry_run"`
}

// ToolDeploy reports one tool's deployment.
type ToolDeploy struct {
	Tool    string   `json:"tool" yaml:"tool"`
	Target  string   `json:"target" yaml:"target"`
	Written []string `json:"written" yaml:"written"`
	// Secrets counts resolved secret references.
	Secrets int `json:"secrets" yaml:"secrets"`
}

// BuildRecord is one row of the build history.
type BuildRecord struct {
	BuildID   string    `json:"build_id" yaml:"build_id"`
	Profile   string    `json:"profile" yaml:"profile"`
	Tool      string    `json:"tool" yaml:"tool"`
	Digest    string    `json:"digest" yaml:"digest"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	Files     int       `json:"files" yaml:"files"`
	Added     int       `json:"added" yaml:"added"`
	Changed   int       `json:"changed" yaml:"changed"`
	Unchanged int       `json:"unchanged" yaml:"unchanged"`
	Removed   int       `json:"removed" yaml:"removed"`
}

// Source is one loaded source tree.
type Source struct {
	Dir      string
	Store    *entities.ComponentStore
	Profiles map[string]*entities.Profile
	Tools    map[string]*entities.ToolSchema
}
