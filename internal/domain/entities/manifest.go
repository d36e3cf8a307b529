package entities

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/loadout-dev/loadout/internal/domain/values"
)

// ManifestEntry is one staged path and the hash of its final content.
type ManifestEntry struct {
	Path string        `json:"path" yaml:"path"`
	Hash values.Digest `json:"hash" yaml:"hash"`
}

// Manifest records one build of one (profile, tool) pair.
// A manifest is never mutated after creation; the next successful build
// replaces it.
type Manifest struct {
	BuildID    string          `json:"build_id" yaml:"build_id"`
	Profile    string          `json:"profile" yaml:"profile"`
	Tool       string          `json:"tool" yaml:"tool"`
	CreatedAt  time.Time       `json:"created_at" yaml:"created_at"`
	Entries    []ManifestEntry `json:"entries" yaml:"entries"`
	Components []string        `json:"components" yaml:"components"`
}

// NewManifest hashes every staged file and sorts the entries by path.
func NewManifest(buildID, profile, tool string, createdAt time.Time, files map[string][]byte, components []string) *Manifest {
	entries := make([]ManifestEntry, 0, len(files))
	for _, path := range slices.Sorted(maps.Keys(files)) {
		entries = append(entries, ManifestEntry{Path: path, Hash: values.DigestOf(files[path])})
	}
	return &Manifest{
		BuildID:    buildID,
		Profile:    profile,
		Tool:       tool,
		CreatedAt:  createdAt.UTC(),
		Entries:    entries,
		Components: slices.Clone(components),
	}
}

// Lookup returns the hash recorded for path.
func (m *Manifest) Lookup(path string) (values.Digest, bool) {
	i, ok := slices.BinarySearchFunc(m.Entries, path, func(e ManifestEntry, p string) int {
		return strings.Compare(e.Path, p)
	})
	if !ok {
		return values.Digest{}, false
	}
	return m.Entries[i].Hash, true
}

// Digest identifies the manifest content. It covers profile, tool and
// entries only, so identical input yields identical digests across builds.
func (m *Manifest) Digest() values.Digest {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "profile=%s\ntool=%s\n", m.Profile, m.Tool)
	for _, e := range m.Entries {
		fmt.Fprintf(&buf, "%s %s\n", e.Hash, e.Path)
	}
	return values.DigestOf(buf.Bytes())
}

// Validate checks a manifest read back from storage.
func (m *Manifest) Validate() error {
	if m.Profile == "" || m.Tool == "" {
		return NewSchemaError(StageManifest, "", "profile", "manifest must name a profile and a tool")
	}
	if !slices.IsSortedFunc(m.Entries, func(a, b ManifestEntry) int { return strings.Compare(a.Path, b.Path) }) {
		return NewSchemaError(StageManifest, "", "entries", "entries must be sorted by path")
	}
	for i, e := range m.Entries {
		if e.Hash.IsEmpty() {
			return NewSchemaError(StageManifest, "", fmt.Sprintf("entries[%d].hash", i), "hash cannot be empty")
		}
	}
	return nil
}

// PathChange classifies one path against the previous manifest.
type PathChange struct {
	Path     string            `json:"path" yaml:"path"`
	Change   values.ChangeType `json:"change" yaml:"change"`
	Previous values.Digest     `json:"previous,omitempty" yaml:"previous,omitempty"`
	Current  values.Digest     `json:"current,omitempty" yaml:"current,omitempty"`
}

// DiffReport is the classification of every path touched by a build.
type DiffReport struct {
	Profile string       `json:"profile" yaml:"profile"`
	Tool    string       `json:"tool" yaml:"tool"`
	Changes []PathChange `json:"changes" yaml:"changes"`
}

// Count returns how many paths carry change type c.
func (r DiffReport) Count(c values.ChangeType) int {
	n := 0
	for _, ch := range r.Changes {
		if ch.Change == c {
			n++
		}
	}
	return n
}

// HasChanges reports whether any path is not Unchanged.
func (r DiffReport) HasChanges() bool {
	return r.Count(values.ChangeUnchanged) != len(r.Changes)
}

// StagedBuild records the last successful build of a profile: its id and
// the tools it staged. Deploy accepts only tool manifests carrying BuildID,
// so output left over from earlier builds is never shipped.
type StagedBuild struct {
	BuildID   string    `json:"build_id" yaml:"build_id"`
	Profile   string    `json:"profile" yaml:"profile"`
	Tools     []string  `json:"tools" yaml:"tools"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Includes reports whether tool was staged by the build.
func (b *StagedBuild) Includes(tool string) bool {
	return slices.Contains(b.Tools, tool)
}

// Validate checks a build record read back from storage.
func (b *StagedBuild) Validate() error {
	if b.BuildID == "" || b.Profile == "" {
		return NewSchemaError(StageManifest, "", "build_id", "build record must name a build and a profile")
	}
	if !slices.IsSorted(b.Tools) {
		return NewSchemaError(StageManifest, "", "tools", "tools must be sorted")
	}
	return nil
}
