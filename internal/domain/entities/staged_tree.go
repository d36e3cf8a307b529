package entities

import (
	"maps"
	"slices"

	"github.com/loadout-dev/loadout/internal/domain/values"
)

// StagedFile is one finalized output path of a tool's staging tree.
type StagedFile struct {
	Path     string
	Strategy values.MergeStrategy
	// Writers lists the components that contributed, in render order.
	Writers []string
	Content []byte
}

// StagedTree is the in-memory output of rendering one tool (path -> content).
// Paths are slash separated and relative to the tool's staging root.
type StagedTree struct {
	Tool  string
	files map[string]*StagedFile
}

// NewStagedTree creates an empty tree for tool.
func NewStagedTree(tool string) *StagedTree {
	return &StagedTree{Tool: tool, files: make(map[string]*StagedFile)}
}

// NewStagedTreeFrom rebuilds a tree from stored path -> content, as read
// back from a staging repository.
func NewStagedTreeFrom(tool string, files map[string][]byte) *StagedTree {
	t := NewStagedTree(tool)
	for p, content := range files {
		t.Put(&StagedFile{Path: p, Content: content})
	}
	return t
}

// Put stores a finalized file, replacing any file at the same path.
func (t *StagedTree) Put(f *StagedFile) {
	t.files[f.Path] = f
}

// Get returns the file at path.
func (t *StagedTree) Get(path string) (*StagedFile, bool) {
	f, ok := t.files[path]
	return f, ok
}

// Paths returns every staged path, sorted.
func (t *StagedTree) Paths() []string {
	return slices.Sorted(maps.Keys(t.files))
}

// Len returns the number of staged files.
func (t *StagedTree) Len() int {
	return len(t.files)
}

// Contents returns path -> content for every staged file.
func (t *StagedTree) Contents() map[string][]byte {
	out := make(map[string][]byte, len(t.files))
	for p, f := range t.files {
		out[p] = f.Content
	}
	return out
}
