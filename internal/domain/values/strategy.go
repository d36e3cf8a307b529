package values

import (
	"fmt"
	"strings"
)

// MergeStrategy names how fragments targeting the same output path are combined.
type MergeStrategy string

const (
	// StrategyAppend concatenates fragments in render order.
	StrategyAppend MergeStrategy = "append"
	// StrategyJSONMerge deep-merges JSON objects.
	StrategyJSONMerge MergeStrategy = "json-merge"
	// StrategyOverwrite keeps the last fragment in render order.
	StrategyOverwrite MergeStrategy = "overwrite"
)

// NewMergeStrategy parses a strategy name.
func NewMergeStrategy(s string) (MergeStrategy, error) {
	switch ms := MergeStrategy(strings.ToLower(strings.TrimSpace(s))); ms {
	case StrategyAppend, StrategyJSONMerge, StrategyOverwrite:
		return ms, nil
	default:
		return "", fmt.Errorf("invalid merge strategy %q (valid: append, json-merge, overwrite)", s)
	}
}

// IsText reports whether the strategy produces plain text fragments.
func (m MergeStrategy) IsText() bool {
	return m == StrategyAppend || m == StrategyOverwrite
}

// String returns the string representation
func (m MergeStrategy) String() string {
	return string(m)
}

// ChangeType classifies a staged path against the previous build.
type ChangeType string

const (
	ChangeAdded     ChangeType = "added"
	ChangeChanged   ChangeType = "changed"
	ChangeUnchanged ChangeType = "unchanged"
	ChangeRemoved   ChangeType = "removed"
)

// String returns the string representation
func (c ChangeType) String() string {
	return string(c)
}
