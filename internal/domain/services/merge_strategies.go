package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/loadout-dev/loadout/internal/domain/entities"
	"github.com/loadout-dev/loadout/internal/domain/values"
)

// Fragment is one component's contribution to an output path.
type Fragment struct {
	ComponentID string
	// Text is set for text strategies.
	Text string
	// Doc is set for json-merge.
	Doc map[string]interface{}
}

// PendingFile accumulates fragments for one path until the tool finishes.
type PendingFile struct {
	Path     string
	Strategy values.MergeStrategy
	Writers  []string
	Text     string
	Doc      map[string]interface{}
}

// RenderStrategy merges fragments into a pending file.
// There is one implementation per merge strategy.
type RenderStrategy interface {
	Strategy() values.MergeStrategy
	// Merge folds frag into file. A non-empty warning reports a shadowed writer.
	Merge(file *PendingFile, frag Fragment, entry entities.FormatEntry) (warning string, err error)
	// Finalize produces the staged bytes.
	Finalize(file *PendingFile) ([]byte, error)
}

// NewRenderStrategy returns the implementation for s.
func NewRenderStrategy(s values.MergeStrategy) (RenderStrategy, error) {
	switch s {
	case values.StrategyAppend:
		return AppendStrategy{}, nil
	case values.StrategyJSONMerge:
		return JSONMergeStrategy{}, nil
	case values.StrategyOverwrite:
		return OverwriteStrategy{}, nil
	default:
		return nil, fmt.Errorf("unsupported merge strategy %q", s)
	}
}

// AppendStrategy concatenates fragments in render order.
type AppendStrategy struct{}

// Strategy implements RenderStrategy.
func (AppendStrategy) Strategy() values.MergeStrategy { return values.StrategyAppend }

// Merge implements RenderStrategy.
func (AppendStrategy) Merge(file *PendingFile, frag Fragment, entry entities.FormatEntry) (string, error) {
	text := strings.TrimRight(frag.Text, "\n")
	if len(file.Writers) == 0 {
		file.Text = text
	} else {
		file.Text += entry.JoinSeparator() + text
	}
	file.Writers = append(file.Writers, frag.ComponentID)
	return "", nil
}

// Finalize implements RenderStrategy.
func (AppendStrategy) Finalize(file *PendingFile) ([]byte, error) {
	return terminateText(file.Text), nil
}

// OverwriteStrategy keeps the last fragment in render order.
type OverwriteStrategy struct{}

// Strategy implements RenderStrategy.
func (OverwriteStrategy) Strategy() values.MergeStrategy { return values.StrategyOverwrite }

// Merge implements RenderStrategy.
func (OverwriteStrategy) Merge(file *PendingFile, frag Fragment, _ entities.FormatEntry) (string, error) {
	var warning string
	if n := len(file.Writers); n > 0 {
		warning = fmt.Sprintf("output of %s is overwritten by %s", file.Writers[n-1], frag.ComponentID)
	}
	file.Text = strings.TrimRight(frag.Text, "\n")
	file.Writers = append(file.Writers, frag.ComponentID)
	return warning, nil
}

// Finalize implements RenderStrategy.
func (OverwriteStrategy) Finalize(file *PendingFile) ([]byte, error) {
	return terminateText(file.Text), nil
}

// JSONMergeStrategy deep-merges JSON objects. Nested objects merge, arrays
// concatenate in render order and scalars are overwritten by later fragments.
type JSONMergeStrategy struct{}

// Strategy implements RenderStrategy.
func (JSONMergeStrategy) Strategy() values.MergeStrategy { return values.StrategyJSONMerge }

// Merge implements RenderStrategy.
func (JSONMergeStrategy) Merge(file *PendingFile, frag Fragment, _ entities.FormatEntry) (string, error) {
	if file.Doc == nil {
		file.Doc = make(map[string]interface{})
	}
	DeepMerge(file.Doc, frag.Doc)
	file.Writers = append(file.Writers, frag.ComponentID)
	return "", nil
}

// Finalize implements RenderStrategy. Output is indented, key sorted and
// newline terminated.
func (JSONMergeStrategy) Finalize(file *PendingFile) ([]byte, error) {
	doc := file.Doc
	if doc == nil {
		doc = map[string]interface{}{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encoding %s: %w", file.Path, err)
	}
	return buf.Bytes(), nil
}

// DeepMerge merges src into dst. dst is modified; src is copied.
func DeepMerge(dst, src map[string]interface{}) {
	for key, sv := range src {
		dv, exists := dst[key]
		if !exists {
			dst[key] = DeepCopyValue(sv)
			continue
		}

		switch s := sv.(type) {
		case map[string]interface{}:
			if dm, ok := dv.(map[string]interface{}); ok {
				DeepMerge(dm, s)
				continue
			}
		case []interface{}:
			if da, ok := dv.([]interface{}); ok {
				dst[key] = append(da, DeepCopyValue(s).([]interface{})...)
				continue
			}
		}

		dst[key] = DeepCopyValue(sv) // Later fragment wins
	}
}

func terminateText(s string) []byte {
	if s == "" {
		return []byte{}
	}
	return []byte(s + "\n")
}
