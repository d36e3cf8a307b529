package values

import (
	"fmt"
	"regexp"
	"strings"
)

// PatternType distinguishes the three selection pattern forms.
type PatternType int

const (
	// PatternExact matches a single component id.
	PatternExact PatternType = iota
	// PatternTag matches components carrying a tag ("tag:foo").
	PatternTag
	// PatternGlob matches ids against a '*' wildcard expression ("git-*").
	PatternGlob
)

const tagPrefix = "tag:"

// Pattern is a parsed selection rule from a profile include or exclude list.
type Pattern struct {
	raw   string
	kind  PatternType
	value string
	glob  *regexp.Regexp
}

// NewPattern parses a raw pattern string.
func NewPattern(raw string) (Pattern, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Pattern{}, fmt.Errorf("pattern cannot be empty")
	}

	if strings.HasPrefix(s, tagPrefix) {
		tag := strings.TrimSpace(strings.TrimPrefix(s, tagPrefix))
		if tag == "" {
			return Pattern{}, fmt.Errorf("pattern %q: tag name cannot be empty", raw)
		}
		return Pattern{raw: s, kind: PatternTag, value: tag}, nil
	}

	if strings.Contains(s, "*") {
		return Pattern{raw: s, kind: PatternGlob, value: s, glob: compileGlob(s)}, nil
	}

	return Pattern{raw: s, kind: PatternExact, value: s}, nil
}

// MustNewPattern creates a Pattern or panics (for tests/constants)
func MustNewPattern(raw string) Pattern {
	p, err := NewPattern(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// compileGlob turns a '*' wildcard expression into an anchored regexp.
// Every other character is literal.
func compileGlob(glob string) *regexp.Regexp {
	parts := strings.Split(glob, "*")
	for i, part := range parts {
		parts[i] = regexp.QuoteMeta(part)
	}
	return regexp.MustCompile("^" + strings.Join(parts, ".*") + "$")
}

// Matches reports whether the pattern selects a component with the given id and tags.
func (p Pattern) Matches(id string, tags []string) bool {
	switch p.kind {
	case PatternExact:
		return id == p.value
	case PatternTag:
		for _, t := range tags {
			if t == p.value {
				return true
			}
		}
		return false
	case PatternGlob:
		return p.glob.MatchString(id)
	default:
		return false
	}
}

// Type returns the pattern form.
func (p Pattern) Type() PatternType {
	return p.kind
}

// String returns the pattern as written in the profile.
func (p Pattern) String() string {
	return p.raw
}

// IsEmpty returns true if this is the zero value
func (p Pattern) IsEmpty() bool {
	return p.raw == ""
}
