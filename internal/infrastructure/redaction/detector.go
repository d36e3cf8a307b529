// Package redaction detects concrete secret values in text. The detector
// backs both the staged output guard and log scrubbing.
package redaction

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/viper"
	"github.com/zricethezav/gitleaks/v8/config"
	"github.com/zricethezav/gitleaks/v8/detect"
)

// secretRefMarker prefixes deploy-time secret references. A finding that
// only covers a reference is not a leak.
const secretRefMarker = "${secret:"

// Finding is one detected secret.
type Finding struct {
	Rule   string
	Secret string
	// Line is 1-based.
	Line int
}

// Detector finds secrets with the gitleaks rule set plus regex patterns.
// All fields are read-only after construction, making it safe for concurrent use.
type Detector struct {
	patterns []namedPattern

	// Gitleaks detector (222+ rules). Nil when disabled.
	gitleaksDetector *detect.Detector
}

type namedPattern struct {
	name string
	re   *regexp.Regexp
}

// Config holds the configuration for the Detector.
type Config struct {
	// Custom patterns treated as secrets (e.g. "INT-[A-Z0-9]{16}")
	Patterns []string
	// If true, disable gitleaks and use only regex patterns
	DisableGitleaks bool
}

// New creates a new Detector with the given configuration.
func New(cfg Config) (*Detector, error) {
	d := &Detector{
		patterns: make([]namedPattern, 0, len(cfg.Patterns)+len(defaultPatterns)),
	}

	if !cfg.DisableGitleaks {
		detector, err := newGitleaksDetector()
		if err != nil {
			return nil, err
		}
		d.gitleaksDetector = detector
	}

	for _, p := range defaultPatterns {
		d.patterns = append(d.patterns, namedPattern{name: p.name, re: regexp.MustCompile(p.expr)})
	}

	for i, p := range cfg.Patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to compile guard pattern %s: %w", p, err)
		}
		d.patterns = append(d.patterns, namedPattern{name: fmt.Sprintf("custom-%d", i+1), re: re})
	}

	return d, nil
}

// newGitleaksDetector creates a gitleaks detector with its default configuration.
func newGitleaksDetector() (*detect.Detector, error) {
	v := viper.New()
	v.SetConfigType("toml")
	if err := v.ReadConfig(strings.NewReader(config.DefaultConfig)); err != nil {
		return nil, fmt.Errorf("failed to read gitleaks config: %w", err)
	}

	var vc config.ViperConfig
	if err := v.Unmarshal(&vc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal gitleaks config: %w", err)
	}

	cfg, err := vc.Translate()
	if err != nil {
		return nil, fmt.Errorf("failed to translate gitleaks config: %w", err)
	}

	return detect.NewDetector(cfg), nil
}

// Find returns every secret in text ordered by line.
func (d *Detector) Find(text string) []Finding {
	if text == "" {
		return nil
	}

	var findings []Finding
	seen := make(map[string]bool)
	add := func(rule, secret string) {
		if secret == "" || seen[secret] || strings.Contains(secret, secretRefMarker) {
			return
		}
		seen[secret] = true
		findings = append(findings, Finding{Rule: rule, Secret: secret, Line: lineOf(text, secret)})
	}

	if d.gitleaksDetector != nil {
		for _, f := range d.gitleaksDetector.Detect(detect.Fragment{Raw: text}) {
			add(f.RuleID, f.Secret)
		}
	}

	for _, p := range d.patterns {
		for _, match := range p.re.FindAllString(text, -1) {
			add(p.name, match)
		}
	}

	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].Line < findings[j].Line
	})
	return findings
}

// ScrubString replaces every detected secret with [REDACTED].
func (d *Detector) ScrubString(input string) string {
	result := input
	for _, f := range d.Find(input) {
		result = strings.ReplaceAll(result, f.Secret, "[REDACTED]")
	}
	return result
}

func lineOf(text, secret string) int {
	idx := strings.Index(text, secret)
	if idx < 0 {
		return 0
	}
	return strings.Count(text[:idx], "\n") + 1
}

// defaultPatterns are high-confidence secret shapes checked even when
// gitleaks is disabled.
var defaultPatterns = []struct {
	name string
	expr string
}{
	{"aws-access-key-id", `\b((?:AKIA|ABIA|ACCA|ASIA)[0-9A-Z]{16})\b`},
	{"private-key", `-----BEGIN [A-Z ]+ PRIVATE KEY-----`},
	{"github-token", `gh[pousr]_[A-Za-z0-9_]{36,255}`},
	{"slack-token", `xox[baprs]-[0-9a-zA-Z-]{10,72}`},
	{"anthropic-api-key", `sk-ant-[a-z0-9]{2,8}-[A-Za-z0-9_-]{20,}`},
}
