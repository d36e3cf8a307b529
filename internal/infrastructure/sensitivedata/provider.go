// Package sensitivedata tracks secret values resolved at deploy time and
// keeps them out of logs and error messages.
package sensitivedata

import (
	"strings"
	"sync"

	"github.com/loadout-dev/loadout/internal/application/ports"
)

var _ ports.SensitiveValueProvider = (*Provider)(nil)

// Provider implements ports.SensitiveValueProvider.
// It maintains a thread-safe registry of sensitive values.
type Provider struct {
	values []string
	mu     sync.RWMutex
}

// NewProvider creates a new sensitive data provider.
func NewProvider() *Provider {
	return &Provider{
		values: make([]string, 0, 16),
	}
}

// Track registers a sensitive value. Empty and duplicate values are ignored.
func (p *Provider) Track(value string) {
	if value == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, v := range p.values {
		if v == value {
			return
		}
	}
	p.values = append(p.values, value)
}

// AllValues returns a copy of all tracked values.
func (p *Provider) AllValues() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make([]string, len(p.values))
	copy(result, p.values)
	return result
}

// ScrubString replaces every tracked value with [REDACTED].
func (p *Provider) ScrubString(input string) string {
	for _, secret := range p.AllValues() {
		input = strings.ReplaceAll(input, secret, "[REDACTED]")
	}
	return input
}
