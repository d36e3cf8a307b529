// Package secrets resolves ${secret:NAME} references at deploy time from
// configured sources: local values, environment variables and files.
package secrets

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/loadout-dev/loadout/internal/application/ports"
	"github.com/loadout-dev/loadout/internal/infrastructure/system"
)

var _ ports.SecretResolver = (*Resolver)(nil)

// referencePattern matches ${secret:NAME}.
var referencePattern = regexp.MustCompile(`\$\{secret:([a-zA-Z_][a-zA-Z0-9_.-]*)\}`)

// Resolver implements ports.SecretResolver.
// Resolved values are cached and tracked for redaction.
type Resolver struct {
	config   *system.SecretsConfig
	provider ports.SensitiveValueProvider
	cache    map[string]string
	mu       sync.RWMutex
}

// NewResolver creates a new secret resolver. provider may be nil.
func NewResolver(config *system.SecretsConfig, provider ports.SensitiveValueProvider) *Resolver {
	return &Resolver{
		config:   config,
		provider: provider,
		cache:    make(map[string]string),
	}
}

// Resolve returns the secret value by name.
// Sources are checked in order: Local -> Env -> Files.
func (r *Resolver) Resolve(name string) (string, error) {
	r.mu.RLock()
	value, ok := r.cache[name]
	r.mu.RUnlock()
	if ok {
		return value, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if value, ok := r.cache[name]; ok {
		return value, nil
	}

	value, err := r.lookup(name)
	if err != nil {
		return "", err
	}

	r.cache[name] = value
	if r.provider != nil {
		r.provider.Track(value)
	}
	return value, nil
}

func (r *Resolver) lookup(name string) (string, error) {
	if r.config == nil {
		return "", fmt.Errorf("secret %q: no secret sources configured", name)
	}

	if value, ok := r.config.Local[name]; ok {
		return value, nil
	}

	if envVar, ok := r.config.Env[name]; ok {
		value := os.Getenv(envVar)
		if value == "" {
			return "", fmt.Errorf("secret %q: env var %q is not set", name, envVar)
		}
		return value, nil
	}

	if filePath, ok := r.config.Files[name]; ok {
		return readSecretFile(name, filePath)
	}

	return "", fmt.Errorf("secret %q not found in local, env, or files", name)
}

// readSecretFile opens the file through os.OpenRoot so the configured
// name cannot escape its directory.
func readSecretFile(name, filePath string) (string, error) {
	root, err := os.OpenRoot(filepath.Dir(filePath))
	if err != nil {
		return "", fmt.Errorf("secret %q: failed to open directory of %q: %w", name, filePath, err)
	}
	defer func() { _ = root.Close() }()

	f, err := root.Open(filepath.Base(filePath))
	if err != nil {
		return "", fmt.Errorf("secret %q: failed to open %q: %w", name, filePath, err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("secret %q: reading %q: %w", name, filePath, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// References lists the secret names referenced in content, in order of
// first appearance.
func References(content []byte) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range referencePattern.FindAllSubmatch(content, -1) {
		name := string(m[1])
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// Expand replaces every ${secret:NAME} in content with its resolved value.
// escape, when non-nil, encodes each value for the surrounding format.
// It returns the number of references replaced.
func Expand(resolver ports.SecretResolver, content []byte, escape func(string) string) ([]byte, int, error) {
	var firstErr error
	count := 0
	out := referencePattern.ReplaceAllFunc(content, func(match []byte) []byte {
		if firstErr != nil {
			return match
		}
		name := string(referencePattern.FindSubmatch(match)[1])
		value, err := resolver.Resolve(name)
		if err != nil {
			firstErr = err
			return match
		}
		count++
		if escape != nil {
			value = escape(value)
		}
		return []byte(value)
	})
	if firstErr != nil {
		return nil, 0, firstErr
	}
	return out, count, nil
}
