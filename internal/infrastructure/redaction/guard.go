package redaction

import (
	"context"
	"fmt"

	"github.com/loadout-dev/loadout/internal/application/ports"
	"github.com/loadout-dev/loadout/internal/domain/entities"
	"github.com/loadout-dev/loadout/internal/domain/values"
)

var _ ports.SecretGuard = (*Guard)(nil)

// Guard rejects staged files that contain concrete secret values. Secrets
// belong in ${secret:NAME} references resolved at deploy time.
type Guard struct {
	detector *Detector
	allow    []values.Pattern
}

// NewGuard creates a guard. allow lists staged path globs that are never scanned.
func NewGuard(detector *Detector, allow []string) (*Guard, error) {
	g := &Guard{detector: detector}
	for _, raw := range allow {
		p, err := values.NewPattern(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid guard allow entry: %w", err)
		}
		g.allow = append(g.allow, p)
	}
	return g, nil
}

// Scan implements ports.SecretGuard. The first finding is reported.
func (g *Guard) Scan(ctx context.Context, tool, path string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, p := range g.allow {
		if p.Matches(path, nil) {
			return nil
		}
	}
	findings := g.detector.Find(string(content))
	if len(findings) == 0 {
		return nil
	}
	return &entities.SecretLeakError{
		Tool: tool,
		Path: path,
		Rule: findings[0].Rule,
		Line: findings[0].Line,
	}
}
