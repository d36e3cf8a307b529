package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/loadout-dev/loadout/internal/application/dto"
	"github.com/loadout-dev/loadout/internal/application/ports"
	"github.com/loadout-dev/loadout/internal/domain/entities"
	"github.com/loadout-dev/loadout/internal/infrastructure/validation"
)

// Source tree subdirectories.
const (
	ComponentsDir = "components"
	ProfilesDir   = "profiles"
	ToolsDir      = "tools"
)

var _ ports.SourceLoader = (*SourceLoader)(nil)

// SourceLoader reads a source tree:
//
//	<dir>/components/**   one component per file (yaml, json, jsonc, md)
//	<dir>/profiles/*      one profile per file
//	<dir>/tools/*         one tool schema per file
//
// Files are visited in lexical order, so diagnostics are reproducible.
// Every document is validated before it is returned; the first problem
// fails the load with a SchemaError naming the file.
type SourceLoader struct {
	dir     string
	structs *validation.StructValidator
	content *validation.ContentValidator
	logger  *slog.Logger
}

// NewSourceLoader creates a loader for dir.
func NewSourceLoader(dir string, logger *slog.Logger) (*SourceLoader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	content, err := validation.NewContentValidator()
	if err != nil {
		return nil, err
	}
	return &SourceLoader{
		dir:     dir,
		structs: validation.NewStructValidator(),
		content: content,
		logger:  logger,
	}, nil
}

// Dir returns the source root.
func (l *SourceLoader) Dir() string {
	return l.dir
}

// Load implements ports.SourceLoader.
func (l *SourceLoader) Load(ctx context.Context) (*dto.Source, error) {
	// Security: every read goes through os.Root so symlinks cannot escape the tree
	root, err := os.OpenRoot(l.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open source directory %q: %w", l.dir, err)
	}
	defer func() {
		_ = root.Close() // Best-effort cleanup
	}()
	fsys := root.FS()

	components, err := l.loadComponents(ctx, fsys)
	if err != nil {
		return nil, err
	}
	store, err := entities.NewComponentStore(components)
	if err != nil {
		return nil, err
	}

	profiles, err := l.loadProfiles(ctx, fsys)
	if err != nil {
		return nil, err
	}

	tools, err := l.loadTools(ctx, fsys)
	if err != nil {
		return nil, err
	}

	return &dto.Source{Dir: l.dir, Store: store, Profiles: profiles, Tools: tools}, nil
}

func (l *SourceLoader) loadComponents(ctx context.Context, fsys fs.FS) ([]*entities.Component, error) {
	files, err := l.listFiles(fsys, ComponentsDir, true)
	if err != nil {
		return nil, err
	}

	components := make([]*entities.Component, 0, len(files))
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c, err := l.loadComponent(fsys, name)
		if err != nil {
			return nil, err
		}
		components = append(components, c)
	}
	l.logger.Debug("components loaded", "count", len(components))
	return components, nil
}

func (l *SourceLoader) loadComponent(fsys fs.FS, name string) (*entities.Component, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	var c entities.Component
	body, err := decodeDocument(formatOf(name), data, &c)
	if err != nil {
		return nil, &entities.SchemaError{Cause: err, Stage: entities.StageStore, File: name, Message: err.Error()}
	}
	c.Source = name

	if body != "" {
		if c.Content == nil {
			c.Content = make(map[string]interface{})
		}
		if _, exists := c.Content["body"]; exists {
			return nil, entities.NewSchemaError(entities.StageStore, name, "content.body",
				"markdown components take their body from the document, not from content.body")
		}
		c.Content["body"] = body
	}

	if err := l.structs.Validate(entities.StageStore, name, &c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := l.content.Validate(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (l *SourceLoader) loadProfiles(ctx context.Context, fsys fs.FS) (map[string]*entities.Profile, error) {
	files, err := l.listFiles(fsys, ProfilesDir, false)
	if err != nil {
		return nil, err
	}

	profiles := make(map[string]*entities.Profile, len(files))
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}

		var p entities.Profile
		if _, err := decodeDocument(formatOf(name), data, &p); err != nil {
			return nil, &entities.SchemaError{Cause: err, Stage: entities.StageProfile, File: name, Message: err.Error()}
		}
		p.Source = name
		if p.Name == "" {
			p.Name = stem(name)
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if prev, dup := profiles[p.Name]; dup {
			return nil, entities.NewSchemaError(entities.StageProfile, name, "name",
				fmt.Sprintf("duplicate profile %q (also defined in %s)", p.Name, prev.Source))
		}
		profiles[p.Name] = &p
	}
	l.logger.Debug("profiles loaded", "count", len(profiles))
	return profiles, nil
}

func (l *SourceLoader) loadTools(ctx context.Context, fsys fs.FS) (map[string]*entities.ToolSchema, error) {
	files, err := l.listFiles(fsys, ToolsDir, false)
	if err != nil {
		return nil, err
	}

	tools := make(map[string]*entities.ToolSchema, len(files))
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}

		var ts entities.ToolSchema
		if _, err := decodeDocument(formatOf(name), data, &ts); err != nil {
			return nil, &entities.SchemaError{Cause: err, Stage: entities.StageRender, File: name, Message: err.Error()}
		}
		ts.Source = name
		if ts.Tool == "" {
			ts.Tool = stem(name)
		}
		if err := l.structs.Validate(entities.StageRender, name, &ts); err != nil {
			return nil, err
		}
		if err := ts.Validate(); err != nil {
			return nil, err
		}
		if prev, dup := tools[ts.Tool]; dup {
			return nil, entities.NewSchemaError(entities.StageRender, name, "tool",
				fmt.Sprintf("duplicate tool schema %q (also defined in %s)", ts.Tool, prev.Source))
		}
		tools[ts.Tool] = &ts
	}
	l.logger.Debug("tool schemas loaded", "count", len(tools))
	return tools, nil
}

// listFiles returns the decodable files under dir in lexical order.
// A missing directory yields no files. Hidden entries are skipped.
func (l *SourceLoader) listFiles(fsys fs.FS, dir string, recursive bool) ([]string, error) {
	var files []string
	err := fs.WalkDir(fsys, dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".") && p != dir {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if p != dir && !recursive {
				return fs.SkipDir
			}
			return nil
		}
		if formatOf(p) == formatUnknown {
			l.logger.Debug("skipping file with unknown extension", "file", p)
			return nil
		}
		files = append(files, p)
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	return files, nil
}

func stem(name string) string {
	base := path.Base(name)
	return strings.TrimSuffix(base, path.Ext(base))
}
