package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/loadout-dev/loadout/internal/domain/entities"
)

// TemplateData is the value format templates are executed against.
type TemplateData struct {
	ID          string
	Kind        string
	Version     string
	Description string
	Tool        string
	Tags        []string
	Priority    int
	Content     map[string]interface{}
	Vars        map[string]interface{}
}

// RenderResult is the outcome of rendering one tool.
type RenderResult struct {
	Tree *entities.StagedTree
	// Components lists the ids rendered for the tool, in render order.
	Components []string
	Warnings   []entities.Diagnostic
}

// Renderer maps ordered, bound components through one tool schema into a
// staging tree. It holds no state between calls, so one renderer may serve
// every tool worker concurrently.
type Renderer struct {
	binder *VariableBinder
}

// NewRenderer creates a new renderer service.
func NewRenderer() *Renderer {
	return &Renderer{binder: NewVariableBinder()}
}

// Render renders components (already ordered and bound) for tool.
// Components whose output map does not name the tool are skipped.
func (r *Renderer) Render(
	ctx context.Context,
	tool *entities.ToolSchema,
	components []*entities.Component,
	bindings *Bindings,
) (*RenderResult, error) {
	for _, decl := range tool.Variables {
		if decl.Required && !bindings.Has(decl.Name) {
			return nil, &entities.UnboundVariableError{Tool: tool.Tool, Variable: decl.Name}
		}
	}

	templates := make(map[string]*template.Template)
	pending := make(map[string]*PendingFile)
	var order []string
	result := &RenderResult{}

	for _, c := range components {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		format, ok := c.OutputFor(tool.Tool)
		if !ok {
			continue
		}
		entry, ok := tool.Format(format)
		if !ok {
			return nil, &entities.UnknownRenderFormatError{ComponentID: c.ID, Tool: tool.Tool, Format: format}
		}

		strategy, err := NewRenderStrategy(entry.Strategy)
		if err != nil {
			return nil, entities.NewSchemaError(entities.StageRender, tool.Source, "formats."+format+".strategy", err.Error())
		}

		scoped := bindings.WithBuiltins(map[string]interface{}{
			"id":      c.ID,
			"kind":    c.Kind.String(),
			"tool":    tool.Tool,
			"version": c.Version,
		})

		outPath, err := r.expandPath(tool, format, entry, c, scoped)
		if err != nil {
			return nil, err
		}

		frag, err := r.buildFragment(tool, format, entry, c, scoped, templates)
		if err != nil {
			return nil, err
		}

		file, exists := pending[outPath]
		if !exists {
			file = &PendingFile{Path: outPath, Strategy: entry.Strategy}
			pending[outPath] = file
			order = append(order, outPath)
		} else if file.Strategy != entry.Strategy {
			return nil, &entities.RenderConflictError{
				ComponentID: c.ID,
				Tool:        tool.Tool,
				Path:        outPath,
				Existing:    file.Strategy,
				Requested:   entry.Strategy,
			}
		}

		warning, err := strategy.Merge(file, frag, entry)
		if err != nil {
			return nil, fmt.Errorf("component %s: tool %s: %w", c.ID, tool.Tool, err)
		}
		if warning != "" {
			d := entities.Warning(entities.StageRender, file.Writers[len(file.Writers)-2], warning)
			d.Tool = tool.Tool
			d.File = outPath
			result.Warnings = append(result.Warnings, d)
		}
		result.Components = append(result.Components, c.ID)
	}

	tree := entities.NewStagedTree(tool.Tool)
	for _, p := range order {
		file := pending[p]
		strategy, _ := NewRenderStrategy(file.Strategy)
		content, err := strategy.Finalize(file)
		if err != nil {
			return nil, err
		}
		tree.Put(&entities.StagedFile{
			Path:     file.Path,
			Strategy: file.Strategy,
			Writers:  file.Writers,
			Content:  content,
		})
	}
	result.Tree = tree

	return result, nil
}

// expandPath expands the path template and keeps it inside the staging root.
func (r *Renderer) expandPath(
	tool *entities.ToolSchema,
	format string,
	entry entities.FormatEntry,
	c *entities.Component,
	bindings *Bindings,
) (string, error) {
	expanded, err := r.binder.Expand(entry.Path, bindings)
	if err != nil {
		if name, ok := UnboundName(err); ok {
			return "", &entities.UnboundVariableError{ComponentID: c.ID, Tool: tool.Tool, Variable: name}
		}
		return "", err
	}

	cleaned := path.Clean(strings.ReplaceAll(expanded, "\\", "/"))
	if cleaned == "." || !filepath.IsLocal(filepath.FromSlash(cleaned)) {
		return "", entities.NewSchemaError(entities.StageRender, tool.Source, "formats."+format+".path",
			fmt.Sprintf("path %q expands to %q, which leaves the staging root", entry.Path, expanded))
	}
	return cleaned, nil
}

// buildFragment produces the component's contribution for entry.
func (r *Renderer) buildFragment(
	tool *entities.ToolSchema,
	format string,
	entry entities.FormatEntry,
	c *entities.Component,
	bindings *Bindings,
	templates map[string]*template.Template,
) (Fragment, error) {
	frag := Fragment{ComponentID: c.ID}

	if entry.Template != "" {
		text, err := r.executeTemplate(tool, format, entry, c, bindings, templates)
		if err != nil {
			return Fragment{}, err
		}
		if entry.Strategy.IsText() {
			frag.Text = text
			return frag, nil
		}
		doc := make(map[string]interface{})
		if err := json.Unmarshal([]byte(text), &doc); err != nil {
			return Fragment{}, entities.NewSchemaError(entities.StageRender, tool.Source, "formats."+format+".template",
				fmt.Sprintf("template output for component %s is not a JSON object: %v", c.ID, err))
		}
		frag.Doc = doc
		return frag, nil
	}

	field := entry.ContentField()
	if entry.Strategy.IsText() {
		raw, ok := c.Content[field]
		if !ok {
			return Fragment{}, entities.NewSchemaError(entities.StageRender, c.Source, "content."+field,
				fmt.Sprintf("tool %s format %s requires content field %q", tool.Tool, format, field))
		}
		text, ok := raw.(string)
		if !ok {
			return Fragment{}, entities.NewSchemaError(entities.StageRender, c.Source, "content."+field,
				fmt.Sprintf("content field %q must be a string for tool %s format %s", field, tool.Tool, format))
		}
		frag.Text = text
		return frag, nil
	}

	if field == "" {
		frag.Doc = CopyVars(c.Content)
		if frag.Doc == nil {
			frag.Doc = map[string]interface{}{}
		}
		return frag, nil
	}
	doc, ok := DeepCopyValue(c.Content[field]).(map[string]interface{})
	if !ok {
		return Fragment{}, entities.NewSchemaError(entities.StageRender, c.Source, "content."+field,
			fmt.Sprintf("content field %q must be an object for tool %s format %s", field, tool.Tool, format))
	}
	frag.Doc = doc
	return frag, nil
}

func (r *Renderer) executeTemplate(
	tool *entities.ToolSchema,
	format string,
	entry entities.FormatEntry,
	c *entities.Component,
	bindings *Bindings,
	templates map[string]*template.Template,
) (string, error) {
	tmpl, ok := templates[format]
	if !ok {
		var err error
		tmpl, err = template.New(tool.Tool + "/" + format).
			Option("missingkey=error").
			Funcs(templateFuncs()).
			Parse(entry.Template)
		if err != nil {
			return "", entities.NewSchemaError(entities.StageRender, tool.Source, "formats."+format+".template", err.Error())
		}
		templates[format] = tmpl
	}

	data := TemplateData{
		ID:          c.ID,
		Kind:        c.Kind.String(),
		Version:     c.Version,
		Description: c.Description,
		Tool:        tool.Tool,
		Tags:        c.Tags,
		Priority:    c.Priority,
		Content:     c.Content,
		Vars:        bindings.vars,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", entities.NewSchemaError(entities.StageRender, tool.Source, "formats."+format+".template",
			fmt.Sprintf("rendering component %s: %v", c.ID, err))
	}
	return buf.String(), nil
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"join": strings.Join,
		"json": func(v interface{}) (string, error) {
			b, err := json.Marshal(v)
			return string(b), err
		},
		"indent": func(n int, s string) string {
			pad := strings.Repeat(" ", n)
			return pad + strings.ReplaceAll(s, "\n", "\n"+pad)
		},
		"default": func(def, v interface{}) interface{} {
			if v == nil || v == "" {
				return def
			}
			return v
		},
	}
}
