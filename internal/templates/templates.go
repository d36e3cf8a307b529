// Package templates provides the embedded source tree scaffold used by init.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"text/template"
)

//go:embed scaffold
var scaffoldFS embed.FS

const scaffoldRoot = "scaffold"

// SupportedTools lists the tools a scaffold can target.
var SupportedTools = []string{"claude", "cursor"}

// ScaffoldData contains the data used to render the scaffold.
type ScaffoldData struct {
	// Profile is the name of the personal profile that extends base.
	Profile string
	// Tools selects which tool schemas are written.
	Tools []string
	// Examples adds the example components.
	Examples bool
}

// HasTool reports whether tool was selected.
func (d ScaffoldData) HasTool(tool string) bool {
	return slices.Contains(d.Tools, tool)
}

// File is one rendered scaffold file; Path is slash separated.
type File struct {
	Path    string
	Content []byte
}

// Scaffold renders the source tree for data, sorted by path.
// Scaffold templates use [[ ]] delimiters so tool schema templates pass
// through untouched.
func Scaffold(data ScaffoldData) ([]File, error) {
	if data.Profile == "" {
		return nil, fmt.Errorf("profile name is required")
	}
	for _, tool := range data.Tools {
		if !slices.Contains(SupportedTools, tool) {
			return nil, fmt.Errorf("unsupported tool: %s (supported: %s)", tool, strings.Join(SupportedTools, ", "))
		}
	}
	if len(data.Tools) == 0 {
		return nil, fmt.Errorf("at least one tool is required")
	}

	var files []File
	err := fs.WalkDir(scaffoldFS, scaffoldRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".tmpl") {
			return nil
		}

		target, ok := targetPath(strings.TrimPrefix(path, scaffoldRoot+"/"), data)
		if !ok {
			return nil
		}

		content, err := scaffoldFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading template %s: %w", path, err)
		}
		tmpl, err := template.New(path).Delims("[[", "]]").Parse(string(content))
		if err != nil {
			return fmt.Errorf("parsing template %s: %w", path, err)
		}

		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return fmt.Errorf("rendering template %s: %w", path, err)
		}
		files = append(files, File{Path: target, Content: buf.Bytes()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	slices.SortFunc(files, func(a, b File) int { return strings.Compare(a.Path, b.Path) })
	return files, nil
}

// targetPath maps a template name to its output path, or reports false
// when the file is not part of this scaffold.
func targetPath(name string, data ScaffoldData) (string, bool) {
	name = strings.TrimSuffix(name, ".tmpl")
	switch {
	case name == "profiles/profile.yaml":
		if data.Profile == "base" {
			return "", false
		}
		return "profiles/" + data.Profile + ".yaml", true
	case strings.HasPrefix(name, "tools/"):
		tool := strings.TrimSuffix(strings.TrimPrefix(name, "tools/"), ".yaml")
		return name, data.HasTool(tool)
	case strings.HasPrefix(name, "components/"):
		return name, data.Examples
	default:
		return name, true
	}
}
