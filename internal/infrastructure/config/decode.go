// Package config provides infrastructure for loading source trees.
// This package handles file discovery, decoding (YAML, JSON, JSONC and
// markdown with front matter) and validation of components, profiles and
// tool schemas.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/tidwall/jsonc"
)

// errNoFrontMatter marks a markdown file without a leading YAML block.
var errNoFrontMatter = errors.New("markdown source must start with a '---' front matter block")

// sourceFormat is the decoder selected by file extension.
type sourceFormat int

const (
	formatUnknown sourceFormat = iota
	formatYAML
	formatJSON
	formatJSONC
	formatMarkdown
)

func formatOf(name string) sourceFormat {
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		return formatYAML
	case ".json":
		return formatJSON
	case ".jsonc":
		return formatJSONC
	case ".md":
		return formatMarkdown
	default:
		return formatUnknown
	}
}

// decodeDocument decodes data into out. Unknown fields are rejected so a
// misspelled key fails loudly instead of being ignored. For markdown, the
// returned body is the text after the front matter.
func decodeDocument(format sourceFormat, data []byte, out interface{}) (body string, err error) {
	switch format {
	case formatYAML:
		return "", decodeYAML(data, out)
	case formatJSON:
		return "", decodeJSON(data, out)
	case formatJSONC:
		return "", decodeJSON(jsonc.ToJSON(data), out)
	case formatMarkdown:
		front, rest, err := splitFrontMatter(data)
		if err != nil {
			return "", err
		}
		return rest, decodeYAML(front, out)
	default:
		return "", fmt.Errorf("unsupported source format")
	}
}

func decodeYAML(data []byte, out interface{}) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return errors.New("document is empty")
	}
	return yaml.UnmarshalWithOptions(data, out, yaml.DisallowUnknownField())
}

func decodeJSON(data []byte, out interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

// splitFrontMatter separates "---\n<yaml>\n---\n<body>".
func splitFrontMatter(data []byte) ([]byte, string, error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	if !strings.HasPrefix(text, "---\n") {
		return nil, "", errNoFrontMatter
	}
	rest := text[len("---\n"):]

	end := strings.Index(rest, "\n---")
	if end < 0 {
		return nil, "", errors.New("front matter block is not closed")
	}
	front := rest[:end+1]
	body := rest[end+len("\n---"):]
	// drop the remainder of the closing delimiter line
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	} else {
		body = ""
	}
	return []byte(front), strings.TrimLeft(body, "\n"), nil
}
