package validation

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/loadout-dev/loadout/internal/domain/entities"
	"github.com/loadout-dev/loadout/internal/domain/values"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// ContentValidator checks component content against the JSON Schema of
// its kind.
type ContentValidator struct {
	schemas map[values.ComponentKind]*jsonschema.Schema
}

// NewContentValidator compiles the embedded per-kind schemas.
func NewContentValidator() (*ContentValidator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020

	cv := &ContentValidator{schemas: make(map[values.ComponentKind]*jsonschema.Schema)}
	for _, kind := range values.AllKinds {
		name := "schemas/" + kind.String() + ".json"
		data, err := schemaFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("missing content schema for kind %s: %w", kind, err)
		}
		if err := compiler.AddResource(name, bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("failed to add content schema %s: %w", name, err)
		}
		schema, err := compiler.Compile(name)
		if err != nil {
			return nil, fmt.Errorf("failed to compile content schema %s: %w", name, err)
		}
		cv.schemas[kind] = schema
	}
	return cv, nil
}

// Validate checks c.Content. Violations become a SchemaError naming the
// offending content location.
func (cv *ContentValidator) Validate(c *entities.Component) error {
	schema, ok := cv.schemas[c.Kind]
	if !ok {
		return nil
	}

	doc, err := normalize(c.Content)
	if err != nil {
		return entities.NewSchemaError(entities.StageStore, c.Source, "content", err.Error())
	}

	if err := schema.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			loc, msg := firstLeaf(ve)
			field := "content"
			if loc != "" {
				field += strings.ReplaceAll(loc, "/", ".")
			}
			return entities.NewSchemaError(entities.StageStore, c.Source, field, msg)
		}
		return entities.NewSchemaError(entities.StageStore, c.Source, "content", err.Error())
	}
	return nil
}

// normalize converts decoded YAML into the JSON value space the schema
// validator expects.
func normalize(content map[string]interface{}) (interface{}, error) {
	if content == nil {
		return map[string]interface{}{}, nil
	}
	data, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("content is not representable as JSON: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// firstLeaf returns the innermost cause, which carries the useful message.
func firstLeaf(e *jsonschema.ValidationError) (string, string) {
	for len(e.Causes) > 0 {
		e = e.Causes[0]
	}
	return e.InstanceLocation, e.Message
}
