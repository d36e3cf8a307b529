// Package validation checks decoded source documents: struct rules through
// go-playground/validator and per-kind content schemas through JSON Schema.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/go-playground/validator/v10"

	"github.com/loadout-dev/loadout/internal/domain/entities"
)

// StructValidator applies the validate tags of domain entities.
// Safe for concurrent use once constructed.
type StructValidator struct {
	validate *validator.Validate
}

// NewStructValidator creates a validator with the loadout custom tags
// registered and field names reported by their yaml keys.
func NewStructValidator() *StructValidator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("component_id", func(fl validator.FieldLevel) bool {
		return entities.IsValidComponentID(fl.Field().String())
	})
	_ = v.RegisterValidation("semver", func(fl validator.FieldLevel) bool {
		_, err := semver.StrictNewVersion(fl.Field().String())
		return err == nil
	})

	return &StructValidator{validate: v}
}

// Validate checks s and reports the first violation as a SchemaError
// against file.
func (sv *StructValidator) Validate(stage entities.Stage, file string, s interface{}) error {
	err := sv.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return entities.NewSchemaError(stage, file, "", err.Error())
	}

	fe := fieldErrs[0]
	return entities.NewSchemaError(stage, file, fieldPath(fe), describe(fe))
}

// fieldPath strips the root struct name: "Component.depends_on[1]" -> "depends_on[1]".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "component_id":
		return fmt.Sprintf("%q is not a valid id (letters, digits, '.', '_' and '-')", fe.Value())
	case "semver":
		return fmt.Sprintf("%q is not a semantic version", fe.Value())
	case "oneof":
		return fmt.Sprintf("%v must be one of: %s", fe.Value(), fe.Param())
	case "min":
		return fmt.Sprintf("must have at least %s entries", fe.Param())
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}
