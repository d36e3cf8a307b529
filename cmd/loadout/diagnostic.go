package main

import (
	"io"

	apperrors "github.com/loadout-dev/loadout/internal/application/errors"
	"github.com/loadout-dev/loadout/internal/domain/entities"
	"github.com/loadout-dev/loadout/internal/infrastructure/output"
)

type diagnosticReport struct {
	Error entities.Diagnostic `json:"error" yaml:"error"`
}

// writeDiagnostic writes the failed build's diagnostic as yaml, or as json
// for every other machine format.
func writeDiagnostic(w io.Writer, format string, err *apperrors.BuildError) error {
	if format != "yaml" {
		format = "json"
	}
	enc, encErr := output.NewFormatterFactory().NewEncoder(format, w)
	if encErr != nil {
		return encErr
	}
	return enc.Encode(diagnosticReport{Error: err.Diagnostic})
}
