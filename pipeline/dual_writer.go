package pipeline

import (
	"errors"
	"fmt"

	"github.com/aluiziolira/mp-attendance/models"
)

// DualWriter persists the JSON snapshot plus a CSV of member summaries.
type DualWriter struct {
	csvWriter  *CSVWriter
	jsonWriter *JSONWriter
}

// NewDualWriter creates a writer for both files.
func NewDualWriter(csvFilename, jsonFilename string) *DualWriter {
	return &DualWriter{
		csvWriter:  NewCSVWriter(csvFilename),
		jsonWriter: NewJSONWriter(jsonFilename),
	}
}

// Write writes the JSON snapshot first, then the CSV.
func (dw *DualWriter) Write(snapshot *models.Snapshot) error {
	if err := dw.jsonWriter.Write(snapshot); err != nil {
		return fmt.Errorf("JSON write failed: %w", err)
	}
	if err := dw.csvWriter.Write(snapshot); err != nil {
		return fmt.Errorf("CSV write failed: %w", err)
	}
	return nil
}

// Validate validates both output files.
func (dw *DualWriter) Validate() error {
	var errs []error
	if err := dw.jsonWriter.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("JSON validation failed: %w", err))
	}
	if err := dw.csvWriter.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("CSV validation failed: %w", err))
	}
	return errors.Join(errs...)
}
