package pipeline

import (
	"errors"
	"fmt"
)

// ErrEmptyDateRange is returned by the gold stage when there are no order
// dates to derive the calendar dimension from.
var ErrEmptyDateRange = errors.New("no order dates available to build calendar dimension")

// MissingInputError indicates a required raw file or upstream table does not
// exist. It is always fatal; the pipeline never retries it.
type MissingInputError struct {
	Path string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("required input not found: %s", e.Path)
}

// MalformedInputError indicates a raw document failed strict parsing.
// RepairAttempted distinguishes the recoverable first failure from the fatal
// failure after the repair pass has already run.
type MalformedInputError struct {
	Source          string
	Table           string
	RepairAttempted bool
	Err             error
}

func (e *MalformedInputError) Error() string {
	if e.RepairAttempted {
		return fmt.Sprintf("malformed input %s for table %s (repair attempted): %v", e.Source, e.Table, e.Err)
	}
	return fmt.Sprintf("malformed input %s for table %s: %v", e.Source, e.Table, e.Err)
}

func (e *MalformedInputError) Unwrap() error { return e.Err }

// TypeConformanceError indicates a column could not be cast to its declared
// target type while building a silver table. Fatal, no partial output.
type TypeConformanceError struct {
	Table string
	Err   error
}

func (e *TypeConformanceError) Error() string {
	return fmt.Sprintf("type conformance failed for %s: %v", e.Table, e.Err)
}

func (e *TypeConformanceError) Unwrap() error { return e.Err }
