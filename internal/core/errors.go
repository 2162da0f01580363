package core

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Typed errors below match these through errors.Is.
var (
	ErrMissingColumns   = errors.New("missing required columns")
	ErrNonNumericColumn = errors.New("non-numeric column")
	ErrEmptyDataset     = errors.New("empty dataset: no data rows")
	ErrEmptyFile        = errors.New("empty file")
	ErrNotFound         = errors.New("dataset not found")
	ErrNoFile           = errors.New("no file provided")
	ErrNotCSV           = errors.New("invalid csv: only .csv files are accepted")
	ErrFileTooLarge     = errors.New("file too large")
)

// MissingColumnsError lists every required column absent from the header.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Columns, ", "))
}

func (e *MissingColumnsError) Is(target error) bool {
	return target == ErrMissingColumns
}

// NonNumericColumnError reports a measurement column holding a value that is
// not a number. Row is the 1-based data row of the first offending cell.
type NonNumericColumnError struct {
	Column string
	Row    int
	Value  string
}

func (e *NonNumericColumnError) Error() string {
	return fmt.Sprintf("non-numeric column %q: row %d has %q", e.Column, e.Row, e.Value)
}

func (e *NonNumericColumnError) Is(target error) bool {
	return target == ErrNonNumericColumn
}

// OffendingColumns returns every column named by a validation error, whether
// it is a single typed error or several joined with errors.Join.
func OffendingColumns(err error) []string {
	if err == nil {
		return nil
	}

	var cols []string
	var walk func(error)
	walk = func(e error) {
		switch v := e.(type) {
		case *MissingColumnsError:
			cols = append(cols, v.Columns...)
			return
		case *NonNumericColumnError:
			cols = append(cols, v.Column)
			return
		}
		switch u := e.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range u.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			if inner := u.Unwrap(); inner != nil {
				walk(inner)
			}
		}
	}
	walk(err)
	return cols
}

// IsValidationError reports whether err came from dataset validation or
// intake, i.e. whether it is the client's fault.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrMissingColumns) ||
		errors.Is(err, ErrNonNumericColumn) ||
		errors.Is(err, ErrEmptyDataset) ||
		errors.Is(err, ErrEmptyFile) ||
		errors.Is(err, ErrNoFile) ||
		errors.Is(err, ErrNotCSV) ||
		errors.Is(err, ErrFileTooLarge) ||
		errors.Is(err, errInvalidCSV)
}
