package core

// validation.go checks an uploaded dataset and converts it into a Table.
//
// Validation happens in three steps, each reporting everything it finds:
//  1. Header validation: all required columns must be present
//  2. Type validation: measurement columns must hold only numbers
//  3. Row count: at least one data row is required
//
// A dataset that passes is returned as a Table of typed rows, so later
// stages never look at raw strings again.

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks ds against the equipment schema and returns its typed rows.
//
// Errors:
//   - *MissingColumnsError listing every missing column
//   - one *NonNumericColumnError per offending column (joined)
//   - ErrEmptyDataset when there are no data rows
func Validate(ds Dataset) (Table, error) {
	idx, err := ValidateHeaders(ds.Header)
	if err != nil {
		return Table{}, err
	}

	rows, err := buildRows(ds.Records, idx)
	if err != nil {
		return Table{}, err
	}

	if len(rows) == 0 {
		return Table{}, ErrEmptyDataset
	}

	return Table{Rows: rows}, nil
}

// ValidateHeaders ensures all required columns exist in the CSV header.
// Returns a header index, or a *MissingColumnsError listing every missing column.
func ValidateHeaders(header []string) (HeaderIndex, error) {
	idx := MakeHeaderIndex(header)
	var missing []string

	for _, col := range RequiredColumns {
		if _, ok := idx.Lookup(col); !ok {
			missing = append(missing, col)
		}
	}

	if len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}

	return idx, nil
}

// buildRows type-checks every measurement cell. It keeps scanning after the
// first bad column so the caller learns about all of them at once.
func buildRows(records [][]string, idx HeaderIndex) ([]Row, error) {
	namePos, _ := idx.Lookup(ColEquipmentName)
	typePos, _ := idx.Lookup(ColType)

	positions := make([]int, len(Measurements))
	for i, m := range Measurements {
		positions[i], _ = idx.Lookup(m.Column)
	}

	rows := make([]Row, len(records))
	bad := make([]*NonNumericColumnError, len(Measurements))

	for r, record := range records {
		row := Row{
			EquipmentName: cell(record, namePos),
			Type:          cell(record, typePos),
		}

		for i, m := range Measurements {
			raw := cell(record, positions[i])
			v, ok := ParseNumber(raw)
			if !ok {
				if bad[i] == nil {
					bad[i] = &NonNumericColumnError{Column: m.Column, Row: r + 1, Value: raw}
				}
				continue
			}
			switch m.Key {
			case "flowrate":
				row.Flowrate = v
			case "pressure":
				row.Pressure = v
			case "temperature":
				row.Temperature = v
			}
		}

		rows[r] = row
	}

	var errs []error
	for _, e := range bad {
		if e != nil {
			errs = append(errs, e)
		}
	}
	switch len(errs) {
	case 0:
		return rows, nil
	case 1:
		return nil, errs[0]
	default:
		return nil, errors.Join(errs...)
	}
}

// DescribeValidationError renders a validation error as a single line that
// names every offending column.
func DescribeValidationError(err error) string {
	cols := OffendingColumns(err)
	switch {
	case errors.Is(err, ErrMissingColumns):
		return fmt.Sprintf("missing required columns: %s", strings.Join(cols, ", "))
	case errors.Is(err, ErrNonNumericColumn):
		return fmt.Sprintf("columns must be numeric: %s", strings.Join(cols, ", "))
	default:
		return err.Error()
	}
}
