package core

// convert.go turns raw CSV cells into typed values.
//
// Measurement cells must be plain numbers: integers, decimals or scientific
// notation, optionally padded with whitespace. Anything else (empty cells,
// "NaN", "Inf", units like "10 bar") is rejected so that statistics are
// always computed over real readings.

import (
	"regexp"
	"strconv"
	"strings"
)

// numericRegex validates that a string is a valid numeric format after trimming.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// ParseNumber parses a measurement cell.
// Returns false if the cell is empty or not a finite number.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || !numericRegex.MatchString(s) {
		return 0, false
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// Out of range for float64 (e.g. 1e400)
		return 0, false
	}
	return f, true
}

// MakeHeaderIndex creates a HeaderIndex from a CSV header row.
// Keys are lowercased and trimmed for case-insensitive matching.
// When a header repeats, the last occurrence wins.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		idx[headerKey(h)] = i
	}
	return idx
}

// Lookup returns the position of a column by its canonical name.
func (h HeaderIndex) Lookup(column string) (int, bool) {
	pos, ok := h[headerKey(column)]
	return pos, ok
}

// headerKey normalizes a header cell for matching.
func headerKey(s string) string {
	return strings.ToLower(CleanCell(s))
}

// CleanCell removes common CSV artifacts from a header cell:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	s = strings.Trim(s, `"'`)

	return strings.TrimSpace(s)
}

// cell returns row[pos], or "" when the row is too short.
func cell(row []string, pos int) string {
	if pos < 0 || pos >= len(row) {
		return ""
	}
	return row[pos]
}
