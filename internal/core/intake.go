package core

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// errInvalidCSV wraps parser failures so MapError can recognize them.
var errInvalidCSV = errors.New("invalid csv")

// ReadUpload reads an uploaded file fully, enforcing maxSize (0 = unlimited).
// The raw bytes are kept as received; they are what gets stored and served
// back on download.
func ReadUpload(r io.Reader, maxSize int64) ([]byte, error) {
	data, err := io.ReadAll(&limitedReader{r: r, limit: maxSize})
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}
	return data, nil
}

// ParseCSV parses delimited input into a Dataset. The first non-blank record
// is the header; fully blank records are skipped.
func ParseCSV(r io.Reader) (Dataset, error) {
	cr := csv.NewReader(WrapUpload(r, 0))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return Dataset{}, fmt.Errorf("%w: %v", errInvalidCSV, err)
	}

	var ds Dataset
	for _, rec := range records {
		if isEmptyRow(rec) {
			continue
		}
		if ds.Header == nil {
			ds.Header = rec
			continue
		}
		ds.Records = append(ds.Records, rec)
	}

	if ds.Header == nil {
		return Dataset{}, ErrEmptyFile
	}
	return ds, nil
}

// CheckFileName rejects uploads that are not named *.csv (case-insensitive).
func CheckFileName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrNoFile
	}
	if !strings.EqualFold(filepath.Ext(name), ".csv") {
		return ErrNotCSV
	}
	return nil
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
