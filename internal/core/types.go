// Package core provides the business logic for equipment dataset uploads.
// This package has no transport dependencies and can be used by any frontend.
package core

import (
	"context"
	"time"
)

// Column names every uploaded dataset must carry.
const (
	ColEquipmentName = "Equipment Name"
	ColType          = "Type"
	ColFlowrate      = "Flowrate"
	ColPressure      = "Pressure"
	ColTemperature   = "Temperature"
)

// RequiredColumns lists the required header columns in canonical order.
// Missing columns are always reported in this order.
var RequiredColumns = []string{
	ColEquipmentName,
	ColType,
	ColFlowrate,
	ColPressure,
	ColTemperature,
}

// Measurement identifies one of the numeric columns and its statistics key.
type Measurement struct {
	Column string // Header name in the CSV
	Key    string // Key used in Summary.Statistics
}

// Measurements are the numeric columns, in the order they are validated.
var Measurements = []Measurement{
	{Column: ColFlowrate, Key: "flowrate"},
	{Column: ColPressure, Key: "pressure"},
	{Column: ColTemperature, Key: "temperature"},
}

// HeaderIndex maps column names (lowercase) to their position in the CSV row.
type HeaderIndex map[string]int

// Dataset is raw tabular input as parsed from an upload: a header row and
// the data records that follow it. Nothing about the values is trusted yet.
type Dataset struct {
	Header  []string
	Records [][]string
}

// Row is one validated equipment reading.
type Row struct {
	EquipmentName string
	Type          string
	Flowrate      float64
	Pressure      float64
	Temperature   float64
}

// measurement returns the value for a statistics key.
func (r Row) measurement(key string) float64 {
	switch key {
	case "flowrate":
		return r.Flowrate
	case "pressure":
		return r.Pressure
	default:
		return r.Temperature
	}
}

// Table is a dataset that has passed Validate. It can only be produced by
// Validate, so Summarize never needs to re-check types.
type Table struct {
	Rows []Row
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// ColumnStats holds aggregate statistics for one measurement column.
type ColumnStats struct {
	Avg float64 `json:"avg"`
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Std float64 `json:"std"`
}

// Summary is the derived, immutable result of summarizing a Table.
type Summary struct {
	TotalCount       int                    `json:"total_count"`
	Statistics       map[string]ColumnStats `json:"statistics"`
	TypeDistribution map[string]int         `json:"type_distribution"`
}

// DatasetRecord is a stored upload: the summary plus a reference to the raw
// bytes, owned by exactly one user. Records are never modified after creation.
type DatasetRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Summary   Summary   `json:"summary"`
	BlobKey   string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	Seq       int64     `json:"-"` // Insertion order, breaks CreatedAt ties
}

// HistoryBackend persists dataset records. Implementations must make
// InsertWithEviction atomic per user: no observer may ever see more than
// capacity records for one user.
type HistoryBackend interface {
	// InsertWithEviction stores rec and, while holding the user's lock,
	// deletes that user's oldest records until at most capacity remain.
	// It returns the evicted records and the stored record (Seq assigned).
	// The stored CreatedAt is never earlier than the user's newest record,
	// so the inserted record always survives its own eviction pass.
	InsertWithEviction(ctx context.Context, rec DatasetRecord, capacity int) (DatasetRecord, []DatasetRecord, error)

	// ListByUser returns up to limit records, most recent first.
	ListByUser(ctx context.Context, userID string, limit int) ([]DatasetRecord, error)

	// GetForUser returns the record only if userID owns it, else ErrNotFound.
	GetForUser(ctx context.Context, userID, id string) (DatasetRecord, error)
}

// BlobStore holds the raw uploaded bytes for each record.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}
