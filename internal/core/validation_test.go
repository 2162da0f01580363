package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fullHeader = []string{"Equipment Name", "Type", "Flowrate", "Pressure", "Temperature"}

func TestValidate_Valid(t *testing.T) {
	ds := Dataset{
		Header: fullHeader,
		Records: [][]string{
			{"Pump-1", "Pump", "10", "5.5", "20"},
			{"Valve-1", "Valve", "-3", "1e2", " 22.25 "},
		},
	}

	table, err := Validate(ds)
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)

	assert.Equal(t, Row{EquipmentName: "Pump-1", Type: "Pump", Flowrate: 10, Pressure: 5.5, Temperature: 20}, table.Rows[0])
	assert.Equal(t, Row{EquipmentName: "Valve-1", Type: "Valve", Flowrate: -3, Pressure: 100, Temperature: 22.25}, table.Rows[1])
}

func TestValidate_HeaderMatching(t *testing.T) {
	tests := []struct {
		name   string
		header []string
	}{
		{"exact", fullHeader},
		{"lowercase", []string{"equipment name", "type", "flowrate", "pressure", "temperature"}},
		{"padded", []string{" Equipment Name ", "TYPE", " Flowrate", "Pressure ", "Temperature"}},
		{"reordered with extras", []string{"Temperature", "Notes", "Pressure", "Type", "Flowrate", "Equipment Name"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := MakeHeaderIndex(tt.header)
			row := make([]string, len(tt.header))
			for col, pos := range idx {
				switch col {
				case "flowrate", "pressure", "temperature":
					row[pos] = "1"
				default:
					row[pos] = "x"
				}
			}

			_, err := Validate(Dataset{Header: tt.header, Records: [][]string{row}})
			if err != nil {
				t.Errorf("Validate() error = %v, want nil", err)
			}
		})
	}
}

func TestValidate_MissingColumnsListsEvery(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		want   []string
	}{
		{
			name:   "one missing",
			header: []string{"Equipment Name", "Type", "Flowrate", "Pressure"},
			want:   []string{"Temperature"},
		},
		{
			name:   "several missing",
			header: []string{"Type", "Pressure"},
			want:   []string{"Equipment Name", "Flowrate", "Temperature"},
		},
		{
			name:   "all missing",
			header: []string{"a", "b"},
			want:   RequiredColumns,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(Dataset{Header: tt.header, Records: [][]string{{"1", "2"}}})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMissingColumns)

			var mc *MissingColumnsError
			require.True(t, errors.As(err, &mc))
			assert.Equal(t, tt.want, mc.Columns)
			assert.Equal(t, tt.want, OffendingColumns(err))
		})
	}
}

func TestValidate_MissingColumnsCheckedFirst(t *testing.T) {
	// Non-numeric values are irrelevant while columns are missing.
	_, err := Validate(Dataset{
		Header:  []string{"Equipment Name", "Type", "Flowrate"},
		Records: [][]string{{"a", "b", "not-a-number"}},
	})
	assert.ErrorIs(t, err, ErrMissingColumns)
	assert.NotErrorIs(t, err, ErrNonNumericColumn)
}

func TestValidate_NonNumeric(t *testing.T) {
	tests := []struct {
		name    string
		records [][]string
		want    []string
	}{
		{
			name:    "text in flowrate",
			records: [][]string{{"P", "Pump", "fast", "1", "1"}},
			want:    []string{"Flowrate"},
		},
		{
			name:    "empty cell",
			records: [][]string{{"P", "Pump", "1", "", "1"}},
			want:    []string{"Pressure"},
		},
		{
			name: "bad value in a later row",
			records: [][]string{
				{"P", "Pump", "1", "1", "1"},
				{"P", "Pump", "1", "1", "hot"},
			},
			want: []string{"Temperature"},
		},
		{
			name:    "nan and inf are not numbers",
			records: [][]string{{"P", "Pump", "NaN", "Inf", "1"}},
			want:    []string{"Flowrate", "Pressure"},
		},
		{
			name:    "short row",
			records: [][]string{{"P", "Pump", "1"}},
			want:    []string{"Pressure", "Temperature"},
		},
		{
			name: "every column reported",
			records: [][]string{
				{"P", "Pump", "x", "1", "1"},
				{"P", "Pump", "1", "y", "z"},
			},
			want: []string{"Flowrate", "Pressure", "Temperature"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(Dataset{Header: fullHeader, Records: tt.records})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrNonNumericColumn)
			assert.Equal(t, tt.want, OffendingColumns(err))
		})
	}
}

func TestValidate_NonNumericReportsFirstCell(t *testing.T) {
	_, err := Validate(Dataset{
		Header: fullHeader,
		Records: [][]string{
			{"P", "Pump", "1", "1", "1"},
			{"P", "Pump", "1,5", "1", "1"},
			{"P", "Pump", "abc", "1", "1"},
		},
	})

	var nn *NonNumericColumnError
	require.True(t, errors.As(err, &nn))
	assert.Equal(t, "Flowrate", nn.Column)
	assert.Equal(t, 2, nn.Row)
	assert.Equal(t, "1,5", nn.Value)
}

func TestValidate_EmptyDataset(t *testing.T) {
	_, err := Validate(Dataset{Header: fullHeader})
	assert.ErrorIs(t, err, ErrEmptyDataset)
}

func TestDescribeValidationError(t *testing.T) {
	_, err := Validate(Dataset{Header: []string{"Type"}})
	assert.Equal(t,
		"missing required columns: Equipment Name, Flowrate, Pressure, Temperature",
		DescribeValidationError(err))

	_, err = Validate(Dataset{Header: fullHeader, Records: [][]string{{"a", "b", "x", "1", "y"}}})
	assert.Equal(t, "columns must be numeric: Flowrate, Temperature", DescribeValidationError(err))
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		input  string
		want   float64
		wantOK bool
	}{
		{"10", 10, true},
		{"-4.5", -4.5, true},
		{"+.5", 0.5, true},
		{"99.", 99, true},
		{"1.5e3", 1500, true},
		{"  7  ", 7, true},
		{"", 0, false},
		{"   ", 0, false},
		{"NaN", 0, false},
		{"inf", 0, false},
		{"1,000", 0, false},
		{"10 bar", 0, false},
		{"0x1F", 0, false},
		{"1e400", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseNumber(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ParseNumber(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ParseNumber(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestCleanCell(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Flowrate", "Flowrate"},
		{"  Flowrate  ", "Flowrate"},
		{`"Flowrate"`, "Flowrate"},
		{`="Flowrate"`, "Flowrate"},
		{"=Flowrate", "Flowrate"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := CleanCell(tt.input); got != tt.want {
			t.Errorf("CleanCell(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
