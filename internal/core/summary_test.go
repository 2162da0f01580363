package core

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func mustValidate(t *testing.T, records [][]string) Table {
	t.Helper()
	table, err := Validate(Dataset{Header: fullHeader, Records: records})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	return table
}

func TestSummarize_Scenario(t *testing.T) {
	table := mustValidate(t, [][]string{
		{"P1", "Pump", "10", "5", "20"},
		{"P2", "Pump", "20", "7", "22"},
		{"V1", "Valve", "30", "9", "24"},
	})

	got := Summarize(table)

	want := Summary{
		TotalCount: 3,
		Statistics: map[string]ColumnStats{
			"flowrate":    {Avg: 20, Min: 10, Max: 30, Std: 10},
			"pressure":    {Avg: 7, Min: 5, Max: 9, Std: 2},
			"temperature": {Avg: 22, Min: 20, Max: 24, Std: 2},
		},
		TypeDistribution: map[string]int{"Pump": 2, "Valve": 1},
	}

	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("Summarize() mismatch (-want +got):\n%s", diff)
	}
}

func TestSummarize_SingleRow(t *testing.T) {
	got := Summarize(mustValidate(t, [][]string{{"P", "Pump", "4", "5", "6"}}))

	if got.Statistics["flowrate"] != (ColumnStats{Avg: 4, Min: 4, Max: 4, Std: 0}) {
		t.Errorf("flowrate = %+v, want avg=min=max=4 std=0", got.Statistics["flowrate"])
	}
}

func TestSummarize_TypeDistributionExactMatch(t *testing.T) {
	got := Summarize(mustValidate(t, [][]string{
		{"a", "Pump", "1", "1", "1"},
		{"b", "pump", "1", "1", "1"},
		{"c", " Pump", "1", "1", "1"},
		{"d", "Pump", "1", "1", "1"},
		{"e", "", "1", "1", "1"},
	}))

	want := map[string]int{"Pump": 2, "pump": 1, " Pump": 1, "": 1}
	if diff := cmp.Diff(want, got.TypeDistribution); diff != "" {
		t.Errorf("TypeDistribution mismatch (-want +got):\n%s", diff)
	}
}

func TestSummarize_EmptyTable(t *testing.T) {
	got := Summarize(Table{})
	if got.TotalCount != 0 {
		t.Errorf("TotalCount = %d, want 0", got.TotalCount)
	}
	if len(got.Statistics) != 0 {
		t.Errorf("Statistics = %v, want empty", got.Statistics)
	}
}

// randomTable builds a table with n rows of random readings.
func randomTable(rng *rand.Rand, n int) Table {
	types := []string{"Pump", "Valve", "Compressor", "HeatExchanger", "Reactor"}
	rows := make([]Row, n)
	for i := range rows {
		rows[i] = Row{
			EquipmentName: fmt.Sprintf("E-%d", i),
			Type:          types[rng.Intn(len(types))],
			Flowrate:      rng.Float64()*1000 - 100,
			Pressure:      rng.NormFloat64() * 50,
			Temperature:   float64(rng.Intn(400)) + 0.1,
		}
	}
	return Table{Rows: rows}
}

func TestSummarize_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		table := randomTable(rng, 1+rng.Intn(60))
		s := Summarize(table)

		if s.TotalCount != table.Len() {
			t.Fatalf("TotalCount = %d, want %d", s.TotalCount, table.Len())
		}

		sum := 0
		for _, c := range s.TypeDistribution {
			sum += c
		}
		if sum != s.TotalCount {
			t.Fatalf("distribution sums to %d, want %d", sum, s.TotalCount)
		}

		for _, m := range Measurements {
			st, ok := s.Statistics[m.Key]
			if !ok {
				t.Fatalf("missing statistics for %s", m.Key)
			}
			if !(st.Min <= st.Avg && st.Avg <= st.Max) {
				t.Fatalf("%s: min=%v avg=%v max=%v violates min <= avg <= max", m.Key, st.Min, st.Avg, st.Max)
			}
			if st.Std < 0 || math.IsNaN(st.Std) {
				t.Fatalf("%s: std = %v", m.Key, st.Std)
			}
		}

		if diff := cmp.Diff(s, Summarize(table)); diff != "" {
			t.Fatalf("Summarize is not deterministic:\n%s", diff)
		}
	}
}

func TestSummarize_AvgStaysWithinBounds(t *testing.T) {
	// 0.1 summed three times is 0.30000000000000004; the raw mean would
	// exceed the max.
	got := Summarize(mustValidate(t, [][]string{
		{"a", "T", "0.1", "0.1", "0.1"},
		{"b", "T", "0.1", "0.1", "0.1"},
		{"c", "T", "0.1", "0.1", "0.1"},
	}))

	st := got.Statistics["flowrate"]
	if st.Avg > st.Max || st.Avg < st.Min {
		t.Errorf("avg %v outside [%v, %v]", st.Avg, st.Min, st.Max)
	}
}

func TestAnalyzeBytes(t *testing.T) {
	raw := []byte("Equipment Name,Type,Flowrate,Pressure,Temperature\n" +
		"P1,Pump,10,5,20\nP2,Pump,20,7,22\nV1,Valve,30,9,24\n")

	got, err := AnalyzeBytes(raw)
	if err != nil {
		t.Fatalf("AnalyzeBytes() error = %v", err)
	}
	if got.TotalCount != 3 {
		t.Errorf("TotalCount = %d, want 3", got.TotalCount)
	}
	if got.Statistics["flowrate"].Avg != 20 {
		t.Errorf("flowrate avg = %v, want 20", got.Statistics["flowrate"].Avg)
	}
}
