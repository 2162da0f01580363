package core

import "math"

// Summarize computes aggregate statistics for a validated table.
//
// Statistics are keyed by Measurement.Key. TypeDistribution groups rows by the
// exact Type value: matching is case-sensitive and nothing is trimmed.
// An empty table yields TotalCount 0 and no statistics; Validate never
// produces one.
func Summarize(t Table) Summary {
	s := Summary{
		TotalCount:       len(t.Rows),
		Statistics:       make(map[string]ColumnStats, len(Measurements)),
		TypeDistribution: make(map[string]int),
	}

	for _, row := range t.Rows {
		s.TypeDistribution[row.Type]++
	}

	if len(t.Rows) == 0 {
		return s
	}

	for _, m := range Measurements {
		s.Statistics[m.Key] = columnStats(t.Rows, m.Key)
	}

	return s
}

// columnStats computes avg/min/max and the sample standard deviation of one
// column. rows must be non-empty.
func columnStats(rows []Row, key string) ColumnStats {
	first := rows[0].measurement(key)
	st := ColumnStats{Min: first, Max: first}

	var sum float64
	for _, r := range rows {
		v := r.measurement(key)
		sum += v
		if v < st.Min {
			st.Min = v
		}
		if v > st.Max {
			st.Max = v
		}
	}

	n := float64(len(rows))
	// Rounding in sum can push the mean just outside [min, max].
	st.Avg = math.Min(math.Max(sum/n, st.Min), st.Max)

	if len(rows) > 1 {
		var sq float64
		for _, r := range rows {
			d := r.measurement(key) - st.Avg
			sq += d * d
		}
		st.Std = math.Sqrt(sq / (n - 1))
	}

	return st
}

// Analyze validates ds and summarizes it in one step.
func Analyze(ds Dataset) (Summary, error) {
	t, err := Validate(ds)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(t), nil
}
