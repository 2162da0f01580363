package templates

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/eqviz/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, d DashboardData) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Dashboard(d).Render(context.Background(), &buf))
	return buf.String()
}

func TestDashboard_SignedOut(t *testing.T) {
	html := render(t, DashboardData{})
	assert.Contains(t, html, `id="auth"`)
	assert.NotContains(t, html, `id="upload"`)
}

func TestDashboard_EscapesUserContent(t *testing.T) {
	html := render(t, DashboardData{
		Username: "<b>mallory</b>",
		Token:    "tok",
		Capacity: 5,
		History: []core.DatasetRecord{{
			ID:        "abc",
			Name:      `"><script>alert(1)</script>.csv`,
			CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			Summary: core.Summary{
				TotalCount:       2,
				Statistics:       map[string]core.ColumnStats{"flowrate": {Avg: 1.5, Min: 1, Max: 2}},
				TypeDistribution: map[string]int{"<img>": 2},
			},
		}},
	})

	assert.NotContains(t, html, "<b>mallory</b>")
	assert.NotContains(t, html, "<script>alert(1)</script>")
	assert.NotContains(t, html, "<img>")
	assert.Contains(t, html, "&lt;b&gt;mallory&lt;/b&gt;")
	assert.Contains(t, html, "/api/report/abc?token=tok")
	assert.Contains(t, html, "1.50")
}

func TestErrorAlert(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ErrorAlert("Bad <file>", "Fix it", "VAL004").Render(context.Background(), &buf))

	out := buf.String()
	assert.True(t, strings.Contains(out, "Bad &lt;file&gt;"))
	assert.Contains(t, out, "Code: VAL004")
}
