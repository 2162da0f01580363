package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/JonMunkholm/eqviz/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err = rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestInspect(t *testing.T) {
	path := writeFile(t, "plant.csv", "Equipment Name,Type,Flowrate,Pressure,Temperature\n"+
		"Pump-1,Pump,100,10,50\n"+
		"Valve-1,Valve,80,8,48\n")

	stdout, _, err := runCLI(t, "inspect", path)
	require.NoError(t, err)

	var summary core.Summary
	require.NoError(t, json.Unmarshal([]byte(stdout), &summary))
	assert.Equal(t, 2, summary.TotalCount)
	assert.Equal(t, map[string]int{"Pump": 1, "Valve": 1}, summary.TypeDistribution)
	assert.InDelta(t, 90.0, summary.Statistics["flowrate"].Avg, 1e-9)
}

func TestInspect_Rejected(t *testing.T) {
	path := writeFile(t, "plant.csv", "Equipment Name,Type\nPump-1,Pump\n")

	stdout, stderr, err := runCLI(t, "inspect", path)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrMissingColumns)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "VAL004")
}

func TestInspect_NotCSV(t *testing.T) {
	path := writeFile(t, "plant.txt", "whatever")

	_, _, err := runCLI(t, "inspect", path)
	assert.ErrorIs(t, err, core.ErrNotCSV)
}
