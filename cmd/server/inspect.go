package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/JonMunkholm/eqviz/internal/core"
	"github.com/JonMunkholm/eqviz/internal/logging"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.csv>",
	Short: "Validate and summarize a CSV locally",
	Long: `Runs the same validation and summary as an upload and prints the
summary as JSON. Nothing is stored. Exits non-zero when the file is rejected.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	logger := logging.New(cmd.ErrOrStderr(), "info", "text")
	path := args[0]

	if err := core.CheckFileName(path); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	raw, err := core.ReadUpload(f, core.DefaultMaxFileSize)
	if err != nil {
		return err
	}

	summary, err := core.AnalyzeBytes(raw)
	if err != nil {
		msg := core.MapError(err)
		logger.Error("file rejected",
			"file", path,
			"code", msg.Code,
			"columns", core.OffendingColumns(err),
			"error", core.DescribeValidationError(err),
		)
		return fmt.Errorf("%s: %w", path, err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
