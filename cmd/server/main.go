// Command server runs the equipment visualizer HTTP API and its
// maintenance commands.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/JonMunkholm/eqviz/internal/config"
	"github.com/JonMunkholm/eqviz/internal/logging"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "Equipment parameter visualizer",
	Long: `Validates equipment CSV uploads, summarizes them, and keeps each
user's five most recent datasets with PDF reports.

Running without a subcommand starts the HTTP server.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(inspectCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the dotenv file (overwriting existing variables), loads
// and validates configuration, then sets up logging.
func loadConfig() (*config.Config, error) {
	if err := godotenv.Overload(envFile); err != nil {
		slog.Info("no .env file found, using environment variables", "path", envFile)
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)", "path", envFile)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	return cfg, nil
}
