package main

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/eqviz/internal/database"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/spf13/cobra"
)

var migrateSteps int

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down]",
	Short:     "Apply or roll back database migrations",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down"},
	RunE:      runMigrate,
}

func init() {
	migrateCmd.Flags().IntVar(&migrateSteps, "steps", 0, "maximum migrations to apply (0 = all for up, 1 for down)")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Database.Enabled() {
		return fmt.Errorf("migrate: DATABASE_URL is not set")
	}

	dir, steps := migrate.Up, migrateSteps
	if len(args) == 1 && args[0] == "down" {
		dir = migrate.Down
		if steps == 0 {
			steps = 1
		}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Server.ShutdownTimeout)
	defer cancel()

	pool, err := database.Connect(ctx, poolConfig(cfg))
	if err != nil {
		return err
	}
	defer pool.Close()

	n, err := database.Migrate(pool, dir, steps)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", n)
	return nil
}
