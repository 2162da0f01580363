package database

import (
	"embed"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	migrate "github.com/rubenv/sql-migrate"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrationTable tracks applied migrations.
const migrationTable = "schema_migrations"

// MigrationSource returns the embedded schema migrations.
func MigrationSource() migrate.MigrationSource {
	return &migrate.EmbedFileSystemMigrationSource{
		FileSystem: migrationsFS,
		Root:       "migrations",
	}
}

// Migrate applies migrations in the given direction and returns how many
// ran. max limits the count; 0 means all.
func Migrate(pool *pgxpool.Pool, dir migrate.MigrationDirection, max int) (int, error) {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	ms := migrate.MigrationSet{TableName: migrationTable}
	n, err := ms.ExecMax(db, "postgres", MigrationSource(), dir, max)
	if err != nil {
		return n, fmt.Errorf("apply migrations: %w", err)
	}

	slog.Info("migrations applied", "count", n, "direction", directionName(dir))
	return n, nil
}

// MigrateUp applies every pending migration.
func MigrateUp(pool *pgxpool.Pool) (int, error) {
	return Migrate(pool, migrate.Up, 0)
}

func directionName(dir migrate.MigrationDirection) string {
	if dir == migrate.Down {
		return "down"
	}
	return "up"
}
