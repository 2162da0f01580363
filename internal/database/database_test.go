package database

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/JonMunkholm/eqviz/internal/core"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationSource(t *testing.T) {
	migrations, err := MigrationSource().FindMigrations()
	require.NoError(t, err)
	require.Len(t, migrations, 2)

	assert.Equal(t, "0001_init.sql", migrations[0].Id)
	assert.Equal(t, "0002_datasets.sql", migrations[1].Id)
	for _, m := range migrations {
		assert.NotEmpty(t, m.Up, "%s has no up statements", m.Id)
		assert.NotEmpty(t, m.Down, "%s has no down statements", m.Id)
	}
}

func TestDatabaseName(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"postgres://user:pw@localhost:5432/eqviz?sslmode=disable", "eqviz"},
		{"postgres://localhost", ""},
		{"://bad", ""},
	}
	for _, tt := range tests {
		if got := databaseName(tt.url); got != tt.want {
			t.Errorf("databaseName(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestSortOldestFirst(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	recs := []core.DatasetRecord{
		{ID: "c", CreatedAt: base.Add(time.Second), Seq: 1},
		{ID: "b", CreatedAt: base, Seq: 7},
		{ID: "a", CreatedAt: base, Seq: 3},
	}
	sortOldestFirst(recs)

	var ids []string
	for _, r := range recs {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("23505")))
	assert.False(t, isUniqueViolation(nil))
}
