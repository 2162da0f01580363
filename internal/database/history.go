package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/JonMunkholm/eqviz/internal/core"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const datasetColumns = `id::text, user_id::text, name, blob_key, summary, created_at, seq`

// HistoryBackend stores dataset records in the datasets table.
type HistoryBackend struct {
	pool *pgxpool.Pool
}

// NewHistoryBackend creates a backend over pool.
func NewHistoryBackend(pool *pgxpool.Pool) *HistoryBackend {
	return &HistoryBackend{pool: pool}
}

// InsertWithEviction inserts rec and trims the user's history to capacity in
// one transaction. created_at is raised to the user's newest record if the
// caller's clock is behind it. A transaction-scoped advisory lock on the user serializes
// concurrent inserts across every server sharing the database.
func (b *HistoryBackend) InsertWithEviction(ctx context.Context, rec core.DatasetRecord, capacity int) (core.DatasetRecord, []core.DatasetRecord, error) {
	summary, err := json.Marshal(rec.Summary)
	if err != nil {
		return core.DatasetRecord{}, nil, fmt.Errorf("marshal summary: %w", err)
	}

	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return core.DatasetRecord{}, nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, rec.UserID); err != nil {
		return core.DatasetRecord{}, nil, fmt.Errorf("lock user history: %w", err)
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO datasets (id, user_id, name, blob_key, summary, created_at)
		VALUES ($1, $2, $3, $4, $5,
			GREATEST($6::timestamptz, (SELECT max(created_at) FROM datasets WHERE user_id = $2)))
		RETURNING seq, created_at`,
		rec.ID, rec.UserID, rec.Name, rec.BlobKey, summary, rec.CreatedAt,
	).Scan(&rec.Seq, &rec.CreatedAt)
	if err != nil {
		return core.DatasetRecord{}, nil, fmt.Errorf("insert dataset: %w", err)
	}
	rec.CreatedAt = rec.CreatedAt.UTC()

	rows, err := tx.Query(ctx, `
		DELETE FROM datasets
		WHERE id IN (
			SELECT id FROM datasets
			WHERE user_id = $1
			ORDER BY created_at DESC, seq DESC
			OFFSET $2
		)
		RETURNING `+datasetColumns,
		rec.UserID, capacity,
	)
	if err != nil {
		return core.DatasetRecord{}, nil, fmt.Errorf("evict datasets: %w", err)
	}
	evicted, err := pgx.CollectRows(rows, scanDataset)
	if err != nil {
		return core.DatasetRecord{}, nil, fmt.Errorf("evict datasets: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return core.DatasetRecord{}, nil, fmt.Errorf("commit dataset: %w", err)
	}

	sortOldestFirst(evicted)
	return rec, evicted, nil
}

// ListByUser returns up to limit records, most recent first.
func (b *HistoryBackend) ListByUser(ctx context.Context, userID string, limit int) ([]core.DatasetRecord, error) {
	rows, err := b.pool.Query(ctx, `
		SELECT `+datasetColumns+`
		FROM datasets
		WHERE user_id = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query datasets: %w", err)
	}
	recs, err := pgx.CollectRows(rows, scanDataset)
	if err != nil {
		return nil, fmt.Errorf("query datasets: %w", err)
	}
	return recs, nil
}

// GetForUser returns the record only if userID owns it.
func (b *HistoryBackend) GetForUser(ctx context.Context, userID, id string) (core.DatasetRecord, error) {
	// A malformed id cannot exist; don't let Postgres reject the cast.
	if _, err := uuid.Parse(id); err != nil {
		return core.DatasetRecord{}, core.ErrNotFound
	}

	rows, err := b.pool.Query(ctx, `
		SELECT `+datasetColumns+`
		FROM datasets
		WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return core.DatasetRecord{}, fmt.Errorf("query dataset: %w", err)
	}
	rec, err := pgx.CollectExactlyOneRow(rows, scanDataset)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.DatasetRecord{}, core.ErrNotFound
	}
	if err != nil {
		return core.DatasetRecord{}, fmt.Errorf("query dataset: %w", err)
	}
	return rec, nil
}

func scanDataset(row pgx.CollectableRow) (core.DatasetRecord, error) {
	var (
		rec     core.DatasetRecord
		summary []byte
	)
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.Name, &rec.BlobKey, &summary, &rec.CreatedAt, &rec.Seq); err != nil {
		return core.DatasetRecord{}, err
	}
	if err := json.Unmarshal(summary, &rec.Summary); err != nil {
		return core.DatasetRecord{}, fmt.Errorf("decode summary for %s: %w", rec.ID, err)
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}

func sortOldestFirst(recs []core.DatasetRecord) {
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].CreatedAt.Before(recs[j].CreatedAt)
		}
		return recs[i].Seq < recs[j].Seq
	})
}

var _ core.HistoryBackend = (*HistoryBackend)(nil)
