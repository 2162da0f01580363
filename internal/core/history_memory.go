package core

import (
	"context"
	"sort"
	"sync"
)

// MemoryHistory is an in-process HistoryBackend. A single mutex makes
// InsertWithEviction atomic for every user.
type MemoryHistory struct {
	mu     sync.RWMutex
	seq    int64
	byUser map[string][]DatasetRecord // oldest first
}

// NewMemoryHistory creates an empty in-memory backend.
func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{byUser: make(map[string][]DatasetRecord)}
}

// InsertWithEviction implements HistoryBackend.
func (m *MemoryHistory) InsertWithEviction(ctx context.Context, rec DatasetRecord, capacity int) (DatasetRecord, []DatasetRecord, error) {
	if err := ctx.Err(); err != nil {
		return DatasetRecord{}, nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	rec.Seq = m.seq

	// A wall clock that stepped back must not make the new record the oldest.
	existing := m.byUser[rec.UserID]
	if n := len(existing); n > 0 && existing[n-1].CreatedAt.After(rec.CreatedAt) {
		rec.CreatedAt = existing[n-1].CreatedAt
	}

	recs := append(existing, rec)
	sort.SliceStable(recs, func(i, j int) bool { return olderThan(recs[i], recs[j]) })

	var evicted []DatasetRecord
	if over := len(recs) - capacity; capacity > 0 && over > 0 {
		evicted = append(evicted, recs[:over]...)
		recs = append([]DatasetRecord(nil), recs[over:]...)
	}
	m.byUser[rec.UserID] = recs

	return rec, evicted, nil
}

// ListByUser implements HistoryBackend.
func (m *MemoryHistory) ListByUser(ctx context.Context, userID string, limit int) ([]DatasetRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	recs := m.byUser[userID]
	out := make([]DatasetRecord, 0, len(recs))
	for i := len(recs) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, recs[i])
	}
	return out, nil
}

// GetForUser implements HistoryBackend.
func (m *MemoryHistory) GetForUser(ctx context.Context, userID, id string) (DatasetRecord, error) {
	if err := ctx.Err(); err != nil {
		return DatasetRecord{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, rec := range m.byUser[userID] {
		if rec.ID == id {
			return rec, nil
		}
	}
	return DatasetRecord{}, ErrNotFound
}

// Count returns how many records userID currently holds.
func (m *MemoryHistory) Count(userID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byUser[userID])
}

// olderThan orders records by creation time, then insertion order.
func olderThan(a, b DatasetRecord) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.Seq < b.Seq
}
