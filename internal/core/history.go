package core

// history.go implements the per-user dataset history.
//
// Each user keeps at most Capacity records. Inserting beyond that evicts the
// user's oldest records (by CreatedAt, then insertion order) in the same
// atomic step, together with their raw bytes. Eviction is permanent.
//
// Atomicity comes from two layers:
//  1. HistoryStore serializes Record calls per user inside this process
//  2. HistoryBackend.InsertWithEviction is atomic per user in storage, which
//     covers several server instances sharing one database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JonMunkholm/eqviz/internal/logging"
	"github.com/google/uuid"
)

// DefaultHistoryCapacity is the number of records kept per user.
const DefaultHistoryCapacity = 5

// EvictFunc is called after a record has been evicted and its blob removed.
type EvictFunc func(rec DatasetRecord)

// HistoryStore is the bounded per-user collection of dataset records.
type HistoryStore struct {
	backend  HistoryBackend
	blobs    BlobStore
	capacity int
	now      func() time.Time
	locks    *keyedMutex

	hookMu  sync.RWMutex
	onEvict []EvictFunc
}

// HistoryOption configures a HistoryStore.
type HistoryOption func(*HistoryStore)

// WithCapacity overrides DefaultHistoryCapacity. Values < 1 are ignored.
func WithCapacity(n int) HistoryOption {
	return func(h *HistoryStore) {
		if n > 0 {
			h.capacity = n
		}
	}
}

// WithClock sets the time source used for CreatedAt.
func WithClock(now func() time.Time) HistoryOption {
	return func(h *HistoryStore) {
		if now != nil {
			h.now = now
		}
	}
}

// NewHistoryStore creates a store over the given metadata backend and blob store.
func NewHistoryStore(backend HistoryBackend, blobs BlobStore, opts ...HistoryOption) *HistoryStore {
	h := &HistoryStore{
		backend:  backend,
		blobs:    blobs,
		capacity: DefaultHistoryCapacity,
		now:      time.Now,
		locks:    newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Capacity returns the per-user record limit.
func (h *HistoryStore) Capacity() int { return h.capacity }

// OnEvict registers a callback run for every evicted record.
func (h *HistoryStore) OnEvict(fn EvictFunc) {
	h.hookMu.Lock()
	h.onEvict = append(h.onEvict, fn)
	h.hookMu.Unlock()
}

// Record stores a new dataset for userID, evicting the oldest records beyond
// capacity. Either the record and its bytes are fully stored or nothing is.
func (h *HistoryStore) Record(ctx context.Context, userID string, summary Summary, raw []byte, name string) (DatasetRecord, error) {
	unlock := h.locks.Lock(userID)
	defer unlock()

	id := uuid.NewString()
	rec := DatasetRecord{
		ID:        id,
		UserID:    userID,
		Name:      name,
		Summary:   summary,
		BlobKey:   blobKey(userID, id),
		CreatedAt: h.now().UTC().Truncate(time.Microsecond),
	}

	if err := h.blobs.Put(ctx, rec.BlobKey, raw); err != nil {
		return DatasetRecord{}, fmt.Errorf("store dataset bytes: %w", err)
	}

	stored, evicted, err := h.backend.InsertWithEviction(ctx, rec, h.capacity)
	if err != nil {
		if delErr := h.blobs.Delete(context.WithoutCancel(ctx), rec.BlobKey); delErr != nil {
			logging.FromContext(ctx).Warn("orphaned dataset blob",
				"blob_key", rec.BlobKey,
				"error", delErr,
			)
		}
		return DatasetRecord{}, fmt.Errorf("insert dataset record: %w", err)
	}

	for _, old := range evicted {
		h.evict(ctx, old)
	}

	return stored, nil
}

// evict removes the raw bytes of a record whose metadata is already gone and
// notifies hooks. Failures are logged, never returned: the triggering insert
// has already committed.
func (h *HistoryStore) evict(ctx context.Context, rec DatasetRecord) {
	logger := logging.WithFields(ctx,
		"user_id", rec.UserID,
		"dataset_id", rec.ID,
		"created_at", rec.CreatedAt,
	)

	if err := h.blobs.Delete(context.WithoutCancel(ctx), rec.BlobKey); err != nil {
		logger.Warn("evicted dataset blob not deleted", "blob_key", rec.BlobKey, "error", err)
	}
	logger.Info("capacity evicted dataset", "capacity", h.capacity)

	h.hookMu.RLock()
	hooks := h.onEvict
	h.hookMu.RUnlock()
	for _, fn := range hooks {
		fn(rec)
	}
}

// List returns the user's records, most recent first.
func (h *HistoryStore) List(ctx context.Context, userID string) ([]DatasetRecord, error) {
	recs, err := h.backend.ListByUser(ctx, userID, h.capacity)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	return recs, nil
}

// Get returns a record owned by userID. Records owned by anyone else are
// reported as ErrNotFound.
func (h *HistoryStore) Get(ctx context.Context, userID, id string) (DatasetRecord, error) {
	return h.backend.GetForUser(ctx, userID, id)
}

// Raw returns the uploaded bytes of a record owned by userID.
func (h *HistoryStore) Raw(ctx context.Context, userID, id string) ([]byte, error) {
	rec, err := h.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	data, err := h.blobs.Get(ctx, rec.BlobKey)
	if err != nil {
		return nil, fmt.Errorf("load dataset bytes: %w", err)
	}
	return data, nil
}

func blobKey(userID, id string) string {
	return "datasets/" + userID + "/" + id + ".csv"
}

// keyedMutex hands out one mutex per key and forgets keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

// Lock blocks until key is free and returns the matching unlock function.
func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()

	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
