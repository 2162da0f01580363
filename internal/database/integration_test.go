package database

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/eqviz/internal/auth"
	"github.com/JonMunkholm/eqviz/internal/core"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// testPool connects to TEST_DATABASE_URL, migrates and empties the schema.
// Tests using it are skipped when the variable is unset.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := Connect(ctx, PoolConfig{URL: dsn, MaxConns: 8})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = MigrateUp(pool)
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `TRUNCATE users CASCADE`)
	require.NoError(t, err)
	return pool
}

func createUser(t *testing.T, repo *UserRepository, name string) string {
	t.Helper()
	id := uuid.NewString()
	require.NoError(t, repo.CreateUser(context.Background(), auth.User{
		ID:           id,
		Username:     name,
		PasswordHash: []byte("hash"),
		CreatedAt:    time.Now().UTC(),
	}))
	return id
}

func newRecord(userID string, createdAt time.Time, n int) core.DatasetRecord {
	id := uuid.NewString()
	return core.DatasetRecord{
		ID:        id,
		UserID:    userID,
		Name:      "plant.csv",
		BlobKey:   "datasets/" + userID + "/" + id + ".csv",
		CreatedAt: createdAt,
		Summary: core.Summary{
			TotalCount:       n,
			Statistics:       map[string]core.ColumnStats{"flowrate": {Avg: 1, Min: 1, Max: 1}},
			TypeDistribution: map[string]int{"Pump": n},
		},
	}
}

func TestHistoryBackend_InsertWithEviction(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	users := NewUserRepository(pool)
	backend := NewHistoryBackend(pool)

	alice := createUser(t, users, "alice")
	bob := createUser(t, users, "bob")

	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 6; i++ {
		// The first two share a timestamp; insertion order must decide.
		at := base.Add(time.Duration(max(i-1, 0)) * time.Second)
		stored, evicted, err := backend.InsertWithEviction(ctx, newRecord(alice, at, i+1), 5)
		require.NoError(t, err)
		assert.NotZero(t, stored.Seq)
		ids = append(ids, stored.ID)

		if i < 5 {
			assert.Empty(t, evicted)
		} else {
			require.Len(t, evicted, 1)
			assert.Equal(t, ids[0], evicted[0].ID)
			assert.Equal(t, 1, evicted[0].Summary.TotalCount)
		}
	}

	list, err := backend.ListByUser(ctx, alice, 5)
	require.NoError(t, err)
	require.Len(t, list, 5)
	assert.Equal(t, ids[5], list[0].ID)
	assert.Equal(t, ids[1], list[4].ID)

	got, err := backend.GetForUser(ctx, alice, ids[3])
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Pump": 4}, got.Summary.TypeDistribution)

	_, err = backend.GetForUser(ctx, bob, ids[3])
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = backend.GetForUser(ctx, alice, "not-a-uuid")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestHistoryBackend_EarlierTimestampStillNewest(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	backend := NewHistoryBackend(pool)
	alice := createUser(t, NewUserRepository(pool), "alice")

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		_, _, err := backend.InsertWithEviction(ctx, newRecord(alice, base.Add(-time.Duration(i)*time.Hour), i+1), 2)
		require.NoError(t, err)
	}

	stored, evicted, err := backend.InsertWithEviction(ctx, newRecord(alice, base.Add(-2*time.Hour), 3), 2)
	require.NoError(t, err)
	require.Len(t, evicted, 1)
	assert.NotEqual(t, stored.ID, evicted[0].ID)
	assert.True(t, stored.CreatedAt.Equal(base))

	list, err := backend.ListByUser(ctx, alice, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, stored.ID, list[0].ID)
}

func TestHistoryBackend_ConcurrentInsertsKeepCap(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	alice := createUser(t, NewUserRepository(pool), "alice")

	// Two backends stand in for two server instances.
	backends := []*HistoryBackend{NewHistoryBackend(pool), NewHistoryBackend(pool)}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, err := backends[i%2].InsertWithEviction(ctx, newRecord(alice, time.Now().UTC(), i), 5)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM datasets WHERE user_id = $1`, alice).Scan(&count))
	assert.Equal(t, 5, count)
}

func TestUserRepository_AuthFlow(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	svc := auth.NewService(NewUserRepository(pool), auth.Config{TokenTTL: time.Hour, BcryptCost: bcrypt.MinCost})

	sess, err := svc.Register(ctx, "carol", "pw")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "carol", "pw")
	assert.ErrorIs(t, err, auth.ErrUserExists)

	again, err := svc.Login(ctx, "carol", "pw")
	require.NoError(t, err)
	assert.Equal(t, sess.Token, again.Token)

	user, err := svc.Authenticate(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, "carol", user.Username)

	n, err := svc.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
