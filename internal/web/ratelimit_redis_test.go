package web

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a real Redis when TEST_REDIS_ADDR is set.
func TestRedisLimiter(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	ctx := context.Background()
	require.NoError(t, client.Ping(ctx).Err())

	l := NewRedisLimiter(client, "test:"+uuid.NewString()+":", 2, time.Minute)
	for i := 0; i < 2; i++ {
		ok, _, err := l.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, retry, err := l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Greater(t, retry, time.Duration(0))
	assert.LessOrEqual(t, retry, time.Minute)

	ok, _, err = l.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, ok)
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string) (bool, time.Duration, error) {
	return false, 0, errors.New("dial tcp 127.0.0.1:6379: connection refused")
}

func TestRateLimit_FailsOpen(t *testing.T) {
	srv := newTestServer(t, testConfig())
	h := srv.rateLimit(brokenLimiter{}, "all")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
