package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testClock struct{ t time.Time }

func (c *testClock) now() time.Time          { return c.t }
func (c *testClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestService(t *testing.T) (*Service, *MemoryRepository, *testClock) {
	t.Helper()
	repo := NewMemoryRepository()
	svc := NewService(repo, Config{TokenTTL: time.Hour, BcryptCost: bcrypt.MinCost})
	clock := &testClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc.now = clock.now
	return svc, repo, clock
}

func TestRegisterLoginAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	reg, err := svc.Register(ctx, "alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "alice", reg.Username)
	assert.Len(t, reg.Token, 2*tokenBytes)

	login, err := svc.Login(ctx, "alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, reg.Token, login.Token, "login reuses a still-valid token")

	user, err := svc.Authenticate(ctx, login.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Nil(t, user.PasswordHash)
}

func TestRegister_Errors(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	_, err := svc.Register(ctx, "alice", "pw")
	require.NoError(t, err)

	tests := []struct {
		name     string
		username string
		password string
		want     error
	}{
		{"duplicate", "alice", "other", ErrUserExists},
		{"duplicate after trim", "  alice ", "other", ErrUserExists},
		{"missing username", "", "pw", ErrCredentialsRequired},
		{"blank username", "   ", "pw", ErrCredentialsRequired},
		{"missing password", "bob", "", ErrCredentialsRequired},
		{"password too long", "bob", strings.Repeat("x", 73), ErrPasswordTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.username, tt.password)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	_, err := svc.Register(ctx, "alice", "right")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody", "right")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "alice", "")
	assert.ErrorIs(t, err, ErrCredentialsRequired)
}

func TestAuthenticate_ExpiredAndUnknown(t *testing.T) {
	ctx := context.Background()
	svc, _, clock := newTestService(t)

	sess, err := svc.Register(ctx, "alice", "pw")
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Authenticate(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidToken)

	clock.advance(time.Hour)
	_, err = svc.Authenticate(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrInvalidToken, "token expires exactly at TTL")

	fresh, err := svc.Login(ctx, "alice", "pw")
	require.NoError(t, err)
	assert.NotEqual(t, sess.Token, fresh.Token, "expired token is not reused")

	_, err = svc.Authenticate(ctx, fresh.Token)
	assert.NoError(t, err)
}

func TestPurgeExpired(t *testing.T) {
	ctx := context.Background()
	svc, repo, clock := newTestService(t)

	old, err := svc.Register(ctx, "alice", "pw")
	require.NoError(t, err)

	clock.advance(2 * time.Hour)
	current, err := svc.Register(ctx, "bob", "pw")
	require.NoError(t, err)

	n, err := svc.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.TokenByKey(ctx, old.Token)
	assert.ErrorIs(t, err, ErrTokenNotFound)
	_, err = repo.TokenByKey(ctx, current.Token)
	assert.NoError(t, err)
}

func TestStartPurgeScheduler_StopsOnCancel(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		svc.StartPurgeScheduler(ctx, 10*time.Millisecond)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}
