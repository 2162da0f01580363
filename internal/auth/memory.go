package auth

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository keeps accounts in process. Everything is lost on restart.
type MemoryRepository struct {
	mu         sync.RWMutex
	users      map[string]User // by ID
	byUsername map[string]string
	tokens     map[string]Token
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:      make(map[string]User),
		byUsername: make(map[string]string),
		tokens:     make(map[string]Token),
	}
}

func (m *MemoryRepository) CreateUser(_ context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byUsername[u.Username]; ok {
		return ErrUserExists
	}
	m.users[u.ID] = u
	m.byUsername[u.Username] = u.ID
	return nil
}

func (m *MemoryRepository) UserByUsername(_ context.Context, username string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byUsername[username]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return m.users[id], nil
}

func (m *MemoryRepository) UserByID(_ context.Context, id string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (m *MemoryRepository) CreateToken(_ context.Context, t Token) error {
	m.mu.Lock()
	m.tokens[t.Key] = t
	m.mu.Unlock()
	return nil
}

func (m *MemoryRepository) TokenByKey(_ context.Context, key string) (Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tokens[key]
	if !ok {
		return Token{}, ErrTokenNotFound
	}
	return t, nil
}

func (m *MemoryRepository) ActiveToken(_ context.Context, userID string, now time.Time) (Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var best Token
	found := false
	for _, t := range m.tokens {
		if t.UserID != userID || !now.Before(t.ExpiresAt) {
			continue
		}
		if !found || t.CreatedAt.After(best.CreatedAt) {
			best, found = t, true
		}
	}
	if !found {
		return Token{}, ErrTokenNotFound
	}
	return best, nil
}

func (m *MemoryRepository) DeleteExpiredTokens(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for key, t := range m.tokens {
		if !now.Before(t.ExpiresAt) {
			delete(m.tokens, key)
			n++
		}
	}
	return n, nil
}
