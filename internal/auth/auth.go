// Package auth manages user accounts and the bearer tokens that scope every
// dataset operation to its owner.
//
// Passwords are stored as bcrypt hashes. Tokens are random hex strings with a
// fixed lifetime; Login hands back a still-valid token when one exists, so a
// user logged in from several places shares one token until it expires.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Errors returned by Service. Messages are matched by core.MapError.
var (
	ErrCredentialsRequired = errors.New("username and password required")
	ErrUserExists          = errors.New("user already exists")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidToken        = errors.New("invalid token")
	ErrPasswordTooLong     = errors.New("password too long: at most 72 bytes")
)

// Repository lookups return these when nothing matches.
var (
	ErrUserNotFound  = errors.New("user not found")
	ErrTokenNotFound = errors.New("token not found")
)

const (
	// DefaultTokenTTL is used when Config.TokenTTL is zero.
	DefaultTokenTTL = 24 * time.Hour

	tokenBytes = 32
)

// User is a registered account.
type User struct {
	ID           string
	Username     string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Token grants access as UserID until ExpiresAt.
type Token struct {
	Key       string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Session is what a client receives after Register or Login.
type Session struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Repository persists users and tokens.
type Repository interface {
	// CreateUser fails with ErrUserExists when the username is taken.
	CreateUser(ctx context.Context, u User) error
	UserByUsername(ctx context.Context, username string) (User, error)
	UserByID(ctx context.Context, id string) (User, error)

	CreateToken(ctx context.Context, t Token) error
	TokenByKey(ctx context.Context, key string) (Token, error)
	// ActiveToken returns the user's newest token still valid at now.
	ActiveToken(ctx context.Context, userID string, now time.Time) (Token, error)
	DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

// Config controls token lifetime and hashing cost.
type Config struct {
	TokenTTL   time.Duration
	BcryptCost int
}

// Service implements registration, login and token authentication.
type Service struct {
	repo  Repository
	ttl   time.Duration
	cost  int
	now   func() time.Time
	dummy []byte
}

// NewService creates a Service over repo.
func NewService(repo Repository, cfg Config) *Service {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	// Compared against when the user does not exist, so unknown usernames
	// take as long as wrong passwords.
	dummy, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cost)

	return &Service{
		repo:  repo,
		ttl:   ttl,
		cost:  cost,
		now:   time.Now,
		dummy: dummy,
	}
}

// Register creates an account and returns a fresh session for it.
func (s *Service) Register(ctx context.Context, username, password string) (Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Session{}, ErrCredentialsRequired
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return Session{}, ErrPasswordTooLong
		}
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	user := User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrUserExists) {
			return Session{}, ErrUserExists
		}
		return Session{}, fmt.Errorf("create user: %w", err)
	}

	return s.issue(ctx, user)
}

// Login verifies the password and returns the user's active session,
// issuing a new token if none is valid.
func (s *Service) Login(ctx context.Context, username, password string) (Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Session{}, ErrCredentialsRequired
	}

	user, err := s.repo.UserByUsername(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummy, []byte(password))
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, fmt.Errorf("lookup user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}

	tok, err := s.repo.ActiveToken(ctx, user.ID, s.now())
	switch {
	case err == nil:
		return Session{Token: tok.Key, Username: user.Username, ExpiresAt: tok.ExpiresAt}, nil
	case errors.Is(err, ErrTokenNotFound):
		return s.issue(ctx, user)
	default:
		return Session{}, fmt.Errorf("lookup token: %w", err)
	}
}

// Authenticate resolves a token to its user. Unknown and expired tokens both
// yield ErrInvalidToken.
func (s *Service) Authenticate(ctx context.Context, key string) (User, error) {
	if key == "" {
		return User{}, ErrInvalidToken
	}

	tok, err := s.repo.TokenByKey(ctx, key)
	if errors.Is(err, ErrTokenNotFound) {
		return User{}, ErrInvalidToken
	}
	if err != nil {
		return User{}, fmt.Errorf("lookup token: %w", err)
	}
	if !s.now().Before(tok.ExpiresAt) {
		return User{}, ErrInvalidToken
	}

	user, err := s.repo.UserByID(ctx, tok.UserID)
	if errors.Is(err, ErrUserNotFound) {
		return User{}, ErrInvalidToken
	}
	if err != nil {
		return User{}, fmt.Errorf("lookup user: %w", err)
	}
	user.PasswordHash = nil
	return user, nil
}

// PurgeExpired deletes every expired token and returns how many were removed.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpiredTokens(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("purge expired tokens: %w", err)
	}
	return n, nil
}

func (s *Service) issue(ctx context.Context, user User) (Session, error) {
	key, err := newTokenKey()
	if err != nil {
		return Session{}, err
	}
	now := s.now().UTC()
	tok := Token{
		Key:       key,
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.repo.CreateToken(ctx, tok); err != nil {
		return Session{}, fmt.Errorf("create token: %w", err)
	}
	return Session{Token: key, Username: user.Username, ExpiresAt: tok.ExpiresAt}, nil
}

func newTokenKey() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
