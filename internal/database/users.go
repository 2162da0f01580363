package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/eqviz/internal/auth"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgUniqueViolation is the SQLSTATE for unique constraint failures.
const pgUniqueViolation = "23505"

// UserRepository stores accounts and tokens in the users and auth_tokens tables.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a repository over pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) CreateUser(ctx context.Context, u auth.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, username, password_hash, created_at)
		VALUES ($1, $2, $3, $4)`,
		u.ID, u.Username, u.PasswordHash, u.CreatedAt,
	)
	if isUniqueViolation(err) {
		return auth.ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) UserByUsername(ctx context.Context, username string) (auth.User, error) {
	return r.queryUser(ctx, `WHERE username = $1`, username)
}

func (r *UserRepository) UserByID(ctx context.Context, id string) (auth.User, error) {
	return r.queryUser(ctx, `WHERE id = $1`, id)
}

func (r *UserRepository) queryUser(ctx context.Context, where string, arg any) (auth.User, error) {
	var u auth.User
	err := r.pool.QueryRow(ctx,
		`SELECT id::text, username, password_hash, created_at FROM users `+where, arg,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return auth.User{}, auth.ErrUserNotFound
	}
	if err != nil {
		return auth.User{}, fmt.Errorf("query user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) CreateToken(ctx context.Context, t auth.Token) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO auth_tokens (key, user_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4)`,
		t.Key, t.UserID, t.CreatedAt, t.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

func (r *UserRepository) TokenByKey(ctx context.Context, key string) (auth.Token, error) {
	return r.queryToken(ctx, `WHERE key = $1`, key)
}

func (r *UserRepository) ActiveToken(ctx context.Context, userID string, now time.Time) (auth.Token, error) {
	return r.queryToken(ctx, `
		WHERE user_id = $1 AND expires_at > $2
		ORDER BY created_at DESC
		LIMIT 1`, userID, now)
}

func (r *UserRepository) queryToken(ctx context.Context, where string, args ...any) (auth.Token, error) {
	var t auth.Token
	err := r.pool.QueryRow(ctx,
		`SELECT key, user_id::text, created_at, expires_at FROM auth_tokens `+where, args...,
	).Scan(&t.Key, &t.UserID, &t.CreatedAt, &t.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return auth.Token{}, auth.ErrTokenNotFound
	}
	if err != nil {
		return auth.Token{}, fmt.Errorf("query token: %w", err)
	}
	return t, nil
}

func (r *UserRepository) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM auth_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

var _ auth.Repository = (*UserRepository)(nil)
