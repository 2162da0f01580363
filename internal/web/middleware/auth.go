package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/eqviz/internal/auth"
	"github.com/JonMunkholm/eqviz/internal/core"
)

var errMissingToken = errors.New("missing token")

// Authenticator resolves a bearer token to its user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (auth.User, error)
}

type userKey struct{}

// WithUser stores the authenticated user in ctx.
func WithUser(ctx context.Context, u auth.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// UserFromContext returns the user set by RequireToken or OptionalToken.
func UserFromContext(ctx context.Context) (auth.User, bool) {
	u, ok := ctx.Value(userKey{}).(auth.User)
	return u, ok
}

// TokenFromRequest reads "Authorization: Token <key>" or "Bearer <key>".
// GET requests may pass ?token= instead so that browser links (dashboard,
// report and CSV downloads) work without custom headers.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, key, ok := strings.Cut(strings.TrimSpace(h), " ")
		if ok && (strings.EqualFold(scheme, "Token") || strings.EqualFold(scheme, "Bearer")) {
			return strings.TrimSpace(key)
		}
		return ""
	}
	if r.Method == http.MethodGet {
		return r.URL.Query().Get("token")
	}
	return ""
}

// RequireToken rejects requests without a valid token with 401.
func RequireToken(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				slog.Warn("auth: missing token",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				writeAuthError(w, errMissingToken, http.StatusUnauthorized)
				return
			}

			user, err := a.Authenticate(r.Context(), token)
			if err != nil {
				status := http.StatusUnauthorized
				if !errors.Is(err, auth.ErrInvalidToken) {
					status = http.StatusInternalServerError
					slog.Error("auth: token lookup failed", "path", r.URL.Path, "error", err)
				} else {
					slog.Warn("auth: invalid token",
						"path", r.URL.Path,
						"method", r.Method,
						"remote_addr", r.RemoteAddr,
					)
				}
				writeAuthError(w, err, status)
				return
			}

			recordUser(r.Context(), user.ID)
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// OptionalToken attaches the user when a valid token is present and lets
// every request through.
func OptionalToken(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := TokenFromRequest(r); token != "" {
				if user, err := a.Authenticate(r.Context(), token); err == nil {
					recordUser(r.Context(), user.ID)
					r = r.WithContext(WithUser(r.Context(), user))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeAuthError(w http.ResponseWriter, err error, status int) {
	msg := core.MapError(err)
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Token realm="api"`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   msg.Message,
		"message": msg.Message,
		"action":  msg.Action,
		"code":    msg.Code,
	})
}
