package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JonMunkholm/eqviz/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAuth map[string]auth.User

func (s stubAuth) Authenticate(_ context.Context, token string) (auth.User, error) {
	if token == "boom" {
		return auth.User{}, errors.New("connection refused")
	}
	u, ok := s[token]
	if !ok {
		return auth.User{}, auth.ErrInvalidToken
	}
	return u, nil
}

func TestTokenFromRequest(t *testing.T) {
	tests := []struct {
		name   string
		method string
		url    string
		header string
		want   string
	}{
		{"token scheme", http.MethodGet, "/", "Token abc", "abc"},
		{"bearer scheme", http.MethodPost, "/", "Bearer abc", "abc"},
		{"scheme case insensitive", http.MethodGet, "/", "bearer  abc ", "abc"},
		{"unknown scheme", http.MethodGet, "/", "Basic abc", ""},
		{"query on GET", http.MethodGet, "/?token=xyz", "", "xyz"},
		{"query ignored on POST", http.MethodPost, "/?token=xyz", "", ""},
		{"header wins over query", http.MethodGet, "/?token=xyz", "Token abc", "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, tt.url, nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			if got := TokenFromRequest(r); got != tt.want {
				t.Errorf("TokenFromRequest() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRequireToken(t *testing.T) {
	users := stubAuth{"good": {ID: "u1", Username: "alice"}}
	handler := RequireToken(users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := UserFromContext(r.Context())
		require.True(t, ok)
		w.Write([]byte(u.Username))
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCode   string
	}{
		{"valid", "Token good", http.StatusOK, ""},
		{"missing", "", http.StatusUnauthorized, "AUTH004"},
		{"invalid", "Token nope", http.StatusUnauthorized, "AUTH004"},
		{"backend failure", "Token boom", http.StatusInternalServerError, "DB004"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/history", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCode == "" {
				assert.Equal(t, "alice", w.Body.String())
				return
			}
			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body["code"])
		})
	}
}

func TestOptionalToken(t *testing.T) {
	users := stubAuth{"good": {ID: "u1", Username: "alice"}}
	var gotUser bool
	handler := OptionalToken(users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, gotUser = UserFromContext(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/?token=good", nil))
	assert.True(t, gotUser)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/?token=bad", nil))
	assert.False(t, gotUser)
}

func TestTrustedRealIP(t *testing.T) {
	mw := TrustedRealIP([]string{"10.0.0.0/8", "127.0.0.1", "not-a-cidr"})

	tests := []struct {
		name       string
		remoteAddr string
		realIP     string
		xff        string
		want       string
	}{
		{"trusted proxy with X-Real-IP", "10.1.2.3:5555", "203.0.113.9", "", "203.0.113.9"},
		{"trusted single address with XFF", "127.0.0.1:80", "", "198.51.100.7, 10.0.0.1", "198.51.100.7"},
		{"untrusted source ignored", "192.0.2.1:1234", "203.0.113.9", "", "192.0.2.1"},
		{"invalid header ignored", "10.1.2.3:5555", "garbage", "", "10.1.2.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { got = ClientIP(r) }))

			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.realIP != "" {
				r.Header.Set("X-Real-IP", tt.realIP)
			}
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			h.ServeHTTP(httptest.NewRecorder(), r)

			if got != tt.want {
				t.Errorf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLogger_CapturesStatusAndUser(t *testing.T) {
	users := stubAuth{"good": {ID: "u1", Username: "alice"}}
	var rw *responseWriter
	var slot *userSlot

	inner := RequireToken(users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw = w.(*responseWriter)
		slot = r.Context().Value(userSlotKey{}).(*userSlot)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("created"))
	}))

	r := httptest.NewRequest(http.MethodPost, "/api/upload", nil)
	r.Header.Set("Authorization", "Token good")
	w := httptest.NewRecorder()
	Logger(inner).ServeHTTP(w, r)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, http.StatusCreated, rw.status)
	assert.Equal(t, len("created"), rw.bytes)
	assert.Equal(t, "u1", slot.userID)
}
