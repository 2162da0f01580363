package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/JonMunkholm/eqviz/internal/auth"
)

const maxCredentialsBody = 1 << 16

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// decodeCredentials reads a JSON body, or form fields when the client
// posted a form.
func decodeCredentials(w http.ResponseWriter, r *http.Request) (credentials, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxCredentialsBody)

	var c credentials
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			return c, fmt.Errorf("parse form: %w", auth.ErrCredentialsRequired)
		}
		c.Username, c.Password = r.PostForm.Get("username"), r.PostForm.Get("password")
		return c, nil
	}

	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		return c, fmt.Errorf("decode credentials: %w", auth.ErrCredentialsRequired)
	}
	return c, nil
}

// handleRegister creates an account and returns its first token.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	c, err := decodeCredentials(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	session, err := s.auth.Register(r.Context(), c.Username, c.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, session)
}

// handleLogin returns the user's active token, issuing one if needed.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	c, err := decodeCredentials(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	session, err := s.auth.Login(r.Context(), c.Username, c.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, session)
}
