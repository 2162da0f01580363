// Package middleware provides HTTP middleware for the web server.
package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/JonMunkholm/eqviz/internal/logging"
)

// Logger is an HTTP middleware that logs request details using structured logging.
//
// It captures request timing, status code, and key metadata for observability.
// The middleware integrates with chi's RequestID to ensure all log entries
// include the request ID for tracing.
//
// Log fields:
//   - method: HTTP method (GET, POST, etc.)
//   - path: Request URL path
//   - status: HTTP response status code
//   - duration_ms: Request processing time in milliseconds
//   - ip: Client IP address (after TrustedRealIP)
//   - user_agent: Client user agent string
//   - user_id: Authenticated user, when the route required a token
//   - bytes: Response body size
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap response writer to capture status code. The auth middleware
		// runs further down the chain, so it reports the user back through
		// the shared slot.
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		slot := &userSlot{}

		next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), userSlotKey{}, slot)))

		duration := time.Since(start)
		logger := logging.FromContext(r.Context())

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.status,
			"bytes", ww.bytes,
			"duration_ms", duration.Milliseconds(),
			"ip", ClientIP(r),
			"user_agent", r.UserAgent(),
		}
		if slot.userID != "" {
			attrs = append(attrs, "user_id", slot.userID)
		}

		switch {
		case ww.status >= 500:
			logger.Error("request", attrs...)
		case ww.status >= 400:
			logger.Warn("request", attrs...)
		default:
			logger.Info("request", attrs...)
		}
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func (w *responseWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.status = status
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// Unwrap provides access to the underlying ResponseWriter for middleware
// that need to inspect it (e.g., http.Flusher for SSE).
func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

type userSlotKey struct{}

// userSlot carries the authenticated user ID from the auth middleware back up
// to Logger.
type userSlot struct {
	userID string
}

// recordUser notes the user for the request log line, if Logger is installed.
func recordUser(ctx context.Context, userID string) {
	if slot, ok := ctx.Value(userSlotKey{}).(*userSlot); ok {
		slot.userID = userID
	}
}
