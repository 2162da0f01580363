package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/eqviz/internal/core"
	"github.com/JonMunkholm/eqviz/internal/web/middleware"
)

// WithRequestMetadata adds the client IP and User-Agent to ctx for the
// upload log line.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ctx = core.ContextWithIPAddress(ctx, middleware.ClientIP(r))
	ctx = core.ContextWithUserAgent(ctx, r.Header.Get("User-Agent"))
	return ctx
}
