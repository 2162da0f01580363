// Package web provides the HTTP API and dashboard for the equipment
// visualizer.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/JonMunkholm/eqviz/internal/auth"
	"github.com/JonMunkholm/eqviz/internal/config"
	"github.com/JonMunkholm/eqviz/internal/core"
	"github.com/JonMunkholm/eqviz/internal/report"
	mw "github.com/JonMunkholm/eqviz/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
)

// Deps are the services the server routes to.
type Deps struct {
	Service *core.Service
	Auth    *auth.Service
	Reports report.Renderer

	// Redis, when set, backs the rate limiters so counters are shared
	// across instances.
	Redis *redis.Client
}

// Server is the HTTP server.
type Server struct {
	cfg      *config.Config
	service  *core.Service
	auth     *auth.Service
	reports  report.Renderer
	redis    *redis.Client
	router   *chi.Mux
	server   *http.Server
	stoppers []func()
}

// NewServer builds the router for cfg and deps.
func NewServer(cfg *config.Config, deps Deps) *Server {
	s := &Server{
		cfg:     cfg,
		service: deps.Service,
		auth:    deps.Auth,
		reports: deps.Reports,
		redis:   deps.Redis,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.StripSlashes)
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))

	if s.cfg.Security.EnableCSP {
		s.router.Use(securityHeaders)
	}
	if len(s.cfg.Security.AllowedOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.Security.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:         600,
		}))
	}
	if s.cfg.Rate.Enabled {
		s.router.Use(s.rateLimit(s.newLimiter("all", s.cfg.Rate.RequestsPerMinute), "all"))
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	requestTimeout := middleware.Timeout(s.cfg.Server.RequestTimeout)

	s.router.Get("/healthz", s.handleHealth)
	s.router.With(requestTimeout, mw.OptionalToken(s.auth)).Get("/", s.handleDashboard)

	s.router.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(requestTimeout)
			if s.cfg.Rate.Enabled {
				r.Use(s.rateLimit(s.newLimiter("auth", s.cfg.Rate.AuthLimit), "auth"))
			}
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
		})

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireToken(s.auth))

			// Uploads get their own deadline; parsing a large file can outlast
			// the default request timeout.
			upload := chi.Chain(middleware.Timeout(s.cfg.Upload.Timeout))
			if s.cfg.Rate.Enabled {
				upload = append(upload, s.rateLimit(s.newLimiter("upload", s.cfg.Rate.UploadLimit), "upload"))
			}
			r.With(upload...).Post("/upload", s.handleUpload)

			r.Group(func(r chi.Router) {
				r.Use(requestTimeout)
				r.Get("/upload-queue", s.handleUploadQueue)
				r.Get("/history", s.handleHistory)
				r.Get("/summary/{id}", s.handleSummary)
				r.Get("/datasets/{id}/csv", s.handleDownloadCSV)
				r.Get("/report/{id}", s.handleReport)
			})
		})
	})
}

// newLimiter returns a Redis-backed limiter when Redis is configured and a
// per-process one otherwise.
func (s *Server) newLimiter(scope string, perMinute int) RateLimiter {
	if s.redis != nil {
		return NewRedisLimiter(s.redis, "eqviz:rl:", perMinute, time.Minute)
	}
	l := newMemoryLimiter(perMinute, time.Minute)
	s.stoppers = append(s.stoppers, l.Stop)
	return l
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests, waits for in-flight ones and stops
// background limiter cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	defer s.Close()
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Close releases background goroutines without touching the listener.
func (s *Server) Close() {
	for _, stop := range s.stoppers {
		stop()
	}
	s.stoppers = nil
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")

		// Dashboard styles and scripts are inline.
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; font-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}
