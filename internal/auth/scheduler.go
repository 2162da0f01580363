package auth

// scheduler.go runs background maintenance for the token table.
//
// Expired tokens are already rejected by Authenticate; purging only keeps
// the table small. The loop is context-aware for graceful shutdown and logs
// failures without stopping.

import (
	"context"
	"log/slog"
	"time"
)

// DefaultPurgeInterval is used when StartPurgeScheduler gets a zero interval.
const DefaultPurgeInterval = time.Hour

// StartPurgeScheduler deletes expired tokens immediately, then every
// interval, until ctx is cancelled. It blocks; run it in a goroutine.
func (s *Service) StartPurgeScheduler(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultPurgeInterval
	}
	slog.Info("token purge scheduler started", "interval", interval)

	// Run immediately on startup
	s.runPurgeJob(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("token purge scheduler stopped")
			return
		case <-ticker.C:
			s.runPurgeJob(ctx)
		}
	}
}

// runPurgeJob performs one purge cycle.
func (s *Service) runPurgeJob(ctx context.Context) {
	start := time.Now()

	purged, err := s.PurgeExpired(ctx)
	if err != nil {
		slog.Error("token purge failed", "error", err)
		return
	}
	slog.Info("purged expired tokens",
		"tokens_purged", purged,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
