package core

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/JonMunkholm/eqviz/internal/logging"
)

// DefaultMaxFileSize caps uploads when no limit is configured (10MB).
const DefaultMaxFileSize = 10 << 20

// ServiceConfig holds the upload settings the Service needs.
type ServiceConfig struct {
	MaxFileSize   int64
	MaxConcurrent int
	MaxWait       time.Duration
}

// Service provides the upload pipeline and history queries.
type Service struct {
	history     *HistoryStore
	limiter     *UploadLimiter
	maxFileSize int64
}

// NewService creates a Service over an existing history store.
func NewService(history *HistoryStore, cfg ServiceConfig) *Service {
	maxSize := cfg.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	return &Service{
		history:     history,
		limiter:     NewUploadLimiter(cfg.MaxConcurrent, cfg.MaxWait),
		maxFileSize: maxSize,
	}
}

// History exposes the underlying store.
func (s *Service) History() *HistoryStore { return s.history }

// Upload runs the full pipeline for one file: read, parse, validate,
// summarize, then record. Nothing is stored unless every step succeeds.
func (s *Service) Upload(ctx context.Context, userID, fileName string, r io.Reader) (DatasetRecord, error) {
	if err := CheckFileName(fileName); err != nil {
		return DatasetRecord{}, err
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return DatasetRecord{}, err
	}
	defer s.limiter.Release()

	logger := logging.WithFields(ctx,
		"user_id", userID,
		"file_name", fileName,
		"client_ip", GetIPAddressFromContext(ctx),
		"user_agent", GetUserAgentFromContext(ctx),
	)
	start := time.Now()

	raw, err := ReadUpload(r, s.maxFileSize)
	if err != nil {
		return DatasetRecord{}, err
	}

	summary, err := AnalyzeBytes(raw)
	if err != nil {
		logger.Info("upload rejected", "error", err)
		return DatasetRecord{}, err
	}

	rec, err := s.history.Record(ctx, userID, summary, raw, fileName)
	if err != nil {
		return DatasetRecord{}, err
	}

	logger.Info("upload recorded",
		"dataset_id", rec.ID,
		"rows", summary.TotalCount,
		"bytes", len(raw),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return rec, nil
}

// AnalyzeBytes parses, validates and summarizes raw CSV bytes.
func AnalyzeBytes(raw []byte) (Summary, error) {
	ds, err := ParseCSV(bytes.NewReader(raw))
	if err != nil {
		return Summary{}, err
	}
	return Analyze(ds)
}

// ListHistory returns the user's datasets, most recent first.
func (s *Service) ListHistory(ctx context.Context, userID string) ([]DatasetRecord, error) {
	return s.history.List(ctx, userID)
}

// GetDataset returns one of the user's datasets.
func (s *Service) GetDataset(ctx context.Context, userID, id string) (DatasetRecord, error) {
	rec, err := s.history.Get(ctx, userID, id)
	if err != nil {
		return DatasetRecord{}, fmt.Errorf("get dataset %s: %w", id, err)
	}
	return rec, nil
}

// GetDatasetCSV returns the raw bytes of one of the user's datasets.
func (s *Service) GetDatasetCSV(ctx context.Context, userID, id string) ([]byte, error) {
	data, err := s.history.Raw(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("get dataset csv %s: %w", id, err)
	}
	return data, nil
}

// UploadLimiterStatus returns the limiter state for monitoring.
func (s *Service) UploadLimiterStatus() UploadLimiterStatus {
	return s.limiter.Status()
}

// WaitForUploads blocks until in-flight uploads finish or ctx ends.
func (s *Service) WaitForUploads(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
