package core

// upload_limiter.go bounds how many uploads are processed at once.
//
// Each upload holds the raw file in memory while it is parsed and summarized,
// so the number of parallel uploads bounds memory use. When every slot is
// busy, callers wait up to maxWait before failing with ErrTooManyUploads.
// WaitForDrain lets shutdown wait for in-flight uploads.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrTooManyUploads is returned when no slot frees up within maxWait.
var ErrTooManyUploads = errors.New("too many uploads in progress, please try again later")

// DefaultMaxConcurrentUploads is the default limit for parallel uploads.
const DefaultMaxConcurrentUploads = 5

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 30 * time.Second

// UploadLimiter is a counting semaphore with a bounded wait.
type UploadLimiter struct {
	slots   chan struct{}
	maxWait time.Duration
	active  atomic.Int64
}

// NewUploadLimiter creates a limiter allowing maxConcurrent simultaneous uploads.
func NewUploadLimiter(maxConcurrent int, maxWait time.Duration) *UploadLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentUploads
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	return &UploadLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire takes a slot. The caller MUST call Release when done.
// Returns ErrTooManyUploads on timeout, or ctx.Err() if ctx ends first.
func (l *UploadLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTooManyUploads
	}
}

// Release frees a slot taken by Acquire.
func (l *UploadLimiter) Release() {
	l.active.Add(-1)
	<-l.slots
}

// ActiveCount returns the number of uploads holding a slot.
func (l *UploadLimiter) ActiveCount() int {
	return int(l.active.Load())
}

// WaitForDrain blocks until no upload holds a slot or ctx ends.
func (l *UploadLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for l.ActiveCount() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// UploadLimiterStatus is a snapshot of the limiter's state.
type UploadLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state.
func (l *UploadLimiter) Status() UploadLimiterStatus {
	return UploadLimiterStatus{
		Active:        l.ActiveCount(),
		Available:     cap(l.slots) - len(l.slots),
		MaxConcurrent: cap(l.slots),
	}
}
