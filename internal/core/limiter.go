package core

// limiter.go bounds how many submissions are validated at once. Each run
// holds the whole dataset in memory, so the HTTP service acquires a slot
// before reading an uploaded file and releases it after the report is built.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrTooManyValidations is returned when no slot frees up within the wait time.
var ErrTooManyValidations = errors.New("too many concurrent validations, please try again later")

const (
	DefaultMaxConcurrent = 5
	DefaultMaxWait       = 30 * time.Second
)

// ValidationLimiter is a counting semaphore with a bounded wait.
type ValidationLimiter struct {
	slots   chan struct{}
	maxWait time.Duration
	active  atomic.Int64
}

// NewValidationLimiter allows at most maxConcurrent runs; callers wait up to
// maxWait for a slot. Non-positive arguments fall back to the defaults.
func NewValidationLimiter(maxConcurrent int, maxWait time.Duration) *ValidationLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	return &ValidationLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire blocks until a slot is free, ctx is done, or maxWait elapses.
// Every successful Acquire must be paired with Release.
func (l *ValidationLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTooManyValidations
	}
}

// Release frees a slot taken by Acquire.
func (l *ValidationLimiter) Release() {
	l.active.Add(-1)
	<-l.slots
}

// LimiterStatus is a snapshot for health output and logs.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state.
func (l *ValidationLimiter) Status() LimiterStatus {
	return LimiterStatus{
		Active:        int(l.active.Load()),
		Available:     cap(l.slots) - len(l.slots),
		MaxConcurrent: cap(l.slots),
	}
}

// WaitForDrain blocks until no validation is running or ctx is done.
func (l *ValidationLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for l.active.Load() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
