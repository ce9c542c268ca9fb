package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Risclover/toby/internal/querycache"
)

// Health is the connection status shown in the footer.
type Health struct {
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // fetch failures since the last success
}

// IsOffline returns true when the API has been unreachable for multiple fetches.
func (h Health) IsOffline() bool {
	return h.ConsecutiveFailures >= 2
}

// HealthTracker records fetch outcomes. It implements querycache.Observer so
// it sees every load the cache runs, background refetches included.
type HealthTracker struct {
	querycache.NoopObserver

	mu     sync.RWMutex
	health Health
	now    func() time.Time
}

// NewHealthTracker returns a tracker using now for timestamps; nil means
// time.Now.
func NewHealthTracker(now func() time.Time) *HealthTracker {
	if now == nil {
		now = time.Now
	}
	return &HealthTracker{now: now}
}

// Fetched records one load. Cancellations from shutdown are ignored.
func (t *HealthTracker) Fetched(_ string, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	t.Update(err)
}

// Update records an outcome. When err is non-nil the failure count grows and
// the error is kept for display; success clears both.
func (t *HealthTracker) Update(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.health.LastUpdated = t.now()
	if err != nil {
		t.health.LastError = err
		t.health.ConsecutiveFailures++
		return
	}
	t.health.LastError = nil
	t.health.ConsecutiveFailures = 0
}

// Snapshot returns a copy of the current health.
func (t *HealthTracker) Snapshot() Health {
	t.mu.RLock()
	defer t.mu.RUnlock()

	h := t.health
	if t.health.LastError != nil {
		h.LastError = fmt.Errorf("%w", t.health.LastError)
	}
	return h
}
