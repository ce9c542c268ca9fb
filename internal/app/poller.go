package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Risclover/toby/internal/endpoints"
	"github.com/Risclover/toby/internal/querycache"
	"github.com/Risclover/toby/internal/state"
)

const (
	defaultPollInterval = 30 * time.Second
	maxBackoff          = 30 * time.Second
)

// Poller marks the household's board entries stale on a cadence. Subscribed
// entries refetch in the background and keep showing the old value until the
// new one lands.
type Poller struct {
	store       *querycache.Store
	health      *state.HealthTracker
	householdID int64
	interval    time.Duration
	log         zerolog.Logger
}

// NewPoller builds a poller; interval <= 0 uses the default.
func NewPoller(store *querycache.Store, health *state.HealthTracker, householdID int64, interval time.Duration, log zerolog.Logger) *Poller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Poller{
		store:       store,
		health:      health,
		householdID: householdID,
		interval:    interval,
		log:         log.With().Str("component", "poller").Logger(),
	}
}

// Start launches the background goroutine. It returns immediately.
func (p *Poller) Start(ctx context.Context) {
	go func() {
		timer := time.NewTimer(p.next())
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
			p.Refresh()
			timer.Reset(p.next())
		}
	}()
}

// Refresh invalidates the polled tags now and returns the affected keys.
func (p *Poller) Refresh() []querycache.Key {
	keys := p.store.Invalidate(pollTags(p.householdID)...)
	p.log.Debug().Int("entries", len(keys)).Msg("poll")
	return keys
}

func (p *Poller) next() time.Duration {
	failures := 0
	if p.health != nil {
		failures = p.health.Snapshot().ConsecutiveFailures
	}
	wait := calculateBackoff(failures, p.interval)
	if failures > 0 {
		p.log.Warn().Int("failures", failures).Dur("wait", wait).Msg("backing off")
	}
	return wait
}

// pollTags covers what the board shows. The household and mood entries are
// included so a failed first load is retried on the next tick.
func pollTags(householdID int64) []querycache.Tag {
	return []querycache.Tag{
		querycache.EntityTag(endpoints.TagHousehold, householdID),
		querycache.TypeTag(endpoints.TagMood),
		querycache.HouseholdTag(endpoints.TagTodoList, householdID),
		querycache.HouseholdTag(endpoints.TagShoppingList, householdID),
		querycache.ListTag(endpoints.TagAnnouncement),
	}
}

// calculateBackoff doubles the interval per consecutive failure, capped at
// maxBackoff. An interval already above the cap is used as is.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 || base >= maxBackoff {
		return base
	}
	wait := base
	for i := 0; i < failures; i++ {
		wait *= 2
		if wait >= maxBackoff {
			return maxBackoff
		}
	}
	return wait
}
