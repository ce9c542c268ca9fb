package mutation

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Risclover/toby/internal/querycache"
)

// State is the lifecycle of one mutation instance.
type State int

const (
	Pending State = iota
	Committed
	RolledBack
)

func (s State) String() string {
	switch s {
	case Committed:
		return "committed"
	case RolledBack:
		return "rolled_back"
	default:
		return "pending"
	}
}

// Spec describes one write.
//
// Patches are applied before Request runs and rolled back if it fails.
// On success Reconcile's patches are written as confirmed values, then the
// tags returned by Invalidates are invalidated.
type Spec[R any] struct {
	Name        string
	Request     func(ctx context.Context) (R, error)
	Patches     []querycache.Patch
	Invalidates func(result R) []querycache.Tag
	Reconcile   func(result R) []querycache.Patch
}

// Outcome reports how a mutation settled.
type Outcome struct {
	ID          string
	Name        string
	State       State
	Patched     int
	Invalidated int
	Duration    time.Duration
}

// Observer receives settled mutations. internal/metrics implements it.
type Observer interface {
	Settled(name string, state State, d time.Duration)
}

type noopObserver struct{}

func (noopObserver) Settled(string, State, time.Duration) {}

// Orchestrator runs mutations against one Store.
type Orchestrator struct {
	store    *querycache.Store
	log      zerolog.Logger
	obs      Observer
	inFlight atomic.Int64
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.log = l.With().Str("component", "mutation").Logger()
	}
}

// WithObserver sets the settlement observer.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) {
		if obs != nil {
			o.obs = obs
		}
	}
}

// New builds an Orchestrator for store.
func New(store *querycache.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store: store,
		log:   zerolog.Nop(),
		obs:   noopObserver{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Store returns the cache the orchestrator writes to.
func (o *Orchestrator) Store() *querycache.Store { return o.store }

// InFlight returns the number of pending mutations.
func (o *Orchestrator) InFlight() int { return int(o.inFlight.Load()) }

// Run executes spec. The optimistic patches are visible to readers before the
// request is issued. A failed request rolls them back in reverse order and
// returns the request error; no tags are invalidated and nothing is retried.
func Run[R any](ctx context.Context, o *Orchestrator, spec Spec[R]) (R, Outcome, error) {
	out := Outcome{ID: uuid.NewString(), Name: spec.Name, State: Pending}
	start := time.Now()
	log := o.log.With().Str("mutation", spec.Name).Str("mutation_id", out.ID).Logger()

	o.inFlight.Add(1)
	defer o.inFlight.Add(-1)

	patches := o.store.ApplyPatches(spec.Patches...)
	out.Patched = patches.Len()
	log.Debug().Int("patched", out.Patched).Msg("mutation started")

	var zero R
	if spec.Request == nil {
		patches.Rollback()
		out.State = RolledBack
		return zero, out, fmt.Errorf("%s: no request", spec.Name)
	}

	result, err := spec.Request(ctx)
	out.Duration = time.Since(start)
	if err != nil {
		patches.Rollback()
		out.State = RolledBack
		o.obs.Settled(spec.Name, out.State, out.Duration)
		log.Warn().Err(err).Int("reverted", out.Patched).Dur("took", out.Duration).Msg("mutation rolled back")
		return zero, out, fmt.Errorf("%s: %w", spec.Name, err)
	}

	patches.Commit()
	out.State = Committed
	if spec.Reconcile != nil {
		for _, p := range spec.Reconcile(result) {
			o.store.Write(p.Key, p.Fn)
		}
	}
	if spec.Invalidates != nil {
		out.Invalidated = len(o.store.Invalidate(spec.Invalidates(result)...))
	}
	o.obs.Settled(spec.Name, out.State, out.Duration)
	log.Debug().Int("invalidated", out.Invalidated).Dur("took", out.Duration).Msg("mutation committed")
	return result, out, nil
}
