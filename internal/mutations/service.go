package mutations

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/Risclover/toby/internal/household"
	"github.com/Risclover/toby/internal/mutation"
	"github.com/Risclover/toby/internal/propagate"
	"github.com/Risclover/toby/internal/querycache"
)

// Service exposes every write endpoint of the household API. Each method is
// one mutation: optimistic patches from the propagation table, the request,
// then rollback or invalidation.
type Service struct {
	exec   household.Executor
	orch   *mutation.Orchestrator
	rules  *propagate.Registry
	now    func() time.Time
	log    zerolog.Logger
	tempID atomic.Int64
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the clock used for optimistic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRules replaces the default propagation table.
func WithRules(r *propagate.Registry) Option {
	return func(s *Service) {
		if r != nil {
			s.rules = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) {
		s.log = l.With().Str("component", "mutations").Logger()
	}
}

// New builds a Service issuing requests through exec and patching the store
// behind orch.
func New(exec household.Executor, orch *mutation.Orchestrator, opts ...Option) *Service {
	s := &Service{
		exec: exec,
		orch: orch,
		now:  time.Now,
		log:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rules == nil {
		s.rules = propagate.Default(s.log)
	}
	return s
}

// Store returns the cache the service patches.
func (s *Service) Store() *querycache.Store { return s.orch.Store() }

// nextTempID returns a fresh negative id for rows that exist only locally
// until the server answers.
func (s *Service) nextTempID() int64 {
	return -s.tempID.Add(1)
}

func (s *Service) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

// call issues req and decodes the response into an R.
func call[R any](s *Service, req household.Request) func(ctx context.Context) (R, error) {
	return func(ctx context.Context) (R, error) {
		var out R
		err := s.exec.Do(ctx, req, &out)
		return out, err
	}
}

// send issues req and discards any response body.
func (s *Service) send(req household.Request) func(ctx context.Context) (struct{}, error) {
	return func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.exec.Do(ctx, req, nil)
	}
}

// requireIDs rejects ids the server never issued. A zero id would also build
// a tag that matches every entry of its type.
func requireIDs(ids map[string]int64) error {
	var errs []error
	for name, id := range ids {
		if id <= 0 {
			errs = append(errs, fmt.Errorf("%w: %s must be a saved id, got %d", household.ErrInvalidInput, name, id))
		}
	}
	return errors.Join(errs...)
}

func fixed[R any](tags ...querycache.Tag) func(R) []querycache.Tag {
	return func(R) []querycache.Tag { return tags }
}

func patches[In any](s *Service, kind propagate.Kind, in In) []querycache.Patch {
	return propagate.Patches(s.rules, s.Store(), kind, in)
}
