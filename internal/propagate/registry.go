package propagate

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Risclover/toby/internal/querycache"
)

// Kind names a mutation whose optimistic change fans out to several cache
// entries.
type Kind string

// Target is one cache entry patched for a mutation kind. Key reports false
// when the entry cannot be located, for example when no household id was
// supplied and none is cached; the target is then skipped.
type Target[In any] struct {
	Name  string
	Key   func(s *querycache.Store, in In) (querycache.Key, bool)
	Apply func(in In) func(any) any
}

type rule[In any] struct {
	targets []Target[In]
}

// Registry is the propagation table: for each Kind, the ordered list of
// entries that receive the same change.
type Registry struct {
	mu    sync.RWMutex
	rules map[Kind]any
	log   zerolog.Logger
}

// NewRegistry returns an empty table. Most callers want Default.
func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		rules: make(map[Kind]any),
		log:   log.With().Str("component", "propagate").Logger(),
	}
}

// Register appends targets to kind. A kind keeps the input type it was first
// registered with; registering it again with another type panics.
func Register[In any](r *Registry, kind Kind, targets ...Target[In]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.rules[kind]
	if !ok {
		r.rules[kind] = &rule[In]{targets: append([]Target[In](nil), targets...)}
		return
	}
	ru, ok := existing.(*rule[In])
	if !ok {
		panic(fmt.Sprintf("propagate: kind %q already registered with %T", kind, existing))
	}
	ru.targets = append(ru.targets, targets...)
}

// Patches resolves kind's targets for in. Unresolvable targets are skipped,
// never reported as errors. An unknown kind yields no patches.
func Patches[In any](r *Registry, s *querycache.Store, kind Kind, in In) []querycache.Patch {
	r.mu.RLock()
	raw, ok := r.rules[kind]
	var targets []Target[In]
	if ok {
		ru, typed := raw.(*rule[In])
		if !typed {
			r.mu.RUnlock()
			panic(fmt.Sprintf("propagate: kind %q takes %T, got %T", kind, raw, in))
		}
		targets = append(targets, ru.targets...)
	}
	r.mu.RUnlock()

	if !ok {
		r.log.Warn().Str("kind", string(kind)).Msg("no propagation rule")
		return nil
	}
	patches := make([]querycache.Patch, 0, len(targets))
	for _, t := range targets {
		key, ok := t.Key(s, in)
		if !ok {
			r.log.Debug().Str("kind", string(kind)).Str("target", t.Name).Msg("propagation target skipped")
			continue
		}
		patches = append(patches, querycache.Patch{Key: key, Fn: t.Apply(in)})
	}
	return patches
}

// Targets returns the target names registered for kind, in order.
func (r *Registry) Targets(kind Kind) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	raw, ok := r.rules[kind]
	if !ok {
		return nil
	}
	named, ok := raw.(interface{ names() []string })
	if !ok {
		return nil
	}
	return named.names()
}

// Kinds lists every registered kind, sorted.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Kind, 0, len(r.rules))
	for k := range r.rules {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (ru *rule[In]) names() []string {
	out := make([]string, len(ru.targets))
	for i, t := range ru.targets {
		out[i] = t.Name
	}
	return out
}
