// Package metrics exports cache and mutation outcomes as Prometheus series.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Risclover/toby/internal/mutation"
)

const namespace = "toby"

// Metrics implements querycache.Observer and mutation.Observer.
type Metrics struct {
	registry *prometheus.Registry

	CacheHits     *prometheus.CounterVec
	CacheMisses   *prometheus.CounterVec
	Fetches       *prometheus.CounterVec
	Evictions     *prometheus.CounterVec
	Invalidations *prometheus.CounterVec
	Mutations     *prometheus.CounterVec
	MutationTime  *prometheus.HistogramVec
}

// New registers every series on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits",
		}, []string{"endpoint"}),
		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses",
		}, []string{"endpoint"}),
		Fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "fetches",
		}, []string{"endpoint", "result"}),
		Evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "evictions",
		}, []string{"endpoint", "reason"}),
		Invalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "invalidations",
		}, []string{"endpoint"}),
		Mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mutation",
			Name:      "settled",
		}, []string{"mutation", "state"}),
		MutationTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "mutation",
			Name:      "duration_seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"mutation"}),
	}
	m.registry.MustRegister(
		m.CacheHits, m.CacheMisses, m.Fetches, m.Evictions,
		m.Invalidations, m.Mutations, m.MutationTime,
	)
	return m
}

func (m *Metrics) Hit(endpoint string)  { m.CacheHits.WithLabelValues(endpoint).Inc() }
func (m *Metrics) Miss(endpoint string) { m.CacheMisses.WithLabelValues(endpoint).Inc() }

func (m *Metrics) Fetched(endpoint string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Fetches.WithLabelValues(endpoint, result).Inc()
}

func (m *Metrics) Evicted(endpoint, reason string) {
	m.Evictions.WithLabelValues(endpoint, reason).Inc()
}

func (m *Metrics) Invalidated(endpoint string) {
	m.Invalidations.WithLabelValues(endpoint).Inc()
}

// Settled records a finished mutation.
func (m *Metrics) Settled(name string, state mutation.State, took time.Duration) {
	m.Mutations.WithLabelValues(name, state.String()).Inc()
	m.MutationTime.WithLabelValues(name).Observe(took.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string, log zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()

	log.Info().Str("addr", addr).Msg("serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
