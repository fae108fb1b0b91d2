// Package metrics holds the Prometheus collectors for query cache and
// mutation activity.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "marquee"

// Metrics holds all the cache metrics. The zero value is not usable; a nil
// *Metrics is, and records nothing.
type Metrics struct {
	QueryHits          *prometheus.CounterVec
	QueryMisses        *prometheus.CounterVec
	QueryFetches       *prometheus.CounterVec
	QueryRetries       *prometheus.CounterVec
	QueryEvictions     *prometheus.CounterVec
	QueryInvalidations *prometheus.CounterVec
	FetchDuration      *prometheus.HistogramVec

	Mutations *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered, which tests use to stay isolated.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		QueryHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_cache_hits_total",
			Help:      "Accesses served from fresh cached data",
		}, []string{"kind"}),

		QueryMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_cache_misses_total",
			Help:      "Accesses that found no data or stale data",
		}, []string{"kind"}),

		QueryFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_fetches_total",
			Help:      "Completed fetches, after retries",
		}, []string{"kind", "status"}),

		QueryRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_fetch_retries_total",
			Help:      "Fetch attempts beyond the first",
		}, []string{"kind"}),

		QueryEvictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_cache_evictions_total",
			Help:      "Entries removed after their gc horizon",
		}, []string{"kind"}),

		QueryInvalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_invalidations_total",
			Help:      "Entries marked stale by invalidation",
		}, []string{"kind"}),

		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_fetch_duration_seconds",
			Help:      "Fetch duration including retries",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind", "status"}),

		Mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Settled mutations",
		}, []string{"name", "status"}),
	}

	if reg != nil {
		m.QueryHits = registerOrGet(reg, m.QueryHits)
		m.QueryMisses = registerOrGet(reg, m.QueryMisses)
		m.QueryFetches = registerOrGet(reg, m.QueryFetches)
		m.QueryRetries = registerOrGet(reg, m.QueryRetries)
		m.QueryEvictions = registerOrGet(reg, m.QueryEvictions)
		m.QueryInvalidations = registerOrGet(reg, m.QueryInvalidations)
		m.FetchDuration = registerOrGet(reg, m.FetchDuration)
		m.Mutations = registerOrGet(reg, m.Mutations)
	}

	return m
}

// registerOrGet registers c, returning the existing collector if one with
// the same descriptor is already registered.
func registerOrGet[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

func (m *Metrics) Hit(kind string) {
	if m != nil {
		m.QueryHits.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) Miss(kind string) {
	if m != nil {
		m.QueryMisses.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) Retry(kind string) {
	if m != nil {
		m.QueryRetries.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) Evicted(kind string) {
	if m != nil {
		m.QueryEvictions.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) Invalidated(kind string) {
	if m != nil {
		m.QueryInvalidations.WithLabelValues(kind).Inc()
	}
}

// Fetched records a completed fetch and how long it took.
func (m *Metrics) Fetched(kind string, err error, d time.Duration) {
	if m == nil {
		return
	}
	status := statusLabel(err)
	m.QueryFetches.WithLabelValues(kind, status).Inc()
	m.FetchDuration.WithLabelValues(kind, status).Observe(d.Seconds())
}

// Mutated records a settled mutation.
func (m *Metrics) Mutated(name string, err error) {
	if m != nil {
		m.Mutations.WithLabelValues(name, statusLabel(err)).Inc()
	}
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
