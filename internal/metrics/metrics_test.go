package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(nil)

	m.Hit("popularMovies")
	m.Hit("popularMovies")
	m.Miss("movieSearch")
	m.Retry("movieSearch")
	m.Evicted("movieDetails")
	m.Invalidated("favoriteMovies")
	m.Fetched("movieSearch", nil, 10*time.Millisecond)
	m.Fetched("movieSearch", errors.New("boom"), time.Millisecond)
	m.Mutated("addFavorite", nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.QueryHits.WithLabelValues("popularMovies")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueryMisses.WithLabelValues("movieSearch")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueryRetries.WithLabelValues("movieSearch")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueryEvictions.WithLabelValues("movieDetails")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueryInvalidations.WithLabelValues("favoriteMovies")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueryFetches.WithLabelValues("movieSearch", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueryFetches.WithLabelValues("movieSearch", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Mutations.WithLabelValues("addFavorite", "success")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.Hit("k")
		m.Miss("k")
		m.Retry("k")
		m.Evicted("k")
		m.Invalidated("k")
		m.Fetched("k", nil, time.Second)
		m.Mutated("n", nil)
	})
}

func TestNew_RegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()

	first := New(reg)
	second := New(reg)
	first.Hit("popularMovies")

	assert.Equal(t, 1.0, testutil.ToFloat64(second.QueryHits.WithLabelValues("popularMovies")),
		"second New must reuse the registered collectors")

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
