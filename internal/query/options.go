package query

import (
	"log/slog"
	"time"

	"github.com/vmunix/marquee/internal/events"
	"github.com/vmunix/marquee/internal/metrics"
)

// Defaults applied when neither the cache nor the query overrides them.
const (
	DefaultStaleTime       = 5 * time.Minute
	DefaultGCTime          = 24 * time.Hour
	DefaultRetry           = 1
	DefaultCleanupInterval = time.Minute

	maxRetryDelay = 30 * time.Second
)

// RetryDelayFunc returns how long to wait before retry number attempt
// (0 for the first retry).
type RetryDelayFunc func(attempt int) time.Duration

// ExponentialBackoff doubles from one second, capped at thirty.
func ExponentialBackoff(attempt int) time.Duration {
	if attempt >= 5 {
		return maxRetryDelay
	}
	d := time.Second << attempt
	if d > maxRetryDelay {
		return maxRetryDelay
	}
	return d
}

// ConstantDelay waits d between every attempt.
func ConstantDelay(d time.Duration) RetryDelayFunc {
	return func(int) time.Duration { return d }
}

type config struct {
	staleTime  time.Duration
	gcTime     time.Duration
	retry      int
	retryDelay RetryDelayFunc
	enabled    bool
}

func defaultConfig() config {
	return config{
		staleTime:  DefaultStaleTime,
		gcTime:     DefaultGCTime,
		retry:      DefaultRetry,
		retryDelay: ExponentialBackoff,
		enabled:    true,
	}
}

// Option configures a single query.
type Option func(*config)

// WithStaleTime sets how long fetched data counts as fresh.
func WithStaleTime(d time.Duration) Option {
	return func(c *config) {
		c.staleTime = d
	}
}

// WithGCTime sets how long an unused entry is kept before eviction.
func WithGCTime(d time.Duration) Option {
	return func(c *config) {
		c.gcTime = d
	}
}

// WithRetry sets how many extra attempts a failed fetch gets.
func WithRetry(n int) Option {
	return func(c *config) {
		if n < 0 {
			n = 0
		}
		c.retry = n
	}
}

// WithRetryDelay sets the wait between attempts.
func WithRetryDelay(fn RetryDelayFunc) Option {
	return func(c *config) {
		if fn != nil {
			c.retryDelay = fn
		}
	}
}

// Enabled gates the query. A disabled query never fetches and never
// returns data, whatever the cache holds.
func Enabled(enabled bool) Option {
	return func(c *config) {
		c.enabled = enabled
	}
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) CacheOption {
	return func(c *Cache) {
		c.log = log.With("component", "query")
	}
}

// WithMetrics records cache activity.
func WithMetrics(m *metrics.Metrics) CacheOption {
	return func(c *Cache) {
		c.metrics = m
	}
}

// WithBus publishes cache events on an existing bus.
func WithBus(bus *events.Bus) CacheOption {
	return func(c *Cache) {
		c.bus = bus
	}
}

// WithDefaults sets the options every query starts from.
func WithDefaults(opts ...Option) CacheOption {
	return func(c *Cache) {
		for _, opt := range opts {
			opt(&c.defaults)
		}
	}
}

// WithCleanupInterval sets how often Run prunes expired entries.
func WithCleanupInterval(d time.Duration) CacheOption {
	return func(c *Cache) {
		c.cleanupInterval = d
	}
}
