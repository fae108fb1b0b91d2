package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/vmunix/marquee/internal/catalog"
	"github.com/vmunix/marquee/internal/config"
	"github.com/vmunix/marquee/internal/events"
	"github.com/vmunix/marquee/internal/favorites"
	"github.com/vmunix/marquee/internal/metrics"
	"github.com/vmunix/marquee/internal/movie"
	"github.com/vmunix/marquee/internal/query"
	"github.com/vmunix/marquee/internal/store"
	"github.com/vmunix/marquee/internal/tmdb"
)

// app holds everything a command needs.
type app struct {
	cfg       *config.Config
	log       *slog.Logger
	registry  *prometheus.Registry
	cache     *query.Cache
	store     store.Store
	catalog   *catalog.Service
	favorites *favorites.Service

	cancel context.CancelFunc
	group  *errgroup.Group
}

// loadConfig loads path, or the discovered config file. With no file at
// all, defaults and TMDB_API_KEY are used. Dotenv files in the working
// directory are applied first.
func loadConfig(path string) (*config.Config, error) {
	if err := config.LoadEnvFiles(); err != nil {
		return nil, err
	}
	if path == "" {
		found, err := config.Discover()
		switch {
		case errors.Is(err, config.ErrNotFound):
			cfg := config.Default()
			if errs := cfg.Validate(); len(errs) > 0 {
				return nil, &config.ConfigError{Errors: errs}
			}
			return cfg, nil
		case err != nil:
			return nil, err
		}
		path = found
	}
	return config.Load(path)
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// cacheOptions turns the [cache] section into cache defaults.
func cacheOptions(cfg config.CacheConfig) []query.Option {
	opts := []query.Option{
		query.WithStaleTime(cfg.StaleTime),
		query.WithGCTime(cfg.GCTime),
		query.WithRetry(cfg.Retry),
	}
	if cfg.RetryDelay > 0 {
		opts = append(opts, query.WithRetryDelay(query.ConstantDelay(cfg.RetryDelay)))
	}
	return opts
}

// kindOptions turns [cache.kinds.<kind>] tables into catalog options.
// Unknown kinds are reported and skipped.
func kindOptions(kinds map[string]config.KindConfig, log *slog.Logger) []catalog.Option {
	var out []catalog.Option
	for name, k := range kinds {
		kind := query.Kind(name)
		if !slices.Contains(catalog.Kinds(), kind) {
			log.Warn("ignoring overrides for unknown query kind", "kind", name)
			continue
		}
		var opts []query.Option
		if k.StaleTime > 0 {
			opts = append(opts, query.WithStaleTime(k.StaleTime))
		}
		if k.GCTime > 0 {
			opts = append(opts, query.WithGCTime(k.GCTime))
		}
		if k.Retry != nil {
			opts = append(opts, query.WithRetry(*k.Retry))
		}
		out = append(out, catalog.WithKindOptions(kind, opts...))
	}
	return out
}

// newApp wires the provider, cache, store and services, and starts the
// cache janitor. Close stops it.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	log := newLogger(cfg.Log)
	reg := prometheus.NewRegistry()

	if cfg.Favorites.Driver != store.DriverMemory {
		if err := os.MkdirAll(filepath.Dir(cfg.Favorites.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	st, err := store.Open(ctx, cfg.Favorites.Driver, cfg.Favorites.Path)
	if err != nil {
		return nil, fmt.Errorf("open favorites store: %w", err)
	}

	bus := events.NewBus(log)
	cache := query.New(
		query.WithLogger(log),
		query.WithMetrics(metrics.New(reg)),
		query.WithBus(bus),
		query.WithDefaults(cacheOptions(cfg.Cache)...),
		query.WithCleanupInterval(cfg.Cache.CleanupInterval),
	)

	provider := tmdb.NewClient(cfg.TMDB.APIKey,
		tmdb.WithBaseURL(cfg.TMDB.BaseURL),
		tmdb.WithLanguage(cfg.TMDB.Language),
		tmdb.WithHTTPClient(&http.Client{Timeout: cfg.TMDB.Timeout}),
		tmdb.WithLogger(log),
	)

	catOpts := []catalog.Option{
		catalog.WithLogger(log),
		catalog.WithNormalizer(movie.Normalizer{ImageBase: cfg.TMDB.ImageBase, Region: cfg.TMDB.Region}),
	}
	catOpts = append(catOpts, kindOptions(cfg.Cache.Kinds, log)...)

	runCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(runCtx)

	a := &app{
		cfg:      cfg,
		log:      log,
		registry: reg,
		cache:    cache,
		store:    st,
		catalog:  catalog.New(provider, cache, catOpts...),
		favorites: favorites.New(st, cache,
			favorites.WithCommitDelay(cfg.Favorites.CommitDelay),
			favorites.WithLogger(log),
		),
		cancel: cancel,
		group:  g,
	}

	g.Go(func() error { return cache.Run(gctx) })
	g.Go(func() error { return a.traceEvents(gctx, bus.SubscribeAll(64)) })
	return a, nil
}

// traceEvents logs cache activity at debug level until ctx is done or the
// bus closes.
func (a *app) traceEvents(ctx context.Context, ch <-chan events.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-ch:
			if !ok {
				return nil
			}
			switch ev := e.(type) {
			case *events.QueryUpdated:
				a.log.Debug("query updated", "kind", ev.Kind, "status", ev.Status, "fetching", ev.IsFetching, "error", ev.Error)
			case *events.MutationSettled:
				a.log.Debug("mutation settled", "name", ev.Name, "error", ev.Error)
			default:
				a.log.Debug(e.EventType(), "topic", e.Topic())
			}
		}
	}
}

// Close stops background work and releases the store.
func (a *app) Close() error {
	a.cancel()
	err := a.group.Wait()
	if n := a.cache.Bus().Dropped(); n > 0 {
		a.log.Debug("events dropped by slow subscribers", "count", n)
	}
	if cerr := a.cache.Bus().Close(); cerr != nil && err == nil {
		err = cerr
	}
	if cerr := a.store.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
