// Package favorites keeps the user's favorite movies in sync between the
// query cache and a durable store.
package favorites

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vmunix/marquee/internal/movie"
	"github.com/vmunix/marquee/internal/query"
	"github.com/vmunix/marquee/internal/store"
)

const (
	// Kind is the query kind of the favorites list.
	Kind query.Kind = "favoriteMovies"

	// StorageKey is where the list is persisted.
	StorageKey = "favoriteMovies"

	DefaultCommitDelay = 300 * time.Millisecond
)

// Key is the cache key of the favorites list.
var Key = query.NewKey(Kind)

// Service adds and removes favorites. Changes are applied only after the
// commit succeeds, then persisted and the cached list invalidated.
type Service struct {
	store       store.Store
	cache       *query.Cache
	log         *slog.Logger
	commitDelay time.Duration

	// items is the last list read or written. dirty means the store
	// rejected the last write and items holds changes it lacks.
	mu    sync.Mutex
	items []movie.Detail
	dirty bool

	add    *query.Mutation[movie.Detail, movie.Detail]
	remove *query.Mutation[string, string]
}

// Option configures a Service.
type Option func(*Service)

// WithCommitDelay sets how long a commit takes before it is applied.
func WithCommitDelay(d time.Duration) Option {
	return func(s *Service) {
		s.commitDelay = d
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		s.log = log
	}
}

// New creates a favorites service.
func New(st store.Store, cache *query.Cache, opts ...Option) *Service {
	s := &Service{
		store:       st,
		cache:       cache,
		log:         slog.Default(),
		commitDelay: DefaultCommitDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "favorites")

	s.add = query.NewMutation(cache, "addFavorite", s.commitAdd, s.applyAdd)
	s.remove = query.NewMutation(cache, "removeFavorite", s.commitRemove, s.applyRemove)
	return s
}

// List returns the favorites sorted by descending year.
func (s *Service) List(ctx context.Context) ([]movie.Detail, error) {
	r, err := query.Fetch(ctx, s.cache, Key, s.read)
	if err != nil {
		return nil, err
	}
	return r.Data, nil
}

// Contains reports whether id is a favorite.
func (s *Service) Contains(ctx context.Context, id string) (bool, error) {
	items, err := s.List(ctx)
	if err != nil {
		return false, err
	}
	for _, d := range items {
		if d.ID == id {
			return true, nil
		}
	}
	return false, nil
}

// Add commits d as a favorite. Adding an existing favorite is a no-op.
func (s *Service) Add(ctx context.Context, d movie.Detail) error {
	if d.ID == "" {
		return ErrMissingID
	}
	_, err := s.add.Run(ctx, d)
	return err
}

// Remove commits the removal of id. Removing an unknown id is a no-op.
func (s *Service) Remove(ctx context.Context, id string) error {
	if id == "" {
		return ErrMissingID
	}
	_, err := s.remove.Run(ctx, id)
	return err
}

// Refresh marks the cached list stale.
func (s *Service) Refresh() {
	s.cache.Invalidate(Key)
}

func (s *Service) IsAdding() bool   { return s.add.IsPending() }
func (s *Service) IsRemoving() bool { return s.remove.IsPending() }

// read is the list's fetcher. Every refetch reads the store.
func (s *Service) read(ctx context.Context) ([]movie.Detail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return movie.SortByYear(s.currentLocked(ctx)), nil
}

// currentLocked returns the stored list, or the last known one when the
// store is behind or unreadable. Caller holds mu.
func (s *Service) currentLocked(ctx context.Context) []movie.Detail {
	if s.dirty {
		return s.items
	}
	var items []movie.Detail
	if _, err := s.store.Read(ctx, StorageKey, &items); err != nil {
		s.log.Warn("favorites unreadable, using last known list", "count", len(s.items), "error", err)
		return s.items
	}
	s.items = items
	return items
}

func (s *Service) commit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrMutationRejected, err)
	}
	if s.commitDelay <= 0 {
		return nil
	}
	timer := time.NewTimer(s.commitDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrMutationRejected, ctx.Err())
	}
}

func (s *Service) commitAdd(ctx context.Context, d movie.Detail) (movie.Detail, error) {
	return d, s.commit(ctx)
}

func (s *Service) commitRemove(ctx context.Context, id string) (string, error) {
	return id, s.commit(ctx)
}

func (s *Service) applyAdd(ctx context.Context, _ movie.Detail, d movie.Detail) {
	s.update(ctx, func(items []movie.Detail) []movie.Detail {
		for _, existing := range items {
			if existing.ID == d.ID {
				return items
			}
		}
		return append(items, d)
	})
}

func (s *Service) applyRemove(ctx context.Context, _ string, id string) {
	s.update(ctx, func(items []movie.Detail) []movie.Detail {
		out := make([]movie.Detail, 0, len(items))
		for _, d := range items {
			if d.ID != id {
				out = append(out, d)
			}
		}
		return out
	})
}

// update applies change to the current list, persists the result and
// invalidates the cached list. An empty list is deleted from the store. A
// failed write keeps the change in memory until a later write succeeds.
func (s *Service) update(ctx context.Context, change func([]movie.Detail) []movie.Detail) {
	ctx = context.WithoutCancel(ctx)

	s.mu.Lock()
	s.items = change(s.currentLocked(ctx))
	var err error
	if len(s.items) == 0 {
		err = s.store.Delete(ctx, StorageKey)
	} else {
		err = s.store.Write(ctx, StorageKey, append([]movie.Detail{}, s.items...))
	}
	s.dirty = err != nil
	if err != nil {
		s.log.Warn("failed to persist favorites", "count", len(s.items), "error", err)
	}
	s.mu.Unlock()

	s.cache.Invalidate(Key)
}
