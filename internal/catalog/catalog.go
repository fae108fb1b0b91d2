// Package catalog serves the movie queries of the browsing UI through the
// query cache: popular, search, details, genre listings and the paginated
// feed.
package catalog

//go:generate mockgen -source=catalog.go -destination=mocks/mock_provider.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/vmunix/marquee/internal/movie"
	"github.com/vmunix/marquee/internal/query"
	"github.com/vmunix/marquee/internal/tmdb"
)

// ErrUnknownKind is returned by Refetch for a kind the catalog does not serve.
var ErrUnknownKind = errors.New("unknown query kind")

// Provider is the remote movie metadata source. *tmdb.Client implements it.
type Provider interface {
	SearchMovies(ctx context.Context, query string) ([]tmdb.Movie, error)
	PopularMovies(ctx context.Context, page int) (*tmdb.MovieList, error)
	DiscoverByGenre(ctx context.Context, genreID int) (*tmdb.MovieList, error)
	GetMovieDetails(ctx context.Context, id string) (*tmdb.MovieDetails, error)
	Genres(ctx context.Context) ([]tmdb.Genre, error)
}

// kindEntry binds a kind to its key and a loader that populates it.
type kindEntry struct {
	key  func(arg string) query.Key
	load func(ctx context.Context, arg string) error
}

// Service answers catalog queries from the cache, fetching from the
// provider when needed.
type Service struct {
	provider  Provider
	cache     *query.Cache
	norm      movie.Normalizer
	log       *slog.Logger
	overrides map[query.Kind][]query.Option
	registry  map[query.Kind]kindEntry
	infinite  *query.Sequencer[movie.Movie]

	// folded name -> suggested genre, "" when nothing was close enough
	suggestions *lru.Cache[string, string]
}

const suggestionCacheSize = 256

// Option configures a Service.
type Option func(*Service)

// WithNormalizer replaces the default normalizer.
func WithNormalizer(n movie.Normalizer) Option {
	return func(s *Service) {
		s.norm = n
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		s.log = log
	}
}

// WithKindOptions adds query options for one kind, applied after the
// kind's defaults.
func WithKindOptions(kind query.Kind, opts ...query.Option) Option {
	return func(s *Service) {
		s.overrides[kind] = append(s.overrides[kind], opts...)
	}
}

// New creates a catalog over provider.
func New(provider Provider, cache *query.Cache, opts ...Option) *Service {
	s := &Service{
		provider:  provider,
		cache:     cache,
		norm:      movie.NewNormalizer(),
		log:       slog.Default(),
		overrides: make(map[query.Kind][]query.Option),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "catalog")
	s.suggestions, _ = lru.New[string, string](suggestionCacheSize)

	s.infinite = query.NewSequencer(cache, query.NewKey(KindInfinite), s.popularPage,
		movie.Movie.Identity, s.options(KindInfinite)...)

	s.registry = map[query.Kind]kindEntry{
		KindPopular: {
			key:  func(string) query.Key { return query.NewKey(KindPopular) },
			load: func(ctx context.Context, _ string) error { _, err := s.Popular(ctx); return err },
		},
		KindSearch: {
			key:  func(q string) query.Key { return query.NewKey(KindSearch, q) },
			load: func(ctx context.Context, q string) error { _, err := s.Search(ctx, q); return err },
		},
		KindDetails: {
			key:  func(id string) query.Key { return query.NewKey(KindDetails, id) },
			load: func(ctx context.Context, id string) error { _, err := s.Details(ctx, id); return err },
		},
		KindByGenre: {
			key:  func(name string) query.Key { return query.NewKey(KindByGenre, name) },
			load: func(ctx context.Context, name string) error { _, err := s.ByGenre(ctx, name); return err },
		},
		KindGenres: {
			key:  func(string) query.Key { return query.NewKey(KindGenres) },
			load: func(ctx context.Context, _ string) error { _, err := s.Genres(ctx); return err },
		},
		KindGenreList: {
			key:  func(string) query.Key { return query.NewKey(KindGenreList) },
			load: func(ctx context.Context, _ string) error { _, err := s.genreList(ctx); return err },
		},
		KindInfinite: {
			key: func(string) query.Key { return s.infinite.Key() },
			load: func(ctx context.Context, _ string) error {
				s.infinite.Reset()
				return s.infinite.Load(ctx)
			},
		},
	}
	return s
}

func (s *Service) options(kind query.Kind, extra ...query.Option) []query.Option {
	opts := append([]query.Option(nil), kindDefaults[kind]...)
	opts = append(opts, s.overrides[kind]...)
	return append(opts, extra...)
}

// reader is query.Fetch or query.Load.
type reader[T any] func(context.Context, *query.Cache, query.Key, query.Fetcher[T], ...query.Option) (query.Result[T], error)

// Popular returns the first page's top movies, newest first.
func (s *Service) Popular(ctx context.Context) ([]movie.Movie, error) {
	return s.popular(ctx, query.Fetch[[]movie.Movie])
}

func (s *Service) popular(ctx context.Context, read reader[[]movie.Movie]) ([]movie.Movie, error) {
	r, err := read(ctx, s.cache, query.NewKey(KindPopular), func(ctx context.Context) ([]movie.Movie, error) {
		list, err := s.provider.PopularMovies(ctx, 1)
		if err != nil {
			return nil, fmt.Errorf("popular movies: %w", err)
		}
		return movie.SortByYear(s.norm.Summaries(results(list), popularLimit)), nil
	}, s.options(KindPopular)...)
	return r.Data, err
}

// Search returns matches for q, newest first. Queries shorter than three
// characters do not run and return nil.
func (s *Service) Search(ctx context.Context, q string) ([]movie.Movie, error) {
	enabled := utf8.RuneCountInString(q) >= minSearchLength
	r, err := query.Fetch(ctx, s.cache, query.NewKey(KindSearch, q), func(ctx context.Context) ([]movie.Movie, error) {
		found, err := s.provider.SearchMovies(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("search %q: %w", q, err)
		}
		return movie.SortByYear(s.norm.Summaries(found, 0)), nil
	}, s.options(KindSearch, query.Enabled(enabled))...)
	return r.Data, err
}

// Details returns the full record for id, or nil when id is empty.
func (s *Service) Details(ctx context.Context, id string) (*movie.Detail, error) {
	r, err := query.Fetch(ctx, s.cache, query.NewKey(KindDetails, id), s.detailsFetcher(id),
		s.options(KindDetails, query.Enabled(id != ""))...)
	if err != nil {
		return nil, err
	}
	if !r.HasData {
		return nil, nil
	}
	return &r.Data, nil
}

// PrefetchDetails warms the details of ids in the background.
func (s *Service) PrefetchDetails(ctx context.Context, ids ...string) {
	for _, id := range ids {
		if id == "" {
			continue
		}
		query.Prefetch(ctx, s.cache, query.NewKey(KindDetails, id), s.detailsFetcher(id), s.options(KindDetails)...)
	}
}

func (s *Service) detailsFetcher(id string) query.Fetcher[movie.Detail] {
	return func(ctx context.Context) (movie.Detail, error) {
		d, err := s.provider.GetMovieDetails(ctx, id)
		if err != nil {
			return movie.Detail{}, fmt.Errorf("movie details %s: %w", id, err)
		}
		if d == nil {
			return movie.Detail{}, fmt.Errorf("movie details %s: %w", id, tmdb.ErrNotFound)
		}
		return s.norm.Details(id, *d), nil
	}
}

// ByGenre returns popular movies of the genre called name, newest first.
// An unknown genre yields an empty list.
func (s *Service) ByGenre(ctx context.Context, name string) ([]movie.Movie, error) {
	r, err := query.Fetch(ctx, s.cache, query.NewKey(KindByGenre, name), func(ctx context.Context) ([]movie.Movie, error) {
		genres, err := s.genreList(ctx)
		if err != nil {
			return nil, err
		}

		g, ok := ResolveGenre(genres, name)
		if !ok {
			if suggestion, ok := s.suggest(name, genreNames(genres)); ok {
				s.log.Info("genre not found", "genre", name, "suggestion", suggestion)
			} else {
				s.log.Info("genre not found", "genre", name)
			}
			return []movie.Movie{}, nil
		}

		list, err := s.provider.DiscoverByGenre(ctx, g.ID)
		if err != nil {
			return nil, fmt.Errorf("discover genre %s: %w", g.Name, err)
		}
		return movie.SortByYear(s.norm.Summaries(results(list), genreLimit)), nil
	}, s.options(KindByGenre)...)
	return r.Data, err
}

// Genres returns the genre names to offer, falling back to a built-in
// list when the provider cannot be reached.
func (s *Service) Genres(ctx context.Context) ([]string, error) {
	r, err := query.Fetch(ctx, s.cache, query.NewKey(KindGenres), func(ctx context.Context) ([]string, error) {
		genres, err := s.genreList(ctx)
		if err != nil {
			s.log.Warn("genre list unavailable, using built-in genres", "error", err)
			return append([]string(nil), FallbackGenres...), nil
		}
		return genreNames(genres), nil
	}, s.options(KindGenres)...)
	return r.Data, err
}

// Suggest returns the known genre closest to name.
func (s *Service) Suggest(ctx context.Context, name string) (string, bool) {
	names, err := s.Genres(ctx)
	if err != nil {
		return "", false
	}
	return s.suggest(name, names)
}

// suggest memoizes SuggestGenre per folded name. The memo is dropped
// whenever the genre kinds are invalidated.
func (s *Service) suggest(name string, names []string) (string, bool) {
	k := fold(name)
	if v, ok := s.suggestions.Get(k); ok {
		return v, v != ""
	}
	v, ok := SuggestGenre(name, names)
	s.suggestions.Add(k, v)
	return v, ok
}

func (s *Service) genreList(ctx context.Context) ([]tmdb.Genre, error) {
	r, err := query.Fetch(ctx, s.cache, query.NewKey(KindGenreList), func(ctx context.Context) ([]tmdb.Genre, error) {
		genres, err := s.provider.Genres(ctx)
		if err != nil {
			return nil, fmt.Errorf("genre list: %w", err)
		}
		return genres, nil
	}, s.options(KindGenreList)...)
	return r.Data, err
}

// Feed returns the popular movies followed by every loaded feed page,
// each movie once. The first feed page is loaded if needed. A stale popular
// list is shown as is while it revalidates.
func (s *Service) Feed(ctx context.Context) ([]movie.Movie, error) {
	popular, err := s.popular(ctx, query.Load[[]movie.Movie])
	if err != nil {
		return nil, err
	}
	if err := s.infinite.Load(ctx); err != nil {
		return nil, err
	}
	return movie.Merge(popular, s.infinite.AllItems()), nil
}

// LoadMore fetches the next feed page. It reports false when there is
// nothing more or a page is already loading.
func (s *Service) LoadMore(ctx context.Context) (bool, error) {
	return s.infinite.NextPage(ctx)
}

// HasMore reports whether the feed has another page.
func (s *Service) HasMore() bool { return s.infinite.HasNext() }

// IsLoadingMore reports whether a feed page is being fetched.
func (s *Service) IsLoadingMore() bool { return s.infinite.IsFetchingNext() }

func (s *Service) popularPage(ctx context.Context, cursor string) (query.Page[movie.Movie], error) {
	page := 1
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil {
			return query.Page[movie.Movie]{}, fmt.Errorf("feed cursor %q: %w", cursor, err)
		}
		page = n
	}

	list, err := s.provider.PopularMovies(ctx, page)
	if err != nil {
		return query.Page[movie.Movie]{}, fmt.Errorf("popular movies page %d: %w", page, err)
	}

	out := query.Page[movie.Movie]{Items: movie.SortByYear(s.norm.Summaries(results(list), 0))}
	if list != nil && list.Page < list.TotalPages {
		out.Next = strconv.Itoa(list.Page + 1)
	}
	return out, nil
}

// Key returns the cache key of kind for arg.
func (s *Service) Key(kind query.Kind, arg string) (query.Key, error) {
	e, ok := s.registry[kind]
	if !ok {
		return query.Key{}, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	return e.key(arg), nil
}

// Refetch invalidates the query of kind for arg and loads it again.
func (s *Service) Refetch(ctx context.Context, kind query.Kind, arg string) error {
	e, ok := s.registry[kind]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	s.cache.Invalidate(e.key(arg))
	s.dropSuggestions(kind)
	return e.load(ctx, arg)
}

// Invalidate marks every query of kind stale.
func (s *Service) Invalidate(kind query.Kind) {
	s.cache.InvalidateKind(kind)
	s.dropSuggestions(kind)
}

func (s *Service) dropSuggestions(kind query.Kind) {
	if kind == KindGenres || kind == KindGenreList {
		s.suggestions.Purge()
	}
}

func results(list *tmdb.MovieList) []tmdb.Movie {
	if list == nil {
		return nil
	}
	return list.Results
}
