package catalog

import (
	"time"

	"github.com/vmunix/marquee/internal/query"
)

// Query kinds served by the catalog.
const (
	KindPopular   query.Kind = "popularMovies"
	KindSearch    query.Kind = "movieSearch"
	KindDetails   query.Kind = "movieDetails"
	KindByGenre   query.Kind = "moviesByGenre"
	KindGenres    query.Kind = "availableGenres"
	KindGenreList query.Kind = "genreList" // raw provider genres, shared by resolution and names
	KindInfinite  query.Kind = "infiniteMovies"
)

const (
	popularLimit    = 10
	genreLimit      = 20
	minSearchLength = 3
)

// kindDefaults are applied before any configured override.
var kindDefaults = map[query.Kind][]query.Option{
	KindPopular:   {query.WithStaleTime(10 * time.Minute)},
	KindSearch:    {query.WithStaleTime(30 * time.Second)},
	KindDetails:   {query.WithStaleTime(5 * time.Minute)},
	KindByGenre:   {query.WithStaleTime(10 * time.Minute), query.WithRetry(1)},
	KindGenres:    {query.WithStaleTime(24 * time.Hour)},
	KindGenreList: {query.WithStaleTime(24 * time.Hour)},
}

// Kinds lists every kind in display order.
func Kinds() []query.Kind {
	return []query.Kind{KindPopular, KindSearch, KindDetails, KindByGenre, KindGenres, KindGenreList, KindInfinite}
}
