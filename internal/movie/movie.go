// Package movie defines the canonical movie shapes and normalizes TMDB
// records into them.
package movie

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/vmunix/marquee/internal/tmdb"
)

const (
	// NotAvailable is rendered for any field the provider left empty.
	NotAvailable = "N/A"

	// Placeholder is the image reference used when a record has no poster.
	Placeholder = "/placeholder.svg?height=176&width=128"

	// DefaultRegion selects which country's certification becomes ContentRating.
	DefaultRegion = "US"

	maxStars = 3
)

// Movie is the summary shape shared by every list view.
// JSON names match the favorites format already on disk.
type Movie struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Year   string `json:"year"`       // "2024" or "N/A"
	Image  string `json:"image"`      // poster URL or Placeholder
	Rating string `json:"imDbRating"` // 0-5, one decimal
}

// Detail extends Movie with the fields of the details view.
type Detail struct {
	Movie
	Plot          string `json:"plot"`
	Directors     string `json:"directors"`
	Stars         string `json:"stars"`
	Genres        string `json:"genres"`
	Runtime       string `json:"runtime"`
	ContentRating string `json:"contentRating"`
}

// Identity returns the movie ID. Used as the de-duplication key.
func (m Movie) Identity() string { return m.ID }

// Identity returns the movie ID.
func (d Detail) Identity() string { return d.ID }

// Normalizer maps provider records to canonical shapes.
type Normalizer struct {
	ImageBase string
	Region    string
}

// NewNormalizer returns a Normalizer with TMDB's w500 image base and the US region.
func NewNormalizer() Normalizer {
	return Normalizer{ImageBase: tmdb.DefaultImageBase, Region: DefaultRegion}
}

// Summary normalizes a list record.
func (n Normalizer) Summary(m tmdb.Movie) Movie {
	return Movie{
		ID:     strconv.FormatInt(m.ID, 10),
		Title:  m.Title,
		Year:   year(m.ReleaseDate),
		Image:  n.image(m.PosterPath),
		Rating: Rating(m.VoteAverage),
	}
}

// Summaries normalizes a slice of list records, keeping at most limit
// entries (limit <= 0 keeps all).
func (n Normalizer) Summaries(records []tmdb.Movie, limit int) []Movie {
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	out := make([]Movie, 0, len(records))
	for _, r := range records {
		out = append(out, n.Summary(r))
	}
	return out
}

// Details normalizes a full record. id is the identifier the caller asked
// for, which wins over the record's own ID so cache keys and favorites agree.
func (n Normalizer) Details(id string, d tmdb.MovieDetails) Detail {
	if id == "" {
		id = strconv.FormatInt(d.ID, 10)
	}

	contentRating := NotAvailable
	if cert, ok := d.Certification(n.region()); ok {
		contentRating = cert
	}

	runtime := NotAvailable
	if d.Runtime > 0 {
		runtime = fmt.Sprintf("%d min", d.Runtime)
	}

	return Detail{
		Movie: Movie{
			ID:     id,
			Title:  orNA(d.Title),
			Year:   year(d.ReleaseDate),
			Image:  n.image(d.PosterPath),
			Rating: Rating(d.VoteAverage),
		},
		Plot:          orNA(d.Overview),
		Directors:     directors(d.Credits),
		Stars:         stars(d.Credits),
		Genres:        genres(d.Genres),
		Runtime:       runtime,
		ContentRating: contentRating,
	}
}

// Rating rescales a 0-10 provider vote to 0-5 with one decimal place.
// Exact halves round away from zero (6.5 -> "3.3").
func Rating(voteAverage float64) string {
	return strconv.FormatFloat(math.Round(voteAverage*5)/10, 'f', 1, 64)
}

// ParseYear returns the leading integer of year ("2024", "2024-03"),
// or 0 when there is none ("N/A").
func ParseYear(year string) int {
	s := strings.TrimSpace(year)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	y, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return y
}

// SortByYear returns a copy of movies ordered by descending year.
// Unparseable years sort as 0; ties keep their input order.
func SortByYear[T interface{ GetYear() string }](movies []T) []T {
	out := make([]T, len(movies))
	copy(out, movies)
	sort.SliceStable(out, func(i, j int) bool {
		return ParseYear(out[i].GetYear()) > ParseYear(out[j].GetYear())
	})
	return out
}

// GetYear returns the display year.
func (m Movie) GetYear() string { return m.Year }

func (n Normalizer) image(posterPath string) string {
	if posterPath == "" {
		return Placeholder
	}
	return n.ImageBase + posterPath
}

func (n Normalizer) region() string {
	if n.Region == "" {
		return DefaultRegion
	}
	return n.Region
}

func year(releaseDate string) string {
	if releaseDate == "" {
		return NotAvailable
	}
	if len(releaseDate) < 4 {
		return releaseDate
	}
	return releaseDate[:4]
}

func orNA(s string) string {
	if s == "" {
		return NotAvailable
	}
	return s
}

func directors(c *tmdb.Credits) string {
	if c == nil {
		return NotAvailable
	}
	var names []string
	for _, member := range c.Crew {
		if member.Job == "Director" {
			names = append(names, member.Name)
		}
	}
	return joinOrNA(names)
}

func stars(c *tmdb.Credits) string {
	if c == nil {
		return NotAvailable
	}
	cast := c.Cast
	if len(cast) > maxStars {
		cast = cast[:maxStars]
	}
	names := make([]string, 0, len(cast))
	for _, member := range cast {
		names = append(names, member.Name)
	}
	return joinOrNA(names)
}

func genres(gs []tmdb.Genre) string {
	names := make([]string, 0, len(gs))
	for _, g := range gs {
		names = append(names, g.Name)
	}
	return joinOrNA(names)
}

func joinOrNA(names []string) string {
	joined := strings.Join(names, ", ")
	if joined == "" {
		return NotAvailable
	}
	return joined
}
