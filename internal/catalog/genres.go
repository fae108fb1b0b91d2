package catalog

import (
	"strings"
	"unicode"

	"github.com/hbollon/go-edlib"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/vmunix/marquee/internal/tmdb"
)

// FallbackGenres is served when the provider's genre list is unavailable.
var FallbackGenres = []string{
	"Action", "Aventure", "Animation", "Comédie", "Crime", "Documentaire",
	"Drame", "Famille", "Fantastique", "Histoire", "Horreur", "Musique",
	"Mystère", "Romance", "Science-Fiction", "Thriller", "Guerre", "Western",
}

const minSuggestionScore = 0.70

// ResolveGenre maps a user-facing name to a provider genre: an exact
// case-insensitive match first, then the first genre whose name contains
// name or is contained in it, then the first genre name that name
// abbreviates word by word ("Sci-Fi" for "Science Fiction").
func ResolveGenre(genres []tmdb.Genre, name string) (tmdb.Genre, bool) {
	want := fold(name)
	if want == "" {
		return tmdb.Genre{}, false
	}
	for _, g := range genres {
		if fold(g.Name) == want {
			return g, true
		}
	}
	for _, g := range genres {
		have := fold(g.Name)
		if have == "" {
			continue
		}
		if strings.Contains(have, want) || strings.Contains(want, have) {
			return g, true
		}
	}
	for _, g := range genres {
		if abbreviates(want, fold(g.Name)) {
			return g, true
		}
	}
	return tmdb.Genre{}, false
}

// abbreviates reports whether short and long have the same number of words
// and each word of short starts the matching word of long.
func abbreviates(short, long string) bool {
	sw, lw := words(short), words(long)
	if len(sw) == 0 || len(sw) != len(lw) {
		return false
	}
	for i := range sw {
		if !strings.HasPrefix(lw[i], sw[i]) {
			return false
		}
	}
	return true
}

func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// SuggestGenre returns the candidate closest to name by Jaro-Winkler
// similarity, ignoring case and accents.
func SuggestGenre(name string, candidates []string) (string, bool) {
	want := plain(name)
	if want == "" {
		return "", false
	}

	var (
		best      string
		bestScore float64
	)
	for _, c := range candidates {
		score := float64(edlib.JaroWinklerSimilarity(want, plain(c)))
		if score > bestScore {
			best, bestScore = c, score
		}
	}
	if bestScore < minSuggestionScore {
		return "", false
	}
	return best, true
}

func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

func plain(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, fold(s))
	return result
}

func genreNames(genres []tmdb.Genre) []string {
	names := make([]string, 0, len(genres))
	for _, g := range genres {
		names = append(names, g.Name)
	}
	return names
}
