// Package tmdb provides a client for The Movie Database API.
package tmdb

import "strconv"

// Movie represents a TMDB movie record as returned by list endpoints
// (search, popular, discover).
type Movie struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	ReleaseDate string  `json:"release_date"` // "2024-03-01"
	PosterPath  string  `json:"poster_path"`  // "/abc123.jpg"
	VoteAverage float64 `json:"vote_average"` // 0-10
	VoteCount   int     `json:"vote_count"`
	GenreIDs    []int   `json:"genre_ids,omitempty"`
}

// MovieList is one page of a list endpoint.
type MovieList struct {
	Page         int     `json:"page"`
	Results      []Movie `json:"results"`
	TotalPages   int     `json:"total_pages"`
	TotalResults int     `json:"total_results"`
}

// MovieDetails is the full movie record with credits and release dates
// appended (append_to_response=credits,release_dates).
type MovieDetails struct {
	ID           int64         `json:"id"`
	Title        string        `json:"title"`
	Overview     string        `json:"overview"`
	ReleaseDate  string        `json:"release_date"`
	PosterPath   string        `json:"poster_path"`
	VoteAverage  float64       `json:"vote_average"`
	Runtime      int           `json:"runtime"` // minutes
	Genres       []Genre       `json:"genres"`
	Credits      *Credits      `json:"credits,omitempty"`
	ReleaseDates *ReleaseDates `json:"release_dates,omitempty"`
}

// Genre represents a movie genre.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Credits holds cast and crew.
type Credits struct {
	Cast []CastMember `json:"cast"`
	Crew []CrewMember `json:"crew"`
}

// CastMember is an actor credit, ordered by billing.
type CastMember struct {
	Name      string `json:"name"`
	Character string `json:"character"`
	Order     int    `json:"order"`
}

// CrewMember is a crew credit.
type CrewMember struct {
	Name       string `json:"name"`
	Job        string `json:"job"` // "Director", "Screenplay", ...
	Department string `json:"department"`
}

// ReleaseDates groups release information by country.
type ReleaseDates struct {
	Results []CountryRelease `json:"results"`
}

// CountryRelease is the set of releases for one ISO 3166-1 country.
type CountryRelease struct {
	Country      string    `json:"iso_3166_1"`
	ReleaseDates []Release `json:"release_dates"`
}

// Release is a single dated release with its certification.
type Release struct {
	Certification string `json:"certification"`
	ReleaseDate   string `json:"release_date"`
	Type          int    `json:"type"`
}

type genreList struct {
	Genres []Genre `json:"genres"`
}

// Year extracts the year from ReleaseDate.
func (m *Movie) Year() int {
	return parseYear(m.ReleaseDate)
}

// Year extracts the year from ReleaseDate.
func (m *MovieDetails) Year() int {
	return parseYear(m.ReleaseDate)
}

func parseYear(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}

// Certification returns the first certification issued for country, if any.
func (m *MovieDetails) Certification(country string) (string, bool) {
	if m.ReleaseDates == nil {
		return "", false
	}
	for _, r := range m.ReleaseDates.Results {
		if r.Country != country {
			continue
		}
		if len(r.ReleaseDates) == 0 {
			return "", false
		}
		cert := r.ReleaseDates[0].Certification
		return cert, cert != ""
	}
	return "", false
}
