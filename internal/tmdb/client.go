package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	defaultBaseURL   = "https://api.themoviedb.org"
	defaultLanguage  = "fr-FR"
	DefaultImageBase = "https://image.tmdb.org/t/p/w500"
)

// ErrNotFound is returned when a movie doesn't exist in TMDB.
var ErrNotFound = errors.New("movie not found")

// Client is a TMDB API client.
type Client struct {
	apiKey     string
	baseURL    string
	language   string
	httpClient *http.Client
	log        *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithLanguage sets the language used for titles and overviews.
func WithLanguage(lang string) Option {
	return func(c *Client) {
		c.language = lang
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets a logger for debug output.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		c.log = log.With("component", "tmdb")
	}
}

// NewClient creates a new TMDB client.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:   apiKey,
		baseURL:  defaultBaseURL,
		language: defaultLanguage,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchMovies returns the first page of movies matching query.
func (c *Client) SearchMovies(ctx context.Context, query string) ([]Movie, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("page", "1")
	params.Set("include_adult", "false")

	var list MovieList
	if err := c.get(ctx, "/3/search/movie", params, &list); err != nil {
		return nil, fmt.Errorf("search movies: %w", err)
	}
	return list.Results, nil
}

// PopularMovies returns one page of the popularity-ordered movie list.
func (c *Client) PopularMovies(ctx context.Context, page int) (*MovieList, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))

	var list MovieList
	if err := c.get(ctx, "/3/movie/popular", params, &list); err != nil {
		return nil, fmt.Errorf("popular movies page %d: %w", page, err)
	}
	return &list, nil
}

// DiscoverByGenre returns the first page of popular movies in a genre.
func (c *Client) DiscoverByGenre(ctx context.Context, genreID int) (*MovieList, error) {
	params := url.Values{}
	params.Set("sort_by", "popularity.desc")
	params.Set("include_adult", "false")
	params.Set("include_video", "false")
	params.Set("page", "1")
	params.Set("with_genres", strconv.Itoa(genreID))

	var list MovieList
	if err := c.get(ctx, "/3/discover/movie", params, &list); err != nil {
		return nil, fmt.Errorf("discover genre %d: %w", genreID, err)
	}
	return &list, nil
}

// GetMovieDetails fetches a movie with its credits and release dates.
func (c *Client) GetMovieDetails(ctx context.Context, id string) (*MovieDetails, error) {
	params := url.Values{}
	params.Set("append_to_response", "credits,release_dates")

	var details MovieDetails
	if err := c.get(ctx, "/3/movie/"+url.PathEscape(id), params, &details); err != nil {
		return nil, fmt.Errorf("movie details %s: %w", id, err)
	}
	return &details, nil
}

// Genres lists the movie genres known to TMDB.
func (c *Client) Genres(ctx context.Context) ([]Genre, error) {
	var list genreList
	if err := c.get(ctx, "/3/genre/movie/list", url.Values{}, &list); err != nil {
		return nil, fmt.Errorf("genres: %w", err)
	}
	return list.Genres, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, dest any) error {
	start := time.Now()

	params.Set("api_key", c.apiKey)
	params.Set("language", c.language)
	endpoint := c.baseURL + path + "?" + params.Encode()

	// Build request
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	// Execute
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if c.log != nil {
		c.log.Debug("tmdb request", "path", path, "status", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())
	}

	// Handle errors
	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("TMDB API error: %s", resp.Status)
	}

	// Decode
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
