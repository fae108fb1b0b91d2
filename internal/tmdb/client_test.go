package tmdb

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_SearchMovies(t *testing.T) {
	// Mock TMDB API
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/3/search/movie", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		assert.Equal(t, "fr-FR", r.URL.Query().Get("language"))
		assert.Equal(t, "fight club", r.URL.Query().Get("query"))
		assert.Equal(t, "false", r.URL.Query().Get("include_adult"))

		resp := MovieList{
			Page: 1,
			Results: []Movie{
				{ID: 550, Title: "Fight Club", ReleaseDate: "1999-10-15", VoteAverage: 8.4},
			},
			TotalPages: 1,
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))

	movies, err := client.SearchMovies(context.Background(), "fight club")
	require.NoError(t, err)
	require.Len(t, movies, 1)
	assert.Equal(t, int64(550), movies[0].ID)
	assert.Equal(t, 1999, movies[0].Year())
}

func TestClient_PopularMovies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/3/movie/popular", r.URL.Path)
		assert.Equal(t, "3", r.URL.Query().Get("page"))
		_ = json.NewEncoder(w).Encode(MovieList{Page: 3, TotalPages: 7, Results: []Movie{{ID: 1}}})
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL), WithLanguage("en-US"))

	list, err := client.PopularMovies(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 3, list.Page)
	assert.Equal(t, 7, list.TotalPages)
	assert.Len(t, list.Results, 1)
}

func TestClient_DiscoverByGenre(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/3/discover/movie", r.URL.Path)
		assert.Equal(t, "878", r.URL.Query().Get("with_genres"))
		assert.Equal(t, "popularity.desc", r.URL.Query().Get("sort_by"))
		_ = json.NewEncoder(w).Encode(MovieList{Page: 1, Results: []Movie{{ID: 603, Title: "The Matrix"}}})
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))

	list, err := client.DiscoverByGenre(context.Background(), 878)
	require.NoError(t, err)
	require.Len(t, list.Results, 1)
	assert.Equal(t, "The Matrix", list.Results[0].Title)
}

func TestClient_GetMovieDetails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/3/movie/550", r.URL.Path)
		assert.Equal(t, "credits,release_dates", r.URL.Query().Get("append_to_response"))

		_, _ = w.Write([]byte(`{
			"id": 550,
			"title": "Fight Club",
			"release_date": "1999-10-15",
			"runtime": 139,
			"genres": [{"id": 18, "name": "Drama"}],
			"credits": {
				"cast": [{"name": "Brad Pitt", "order": 0}, {"name": "Edward Norton", "order": 1}],
				"crew": [{"name": "David Fincher", "job": "Director"}]
			},
			"release_dates": {
				"results": [
					{"iso_3166_1": "FR", "release_dates": [{"certification": "16"}]},
					{"iso_3166_1": "US", "release_dates": [{"certification": "R"}]}
				]
			}
		}`))
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))

	details, err := client.GetMovieDetails(context.Background(), "550")
	require.NoError(t, err)
	assert.Equal(t, "Fight Club", details.Title)
	assert.Equal(t, 139, details.Runtime)
	require.NotNil(t, details.Credits)
	assert.Len(t, details.Credits.Cast, 2)

	cert, ok := details.Certification("US")
	assert.True(t, ok)
	assert.Equal(t, "R", cert)

	_, ok = details.Certification("DE")
	assert.False(t, ok)
}

func TestClient_GetMovieDetails_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"status_code":34,"status_message":"The resource you requested could not be found."}`))
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))

	details, err := client.GetMovieDetails(context.Background(), "99999999")
	assert.Nil(t, details)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))

	_, err := client.Genres(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestClient_Genres(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/3/genre/movie/list", r.URL.Path)
		_, _ = w.Write([]byte(`{"genres":[{"id":28,"name":"Action"},{"id":878,"name":"Science-Fiction"}]}`))
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))

	genres, err := client.Genres(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Genre{{ID: 28, Name: "Action"}, {ID: 878, Name: "Science-Fiction"}}, genres)
}
