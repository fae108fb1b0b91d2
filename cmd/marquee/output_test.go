package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmunix/marquee/internal/movie"
)

func withJSONOutput(t *testing.T, on bool) {
	t.Helper()
	old := jsonOutput
	jsonOutput = on
	t.Cleanup(func() { jsonOutput = old })
}

func TestPrintMovies_Table(t *testing.T) {
	withJSONOutput(t, false)
	var out bytes.Buffer

	err := printMovies(&out, "Popular movies", []movie.Movie{
		{ID: "603", Title: "The Matrix", Year: "1999", Rating: "4.1"},
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Popular movies (1):")
	assert.Contains(t, out.String(), "The Matrix")
	assert.Contains(t, out.String(), "1999")
}

func TestPrintMovies_Empty(t *testing.T) {
	withJSONOutput(t, false)
	var out bytes.Buffer

	require.NoError(t, printMovies(&out, "Results", nil))
	assert.Equal(t, "No movies found\n", out.String())
}

func TestPrintMovies_JSON(t *testing.T) {
	withJSONOutput(t, true)
	var out bytes.Buffer

	require.NoError(t, printMovies(&out, "Results", nil))
	assert.JSONEq(t, "[]", out.String())

	out.Reset()
	require.NoError(t, printMovies(&out, "Results", []movie.Movie{{ID: "1", Title: "Dune", Year: "2021", Rating: "3.9"}}))
	var got []map[string]string
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "3.9", got[0]["imDbRating"])
}

func TestPrintDetail_Favorite(t *testing.T) {
	var out bytes.Buffer
	d := &movie.Detail{Movie: movie.Movie{ID: "603", Title: "The Matrix", Year: "1999"}, Plot: "Neo."}

	withJSONOutput(t, false)
	require.NoError(t, printDetail(&out, d, true))
	assert.Contains(t, out.String(), "The Matrix (1999) ★")
	assert.Contains(t, out.String(), "Neo.")

	out.Reset()
	withJSONOutput(t, true)
	require.NoError(t, printDetail(&out, d, true))
	var got map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, true, got["favorite"])
	assert.Equal(t, "603", got["id"])
}

func TestPrintDetail_Nil(t *testing.T) {
	assert.Error(t, printDetail(&bytes.Buffer{}, nil, false))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "Le fabuleux...", truncate("Le fabuleux destin d'Amélie Poulain", 14))
}

func TestPrintMovies_PlainColumns(t *testing.T) {
	withJSONOutput(t, false)
	var out bytes.Buffer
	require.False(t, isTerminal(&out))

	require.NoError(t, printMovies(&out, "Results", []movie.Movie{
		{ID: "1", Title: "Dune", Year: "2021", Rating: "3.9"},
		{ID: "603", Title: "The Matrix", Year: "1999", Rating: "4.1"},
	}))
	assert.Equal(t, "Results (2):\n\n"+
		"ID   TITLE       YEAR  RATING\n"+
		"1    Dune        2021  3.9\n"+
		"603  The Matrix  1999  4.1\n", out.String())
}

func TestFilterByTitle(t *testing.T) {
	favs := []movie.Detail{
		{Movie: movie.Movie{ID: "1", Title: "Le Fabuleux Destin d'Amélie Poulain"}},
		{Movie: movie.Movie{ID: "2", Title: "Dune"}},
		{Movie: movie.Movie{ID: "3", Title: "Dune : Deuxième partie"}},
	}

	got := filterByTitle(favs, "dune")
	require.Len(t, got, 2)
	assert.Equal(t, "2", got[0].ID, "closest match first")
	assert.Equal(t, "3", got[1].ID)

	got = filterByTitle(favs, "amelie")
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)

	assert.Empty(t, filterByTitle(favs, "matrix"))
}
