package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marquee", "config.toml")

	require.NoError(t, WriteDefault(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "[tmdb]")
	assert.Contains(t, string(content), "[cache.kinds.movieDetails]")
	assert.Contains(t, string(content), "${TMDB_API_KEY:?")
}

func TestWriteDefault_RefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("# mine"), 0o644))

	err := WriteDefault(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrExist))

	content, _ := os.ReadFile(path)
	assert.Equal(t, "# mine", string(content))
}

func TestConfig_WriteRoundTrip(t *testing.T) {
	retry := 2
	cfg := &Config{
		TMDB: TMDBConfig{APIKey: "key", Language: "en-US", Timeout: 5 * time.Second},
		Cache: CacheConfig{
			StaleTime: time.Minute,
			Retry:     3,
			Kinds: map[string]KindConfig{
				"movieDetails": {StaleTime: 30 * time.Minute, Retry: &retry},
			},
		},
		Favorites: FavoritesConfig{Driver: "bolt", Path: "/tmp/marquee.bolt"},
	}

	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	require.NoError(t, cfg.Write(path))

	got, err := LoadWithoutValidation(path)
	require.NoError(t, err)
	assert.Equal(t, "en-US", got.TMDB.Language)
	assert.Equal(t, 5*time.Second, got.TMDB.Timeout)
	assert.Equal(t, time.Minute, got.Cache.StaleTime)
	assert.Equal(t, 3, got.Cache.Retry)
	assert.Equal(t, "bolt", got.Favorites.Driver)
	assert.Equal(t, 30*time.Minute, got.Cache.Kinds["movieDetails"].StaleTime)
	require.NotNil(t, got.Cache.Kinds["movieDetails"].Retry)
	assert.Equal(t, 2, *got.Cache.Kinds["movieDetails"].Retry)
}
