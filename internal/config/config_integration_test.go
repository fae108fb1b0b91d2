package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFullWorkflow(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "marquee", "config.toml")
	require.NoError(t, WriteDefault(cfgPath))

	t.Setenv("TMDB_API_KEY", "test-tmdb-key")
	t.Setenv("MARQUEE_LANGUAGE", "")
	t.Setenv("XDG_DATA_HOME", "/data")

	cfg, err := Load(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, "test-tmdb-key", cfg.TMDB.APIKey)
	assert.Equal(t, "fr-FR", cfg.TMDB.Language)
	assert.Equal(t, "sqlite", cfg.Favorites.Driver)
	assert.Equal(t, "/data/marquee/marquee.db", cfg.Favorites.Path)
	assert.Contains(t, cfg.Cache.Kinds, "movieDetails")
}

func TestFullWorkflow_MissingKey(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, WriteDefault(cfgPath))
	t.Setenv("TMDB_API_KEY", "")

	_, err := Load(cfgPath)
	require.Error(t, err)

	cerr, ok := err.(*ConfigError)
	require.True(t, ok, "expected *ConfigError, got %T", err)
	require.Len(t, cerr.Missing, 1)
	assert.Contains(t, cerr.Missing[0], "TMDB_API_KEY: get a key at")
}
