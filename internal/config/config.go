// Package config loads marquee's TOML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Defaults applied to fields the file leaves unset.
const (
	DefaultBaseURL         = "https://api.themoviedb.org"
	DefaultLanguage        = "fr-FR"
	DefaultImageBase       = "https://image.tmdb.org/t/p/w500"
	DefaultRegion          = "US"
	DefaultTimeout         = 10 * time.Second
	DefaultStaleTime       = 5 * time.Minute
	DefaultGCTime          = 24 * time.Hour
	DefaultRetry           = 1
	DefaultCleanupInterval = time.Minute
	DefaultDriver          = "sqlite"
	DefaultCommitDelay     = 300 * time.Millisecond
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
)

// Config is the root configuration.
type Config struct {
	TMDB      TMDBConfig      `toml:"tmdb"`
	Cache     CacheConfig     `toml:"cache"`
	Favorites FavoritesConfig `toml:"favorites"`
	Log       LogConfig       `toml:"log"`
}

// TMDBConfig configures the metadata provider.
type TMDBConfig struct {
	APIKey    string        `toml:"api_key"`
	BaseURL   string        `toml:"base_url"`
	Language  string        `toml:"language"`
	ImageBase string        `toml:"image_base"`
	Region    string        `toml:"region"`
	Timeout   time.Duration `toml:"timeout"`
}

// CacheConfig holds the query cache defaults and per-kind overrides.
type CacheConfig struct {
	StaleTime       time.Duration         `toml:"stale_time"`
	GCTime          time.Duration         `toml:"gc_time"`
	Retry           int                   `toml:"retry"`
	RetryDelay      time.Duration         `toml:"retry_delay"` // zero means exponential backoff
	CleanupInterval time.Duration         `toml:"cleanup_interval"`
	Kinds           map[string]KindConfig `toml:"kinds"`
}

// KindConfig overrides cache timing for one query kind. Zero fields keep
// the kind's defaults.
type KindConfig struct {
	StaleTime time.Duration `toml:"stale_time"`
	GCTime    time.Duration `toml:"gc_time"`
	Retry     *int          `toml:"retry"`
}

// FavoritesConfig configures favorites persistence.
type FavoritesConfig struct {
	Driver      string        `toml:"driver"` // sqlite, bolt or memory
	Path        string        `toml:"path"`
	CommitDelay time.Duration `toml:"commit_delay"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // text or json
}

// DefaultDataPath returns the XDG-compliant default favorites database path.
func DefaultDataPath() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "./marquee.db"
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "marquee", "marquee.db")
}

// Default returns a configuration with every default applied and the API
// key taken from TMDB_API_KEY.
func Default() *Config {
	cfg := &Config{TMDB: TMDBConfig{APIKey: os.Getenv("TMDB_API_KEY")}}
	cfg.applyDefaults(toml.MetaData{})
	return cfg
}

// Load reads, substitutes and validates the config at path. Unresolved
// environment variables and validation failures are reported together as
// a *ConfigError.
func Load(path string) (*Config, error) {
	cfg, missing, err := load(path)
	if err != nil {
		return nil, err
	}

	cerr := &ConfigError{Path: path, Missing: missing, Errors: cfg.Validate()}
	if cerr.HasErrors() {
		return nil, cerr
	}
	return cfg, nil
}

// LoadWithoutValidation reads and substitutes the config at path and applies
// defaults. Unresolved variables are left in place.
func LoadWithoutValidation(path string) (*Config, error) {
	cfg, _, err := load(path)
	return cfg, err
}

func load(path string) (*Config, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading config: %w", err)
	}

	content, missing := substituteEnvVars(string(data))

	var cfg Config
	md, err := toml.Decode(content, &cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyDefaults(md)
	return &cfg, missing, nil
}

// applyDefaults fills unset fields. Keys present in md keep their value even
// when zero, so retry = 0 and commit_delay = "0s" can be set explicitly.
func (c *Config) applyDefaults(md toml.MetaData) {
	if c.TMDB.BaseURL == "" {
		c.TMDB.BaseURL = DefaultBaseURL
	}
	if c.TMDB.Language == "" {
		c.TMDB.Language = DefaultLanguage
	}
	if c.TMDB.ImageBase == "" {
		c.TMDB.ImageBase = DefaultImageBase
	}
	if c.TMDB.Region == "" {
		c.TMDB.Region = DefaultRegion
	}
	if c.TMDB.Timeout == 0 {
		c.TMDB.Timeout = DefaultTimeout
	}

	if !md.IsDefined("cache", "stale_time") {
		c.Cache.StaleTime = DefaultStaleTime
	}
	if !md.IsDefined("cache", "gc_time") {
		c.Cache.GCTime = DefaultGCTime
	}
	if !md.IsDefined("cache", "retry") {
		c.Cache.Retry = DefaultRetry
	}
	if c.Cache.CleanupInterval == 0 {
		c.Cache.CleanupInterval = DefaultCleanupInterval
	}

	if c.Favorites.Driver == "" {
		c.Favorites.Driver = DefaultDriver
	}
	if c.Favorites.Path == "" && c.Favorites.Driver != "memory" {
		c.Favorites.Path = DefaultDataPath()
	}
	if !md.IsDefined("favorites", "commit_delay") {
		c.Favorites.CommitDelay = DefaultCommitDelay
	}

	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

// envVarPattern matches ${VAR}, ${VAR:-default} and ${VAR:?message}.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?:(:-|:\?)([^}]*))?\}`)

// substituteEnvVars replaces variable references with environment values.
// References that cannot be resolved are left unchanged and listed in
// missing; a ${VAR:?message} reference is listed as "VAR: message".
func substituteEnvVars(content string) (string, []string) {
	var missing []string
	out := envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		m := envVarPattern.FindStringSubmatch(match)
		name, op, arg := m[1], m[2], m[3]
		value, ok := os.LookupEnv(name)

		switch op {
		case ":-":
			if !ok || value == "" {
				return arg
			}
			return value
		case ":?":
			if !ok || value == "" {
				missing = append(missing, name+": "+strings.TrimSpace(arg))
				return match
			}
			return value
		}

		if !ok {
			missing = append(missing, name)
			return match
		}
		return value
	})
	return out, missing
}
