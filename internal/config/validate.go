package config

import (
	"fmt"
	"strings"
	"time"
)

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

var validLogFormats = map[string]bool{
	"text": true, "json": true,
}

var validDrivers = map[string]bool{
	"sqlite": true, "bolt": true, "memory": true,
}

const maxRetry = 10

// Validate checks the configuration and returns one message per problem.
func (c *Config) Validate() []string {
	var errs []string

	if c.TMDB.APIKey == "" || strings.HasPrefix(c.TMDB.APIKey, "${") {
		errs = append(errs, "tmdb.api_key: required")
	}
	if c.TMDB.BaseURL != "" && !strings.HasPrefix(c.TMDB.BaseURL, "http://") && !strings.HasPrefix(c.TMDB.BaseURL, "https://") {
		errs = append(errs, fmt.Sprintf("tmdb.base_url: must be an http(s) URL, got %q", c.TMDB.BaseURL))
	}
	if c.TMDB.Timeout < 0 {
		errs = append(errs, "tmdb.timeout: must not be negative")
	}

	errs = append(errs, checkTiming("cache", c.Cache.StaleTime, c.Cache.GCTime, c.Cache.Retry)...)
	if c.Cache.RetryDelay < 0 {
		errs = append(errs, "cache.retry_delay: must not be negative")
	}
	if c.Cache.CleanupInterval < 0 {
		errs = append(errs, "cache.cleanup_interval: must not be negative")
	}
	for name, k := range c.Cache.Kinds {
		retry := 0
		if k.Retry != nil {
			retry = *k.Retry
		}
		errs = append(errs, checkTiming("cache.kinds."+name, k.StaleTime, k.GCTime, retry)...)
	}

	if !validDrivers[c.Favorites.Driver] {
		errs = append(errs, fmt.Sprintf("favorites.driver: must be one of sqlite, bolt, memory; got %q", c.Favorites.Driver))
	} else if c.Favorites.Driver != "memory" && c.Favorites.Path == "" {
		errs = append(errs, fmt.Sprintf("favorites.path: required for driver %s", c.Favorites.Driver))
	}
	if c.Favorites.CommitDelay < 0 {
		errs = append(errs, "favorites.commit_delay: must not be negative")
	}

	if !validLogLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("log.level: must be one of debug, info, warn, error; got %q", c.Log.Level))
	}
	if !validLogFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("log.format: must be text or json; got %q", c.Log.Format))
	}

	return errs
}

func checkTiming(section string, stale, gc time.Duration, retry int) []string {
	var errs []string
	if stale < 0 {
		errs = append(errs, section+".stale_time: must not be negative")
	}
	if gc < 0 {
		errs = append(errs, section+".gc_time: must not be negative")
	}
	if retry < 0 || retry > maxRetry {
		errs = append(errs, fmt.Sprintf("%s.retry: must be between 0 and %d, got %d", section, maxRetry, retry))
	}
	return errs
}
