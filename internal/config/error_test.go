package config

import (
	"strings"
	"testing"
)

func TestConfigError_Error_Empty(t *testing.T) {
	e := &ConfigError{Path: "/etc/marquee/config.toml"}
	if got := e.Error(); got != "" {
		t.Errorf("expected empty string for no errors, got %q", got)
	}
	if e.HasErrors() {
		t.Error("expected HasErrors false")
	}
}

func TestConfigError_Error_MissingVars(t *testing.T) {
	e := &ConfigError{
		Path:    "/etc/marquee/config.toml",
		Missing: []string{"TMDB_API_KEY", "SECRET"},
	}
	got := e.Error()
	if !strings.HasPrefix(got, "config /etc/marquee/config.toml:") {
		t.Errorf("expected path prefix, got %q", got)
	}
	if !strings.Contains(got, "missing environment variables: TMDB_API_KEY, SECRET") {
		t.Errorf("expected var names in error, got %q", got)
	}
}

func TestConfigError_Error_ValidationErrors(t *testing.T) {
	e := &ConfigError{
		Errors: []string{"log.level: bad", "favorites.driver: bad"},
	}
	got := e.Error()
	if !strings.HasPrefix(got, "validation failed:") {
		t.Errorf("expected 'validation failed' first without a path, got %q", got)
	}
	if !strings.Contains(got, "  - favorites.driver: bad") {
		t.Errorf("expected field name in error, got %q", got)
	}
	if strings.HasSuffix(got, "\n") {
		t.Errorf("expected no trailing newline, got %q", got)
	}
}

func TestConfigError_Error_Both(t *testing.T) {
	e := &ConfigError{
		Missing: []string{"TMDB_API_KEY"},
		Errors:  []string{"tmdb.api_key: required"},
	}
	got := e.Error()
	if !strings.Contains(got, "missing environment variables") {
		t.Errorf("expected missing vars section, got %q", got)
	}
	if !strings.Contains(got, "validation failed") {
		t.Errorf("expected validation section, got %q", got)
	}
}
