package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
)

// DefaultEnvFiles are read by LoadEnvFiles when no paths are given.
var DefaultEnvFiles = []string{".env", ".env.local"}

// LoadEnvFiles loads variables from dotenv files so config substitution can
// see them. Missing files are skipped and variables already set in the
// environment win.
func LoadEnvFiles(paths ...string) error {
	if len(paths) == 0 {
		paths = DefaultEnvFiles
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}
