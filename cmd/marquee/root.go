package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "dev"

var (
	configPath  string
	jsonOutput  bool
	showMetrics bool
)

var rootCmd = &cobra.Command{
	Use:   "marquee",
	Short: "Browse TMDB movies and keep a favorites list",
	Long: `marquee - browse TMDB movies from the terminal

Popular titles, search, genre listings and movie details are served
through a local query cache; favorites persist between runs.

Set TMDB_API_KEY or point --config at a marquee.toml.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: discovered)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().BoolVar(&showMetrics, "metrics", false, "Print cache metrics after the command")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate("marquee {{.Version}}\n")
}

// withApp builds the application for one command, runs fn, and shuts the
// application down afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	runErr := fn(cmd.Context(), a)
	if err := a.Close(); err != nil {
		a.log.Warn("shutdown", "error", err)
	}
	if showMetrics {
		if err := printMetrics(cmd.ErrOrStderr(), a.registry); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}
	return runErr
}
