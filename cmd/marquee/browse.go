package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vmunix/marquee/internal/movie"
)

var popularCmd = &cobra.Command{
	Use:   "popular",
	Short: "Show the current popular movies",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			movies, err := a.catalog.Popular(ctx)
			if err != nil {
				return fmt.Errorf("popular: %w", err)
			}
			return printMovies(cmd.OutOrStdout(), "Popular movies", movies)
		})
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>...",
	Short: "Search movies by title",
	Long: `Search movies by title. Queries shorter than three characters
are not sent.

Examples:
  marquee search matrix
  marquee search "le fabuleux destin"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q := strings.Join(args, " ")
		return withApp(cmd, func(ctx context.Context, a *app) error {
			movies, err := a.catalog.Search(ctx, q)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			return printMovies(cmd.OutOrStdout(), fmt.Sprintf("Results for %q", q), movies)
		})
	},
}

var genreCmd = &cobra.Command{
	Use:   "genre <name>",
	Short: "Show popular movies of a genre",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := strings.Join(args, " ")
		return withApp(cmd, func(ctx context.Context, a *app) error {
			movies, err := a.catalog.ByGenre(ctx, name)
			if err != nil {
				return fmt.Errorf("genre: %w", err)
			}
			if len(movies) == 0 && !jsonOutput {
				if s, ok := a.catalog.Suggest(ctx, name); ok {
					fmt.Fprintf(cmd.OutOrStdout(), "No genre %q. Did you mean %q?\n", name, s)
					return nil
				}
			}
			return printMovies(cmd.OutOrStdout(), "Genre "+name, movies)
		})
	},
}

var genresCmd = &cobra.Command{
	Use:   "genres",
	Short: "List available genres",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			names, err := a.catalog.Genres(ctx)
			if err != nil {
				return fmt.Errorf("genres: %w", err)
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), names)
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		})
	},
}

var detailsCmd = &cobra.Command{
	Use:   "details <id>",
	Short: "Show the details of a movie",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			d, err := a.catalog.Details(ctx, args[0])
			if err != nil {
				return fmt.Errorf("details: %w", err)
			}
			fav, err := a.favorites.Contains(ctx, args[0])
			if err != nil {
				return err
			}
			return printDetail(cmd.OutOrStdout(), d, fav)
		})
	},
}

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Show popular movies followed by further pages",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		pages, _ := cmd.Flags().GetInt("pages")
		return withApp(cmd, func(ctx context.Context, a *app) error {
			movies, err := loadFeed(ctx, a, pages)
			if err != nil {
				return fmt.Errorf("feed: %w", err)
			}
			title := "Feed"
			if a.catalog.HasMore() {
				title += " (more available)"
			}
			return printMovies(cmd.OutOrStdout(), title, movies)
		})
	},
}

// loadFeed loads up to pages feed pages and returns the merged feed.
func loadFeed(ctx context.Context, a *app, pages int) ([]movie.Movie, error) {
	if _, err := a.catalog.Feed(ctx); err != nil {
		return nil, err
	}
	for i := 1; i < pages && a.catalog.HasMore(); i++ {
		if _, err := a.catalog.LoadMore(ctx); err != nil {
			return nil, err
		}
	}
	return a.catalog.Feed(ctx)
}

func init() {
	feedCmd.Flags().Int("pages", 2, "Number of feed pages to load")

	rootCmd.AddCommand(popularCmd, searchCmd, genreCmd, genresCmd, detailsCmd, feedCmd)
}
