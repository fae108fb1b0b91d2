package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/spf13/cobra"

	"github.com/vmunix/marquee/internal/movie"
)

var favoritesFilter string

var favoritesCmd = &cobra.Command{
	Use:     "favorites",
	Aliases: []string{"fav"},
	Short:   "Manage favorite movies",
}

var favoritesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List favorites, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			favs, err := a.favorites.List(ctx)
			if err != nil {
				return fmt.Errorf("favorites: %w", err)
			}
			if favoritesFilter != "" {
				favs = filterByTitle(favs, favoritesFilter)
			}
			return printDetails(cmd.OutOrStdout(), favs)
		})
	},
}

// filterByTitle keeps the favorites whose title fuzzily contains q, closest
// first. Accents and case are ignored.
func filterByTitle(favs []movie.Detail, q string) []movie.Detail {
	titles := make([]string, len(favs))
	for i, f := range favs {
		titles[i] = f.Title
	}

	ranks := fuzzy.RankFindNormalizedFold(q, titles)
	sort.SliceStable(ranks, func(i, j int) bool {
		return ranks[i].Distance < ranks[j].Distance
	})

	out := make([]movie.Detail, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, favs[r.OriginalIndex])
	}
	return out
}

var favoritesAddCmd = &cobra.Command{
	Use:   "add <id>...",
	Short: "Add movies to favorites",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			a.catalog.PrefetchDetails(ctx, args...)
			for _, id := range args {
				d, err := a.catalog.Details(ctx, id)
				if err != nil {
					return fmt.Errorf("details %s: %w", id, err)
				}
				if d == nil {
					return fmt.Errorf("details %q: empty id", id)
				}
				if err := a.favorites.Add(ctx, *d); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", d.Title, d.Year)
			}
			return nil
		})
	},
}

var favoritesRemoveCmd = &cobra.Command{
	Use:     "remove <id>...",
	Aliases: []string{"rm"},
	Short:   "Remove movies from favorites",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			for _, id := range args {
				if err := a.favorites.Remove(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", id)
			}
			return nil
		})
	},
}

var favoritesRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Reload favorites from storage",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			a.favorites.Refresh()
			favs, err := a.favorites.List(ctx)
			if err != nil {
				return fmt.Errorf("favorites: %w", err)
			}
			return printDetails(cmd.OutOrStdout(), favs)
		})
	},
}

func init() {
	favoritesListCmd.Flags().StringVarP(&favoritesFilter, "filter", "f", "", "only show titles matching this text")
	favoritesCmd.AddCommand(favoritesListCmd, favoritesAddCmd, favoritesRemoveCmd, favoritesRefreshCmd)
	rootCmd.AddCommand(favoritesCmd)
}
