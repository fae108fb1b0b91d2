package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/term"

	"github.com/vmunix/marquee/internal/movie"
)

const titleWidth = 40

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// isTerminal reports whether w is a terminal. Anything else gets plain
// columns without box drawing or truncation.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func printMovies(w io.Writer, heading string, movies []movie.Movie) error {
	if jsonOutput {
		if movies == nil {
			movies = []movie.Movie{}
		}
		return printJSON(w, movies)
	}
	if len(movies) == 0 {
		fmt.Fprintln(w, "No movies found")
		return nil
	}

	fmt.Fprintf(w, "%s (%d):\n\n", heading, len(movies))
	if !isTerminal(w) {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTITLE\tYEAR\tRATING")
		for _, m := range movies {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.ID, m.Title, m.Year, m.Rating)
		}
		return tw.Flush()
	}

	fmt.Fprintf(w, "  %-8s │ %-*s │ %4s │ %s\n", "ID", titleWidth, "TITLE", "YEAR", "RATING")
	fmt.Fprintf(w, "──────────┼─%s─┼──────┼───────\n", strings.Repeat("─", titleWidth))
	for _, m := range movies {
		fmt.Fprintf(w, "  %-8s │ %-*s │ %4s │ %s\n", m.ID, titleWidth, truncate(m.Title, titleWidth), m.Year, m.Rating)
	}
	return nil
}

func printDetails(w io.Writer, details []movie.Detail) error {
	if jsonOutput {
		if details == nil {
			details = []movie.Detail{}
		}
		return printJSON(w, details)
	}
	movies := make([]movie.Movie, len(details))
	for i, d := range details {
		movies[i] = d.Movie
	}
	return printMovies(w, "Favorites", movies)
}

func printDetail(w io.Writer, d *movie.Detail, favorite bool) error {
	if d == nil {
		return fmt.Errorf("no movie")
	}
	if jsonOutput {
		return printJSON(w, struct {
			*movie.Detail
			Favorite bool `json:"favorite"`
		}{d, favorite})
	}

	star := ""
	if favorite {
		star = " ★"
	}
	fmt.Fprintf(w, "%s (%s)%s\n\n", d.Title, d.Year, star)
	fmt.Fprintf(w, "  Rating:    %s/5\n", d.Rating)
	fmt.Fprintf(w, "  Runtime:   %s\n", d.Runtime)
	fmt.Fprintf(w, "  Certified: %s\n", d.ContentRating)
	fmt.Fprintf(w, "  Genres:    %s\n", d.Genres)
	fmt.Fprintf(w, "  Directors: %s\n", d.Directors)
	fmt.Fprintf(w, "  Stars:     %s\n", d.Stars)
	fmt.Fprintf(w, "  Poster:    %s\n\n", d.Image)
	fmt.Fprintln(w, d.Plot)
	return nil
}

// printMetrics writes every counter and histogram count in g as
// name{labels} value, sorted by name.
func printMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}

	var lines []string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			name := mf.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}
			switch {
			case m.GetCounter() != nil:
				lines = append(lines, fmt.Sprintf("%s %g", name, m.GetCounter().GetValue()))
			case m.GetHistogram() != nil:
				lines = append(lines, fmt.Sprintf("%s count=%d sum=%gs", name, m.GetHistogram().GetSampleCount(), m.GetHistogram().GetSampleSum()))
			}
		}
	}
	sort.Strings(lines)
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
	return nil
}
