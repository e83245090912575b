package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/helixir/paper-discovery-service/internal/discovery"
	"github.com/helixir/paper-discovery-service/internal/domain"
	"github.com/helixir/paper-discovery-service/internal/quality"
)

const maxTitleWidth = 72

type searchFlags struct {
	sources      []string
	limit        int
	minQuality   float64
	yearFrom     int
	yearTo       int
	minCitations int
	openAccess   bool
	noSmart      bool
	noCache      bool
	explain      bool
	json         bool
	timeout      time.Duration
}

// searchOutput is the --json document.
type searchOutput struct {
	SearchID string                  `json:"search_id"`
	Results  []rankedPaper           `json:"results"`
	Metrics  discovery.SearchMetrics `json:"metrics"`
}

type rankedPaper struct {
	*domain.Paper
	QualityBreakdown *quality.Breakdown `json:"quality_breakdown,omitempty"`
}

func newSearchCommand(opts *options) *cobra.Command {
	var f searchFlags

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search paper sources in parallel and rank the results",
		Long: `Search sends the query to every selected source at once, merges records
that describe the same paper and prints them ranked by quality score.

Example:
  discover search "graph neural networks"
  discover search transformers --sources arxiv,semantic_scholar --limit 10
  discover search "crispr off-target" --min-quality 0.4 --explain --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, opts, f, strings.Join(args, " "))
		},
	}

	// Source flags
	cmd.Flags().StringSliceVar(&f.sources, "sources", nil, "sources to search (default: configured sources)")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "results requested per source (default: configured value)")
	cmd.Flags().BoolVar(&f.noSmart, "no-smart", false, "disable smart filtering of each source's results")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "force a fresh search")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "overall search timeout (default: none beyond per-source timeouts)")

	// Filter flags
	cmd.Flags().Float64Var(&f.minQuality, "min-quality", -1, "minimum quality score in [0,1] (default: configured value)")
	cmd.Flags().IntVar(&f.yearFrom, "year-from", 0, "earliest publication year")
	cmd.Flags().IntVar(&f.yearTo, "year-to", 0, "latest publication year")
	cmd.Flags().IntVar(&f.minCitations, "min-citations", 0, "minimum citation count")
	cmd.Flags().BoolVar(&f.openAccess, "open-access", false, "only papers with open access or a PDF link")

	// Output flags
	cmd.Flags().BoolVar(&f.explain, "explain", false, "show the quality score breakdown")
	cmd.Flags().BoolVar(&f.json, "json", false, "print results as JSON")

	return cmd
}

func runSearch(cmd *cobra.Command, opts *options, f searchFlags, query string) error {
	sources := make([]domain.SourceType, 0, len(f.sources))
	for _, name := range f.sources {
		st, ok := domain.ParseSourceType(name)
		if !ok {
			return fmt.Errorf("unsupported source %q", name)
		}
		sources = append(sources, st)
	}
	if f.minQuality > 1 {
		return fmt.Errorf("--min-quality must be between 0 and 1")
	}

	cfg, searcher, err := opts.setup()
	if err != nil {
		return err
	}

	criteria := quality.Criteria{
		YearFrom:       f.yearFrom,
		YearTo:         f.yearTo,
		MinCitations:   f.minCitations,
		OpenAccessOnly: f.openAccess,
		MinQuality:     cfg.Quality.MinScore,
	}
	if f.minQuality >= 0 {
		criteria.MinQuality = f.minQuality
	}

	req := discovery.Request{
		Query:               query,
		Sources:             sources,
		MaxResultsPerSource: f.limit,
		SkipCache:           f.noCache,
	}
	if f.noSmart {
		smart := false
		req.SmartSearch = &smart
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	result, err := searcher.Search(ctx, req)
	if err != nil {
		return err
	}
	papers := result.Papers
	if !criteria.IsZero() {
		papers = criteria.Apply(papers)
	}

	out := cmd.OutOrStdout()
	if f.json {
		ranked := make([]rankedPaper, len(papers))
		for i, p := range papers {
			ranked[i] = rankedPaper{Paper: p}
			if f.explain {
				b := searcher.Scorer().Breakdown(p)
				ranked[i].QualityBreakdown = &b
			}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(searchOutput{SearchID: result.Metrics.SearchID, Results: ranked, Metrics: result.Metrics})
	}

	printResults(out, papers, searcher.Scorer(), f.explain)
	printSummary(out, result.Metrics, len(papers))
	return nil
}

func printResults(w io.Writer, papers []*domain.Paper, scorer *quality.Scorer, explain bool) {
	if len(papers) == 0 {
		fmt.Fprintln(w, "No papers found.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSCORE\tYEAR\tCITES\tTITLE\tVENUE\tSOURCES")
	for i, p := range papers {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			i+1,
			formatScore(p.QualityScore),
			formatOptionalInt(p.Year),
			formatCitations(p.Citations),
			truncate(p.Title, maxTitleWidth),
			truncate(p.Venue, 24),
			strings.Join(p.Sources, ","),
		)
		if explain && scorer != nil {
			b := scorer.Breakdown(p)
			fmt.Fprintf(tw, "\t\t\t\tcitations=%.2f authors=%.2f venue=%.2f recency=%.2f signals=%.2f\t\t\n",
				b.Citations, b.AuthorReputation, b.VenueQuality, b.Recency, b.AdditionalSignals)
		}
	}
	_ = tw.Flush()
}

func printSummary(w io.Writer, m discovery.SearchMetrics, shown int) {
	fmt.Fprintln(w)
	cached := ""
	if m.Cached {
		cached = " (cached)"
	}
	fmt.Fprintf(w, "%d shown, %d unique, %d raw, %d merged in %.2fs%s\n",
		shown, m.TotalResults, m.TotalRawResults, m.DuplicatesMerged, m.DurationSeconds, cached)
	for _, a := range m.Agents {
		line := fmt.Sprintf("  %-22s %-9s %3d results  %.2fs", a.Name, a.Status, a.ResultsCount, a.DurationSeconds)
		if a.Error != "" {
			line += "  " + a.Error
		}
		fmt.Fprintln(w, line)
	}
	// Per-agent failures are listed above; only search-level errors remain.
	for _, e := range m.Errors {
		if e == domain.ErrNoSources.Error() || e == domain.ErrAllSourcesFailed.Error() {
			fmt.Fprintf(w, "  error: %s\n", e)
		}
	}
}

func formatScore(score *float64) string {
	if score == nil {
		return "-"
	}
	return strconv.FormatFloat(*score, 'f', 3, 64)
}

func formatCitations(c *int) string {
	if c == nil {
		return "-"
	}
	return strconv.Itoa(*c)
}

func formatOptionalInt(v int) string {
	if v == 0 {
		return "-"
	}
	return strconv.Itoa(v)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
