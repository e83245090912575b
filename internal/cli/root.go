// Package cli implements the discover command-line tool.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/helixir/paper-discovery-service/internal/config"
	"github.com/helixir/paper-discovery-service/internal/discovery"
	"github.com/helixir/paper-discovery-service/internal/observability"
	"github.com/helixir/paper-discovery-service/internal/quality"
)

// Version is set at build time with -ldflags "-X .../internal/cli.Version=...".
var Version = "dev"

// Searcher is the discovery surface the commands use.
type Searcher interface {
	Search(ctx context.Context, req discovery.Request) (*discovery.Result, error)
	Agents() []discovery.AgentInfo
	Scorer() *quality.Scorer
}

// SearcherFactory builds a Searcher from loaded configuration.
type SearcherFactory func(cfg *config.Config, logger zerolog.Logger) (Searcher, error)

// options holds the persistent flags shared by every subcommand.
type options struct {
	cfgFile string
	verbose bool
	factory SearcherFactory
}

// NewRootCommand returns the discover root command. A nil factory wires the
// configured paper sources.
func NewRootCommand(factory SearcherFactory) *cobra.Command {
	if factory == nil {
		factory = func(cfg *config.Config, logger zerolog.Logger) (Searcher, error) {
			return discovery.NewFromConfig(cfg, logger, nil)
		}
	}
	opts := &options{factory: factory}

	root := &cobra.Command{
		Use:   "discover",
		Short: "Search several academic paper sources at once",
		Long: `discover sends a query to Semantic Scholar, arXiv, OpenAlex, Crossref,
CORE and PubMed in parallel, merges duplicate records across sources and
ranks the result by a composite quality score.

Configuration is read from config.yaml (., ./config or
/etc/paper-discovery-service) and DISCOVERY_* environment variables.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	// Global flags
	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default: search standard locations)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log source activity to stderr")

	// Subcommands
	root.AddCommand(newSearchCommand(opts))
	root.AddCommand(newSourcesCommand(opts))
	root.AddCommand(newVersionCommand())

	return root
}

// setup loads configuration and builds the searcher.
func (o *options) setup() (*config.Config, Searcher, error) {
	cfg, err := config.LoadFile(o.cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	level := "warn"
	if o.verbose {
		level = "debug"
	}
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      level,
		Format:     "console",
		Output:     "stderr",
		TimeFormat: time.Kitchen,
	})

	searcher, err := o.factory(cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("build searcher: %w", err)
	}
	return cfg, searcher, nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "discover %s\n", Version)
		},
	}
}
