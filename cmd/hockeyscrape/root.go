package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/config"
)

// newRootCmd builds the command tree. Flag defaults come from cfg, so the
// environment sets defaults and flags override them.
func newRootCmd(cfg *config.Config) *cobra.Command {
	var noHeadless bool

	cmd := &cobra.Command{
		Use:     serviceName,
		Short:   "Scrape hockey league fixtures, results and tables",
		Version: serviceVersion,
		Long: `hockeyscrape renders the league's fixtures and table pages, walks every
match date of each season and writes the results to timestamped CSV files,
optionally mirroring them to a database, a Redis stream and websocket clients.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if noHeadless {
				cfg.Headless = false
			}
			slog.SetDefault(newLogger(cfg.Debug))
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&cfg.OutputDir, "output", cfg.OutputDir, "Directory for CSV output and debug captures")
	flags.BoolVar(&noHeadless, "no-headless", !cfg.Headless, "Show the browser window")
	flags.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Debug logging; save HTML and a screenshot per page")
	flags.StringVar(&cfg.Season, "season", cfg.Season, "Season label, comma separated labels, or 'all'")
	flags.StringVar(&cfg.Renderer, "renderer", cfg.Renderer, "Page renderer: chrome or http")
	flags.StringVar(&cfg.DatabaseURL, "db", cfg.DatabaseURL, "Database DSN (postgres://... or sqlite:path)")
	flags.StringVar(&cfg.RedisURL, "redis", cfg.RedisURL, "Redis URL for the record stream and render cache")
	flags.DurationVar(&cfg.CacheTTL, "cache-ttl", cfg.CacheTTL, "Render cache TTL; 0 disables the cache")
	flags.StringVar(&cfg.WSPort, "ws-port", cfg.WSPort, "Serve live records to websocket clients on this port")

	cmd.AddCommand(
		newFixturesCmd(cfg),
		newTableCmd(cfg),
		newPivotCmd(),
		newServeCmd(cfg),
	)
	return cmd
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
