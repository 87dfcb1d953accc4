package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/api/websocket"
	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/config"
	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/fixture"
	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/paginator"
	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/sink"
	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/standings"
	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/store"
	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/store/repository"
	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/timeline"
)

func newFixturesCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "fixtures",
		Short: "Scrape every match date of the selected seasons",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFixtures(cmd.Context(), cfg)
		},
	}
}

func newTableCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "table",
		Short: "Scrape the league table of the selected seasons",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTable(cmd.Context(), cfg)
		},
	}
}

func runFixtures(ctx context.Context, cfg *config.Config) error {
	seasons := config.SeasonNames(cfg.Season)
	s, err := openSession(ctx, cfg, store.RunKindFixtures, seasons)
	if err != nil {
		return err
	}
	defer s.close()

	csvSink, err := sink.NewFixtureCSV(cfg.OutputDir, s.started)
	if err != nil {
		s.finish(0, err)
		return err
	}
	log.Printf("✓ Writing fixtures to %s", csvSink.Path())

	sinks := sink.FixtureFanout{csvSink}
	if s.db != nil {
		sinks = append(sinks, repository.NewFixtureRepository(s.db).Sink(s.runID))
	}
	if pub := s.publisher(); pub != nil {
		sinks = append(sinks, sink.NewOptionalFixtures("stream", pub, s.logger))
	}
	if s.ws != nil {
		sinks = append(sinks, sink.NewOptionalFixtures("websocket", websocket.NewBroadcastSink(s.ws.Hub(), s.runID), s.logger))
	}
	s.track("fixture sinks", sinks)

	p := paginator.New(paginator.Options{
		Renderer:          s.renderer,
		Resolver:          timeline.NewResolver(nil, s.logger),
		Fixtures:          fixture.NewExtractor(cfg.CompetitionGroup, cfg.DefaultCompetition, s.logger),
		FixtureSink:       sinks,
		Reporter:          newConsoleReporter(),
		BaseURL:           cfg.BaseURL,
		PageTimeout:       cfg.PageTimeout,
		SeasonDelay:       cfg.SeasonDelay,
		MaxPagesPerSeason: cfg.MaxPagesPerSeason,
		Logger:            s.logger,
	})

	result, runErr := p.Run(ctx, seasons)
	s.finish(len(result.Records), runErr)

	printSummary("Fixtures", result.Seasons, csvSink.Path(), time.Since(s.started))
	return describeRunError(runErr)
}

func runTable(ctx context.Context, cfg *config.Config) error {
	seasons := config.SeasonNames(cfg.Season)
	s, err := openSession(ctx, cfg, store.RunKindStandings, seasons)
	if err != nil {
		return err
	}
	defer s.close()

	csvSink, err := sink.NewStandingsCSV(cfg.OutputDir, s.started)
	if err != nil {
		s.finish(0, err)
		return err
	}
	log.Printf("✓ Writing table to %s", csvSink.Path())

	sinks := sink.StandingsFanout{csvSink}
	if s.db != nil {
		sinks = append(sinks, repository.NewStandingsRepository(s.db).Sink(s.runID))
	}
	if pub := s.publisher(); pub != nil {
		sinks = append(sinks, sink.NewOptionalStandings("stream", pub, s.logger))
	}
	if s.ws != nil {
		sinks = append(sinks, sink.NewOptionalStandings("websocket", websocket.NewBroadcastSink(s.ws.Hub(), s.runID), s.logger))
	}
	s.track("table sinks", sinks)

	p := paginator.New(paginator.Options{
		Renderer:      s.renderer,
		Standings:     standings.NewExtractor(cfg.CompetitionGroup, cfg.DefaultCompetition, s.logger),
		StandingsSink: sinks,
		Reporter:      newConsoleReporter(),
		BaseURL:       cfg.BaseURL,
		PageTimeout:   cfg.PageTimeout,
		SeasonDelay:   cfg.SeasonDelay,
		Logger:        s.logger,
	})

	result, runErr := p.RunTables(ctx, seasons)
	s.finish(len(result.Rows), runErr)

	printSummary("Table", result.Seasons, csvSink.Path(), time.Since(s.started))
	return describeRunError(runErr)
}

// describeRunError keeps the exit status non-zero for interrupted runs while
// pointing at the partial output that was already written.
func describeRunError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("interrupted; records gathered so far were saved: %w", err)
	case errors.Is(err, paginator.ErrPersistence):
		return fmt.Errorf("run stopped because output could not be written: %w", err)
	default:
		return err
	}
}
