package sink

import (
	"context"
	"log/slog"

	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/fixture"
	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/standings"
)

// OptionalFixtures wraps a feed that mirrors the run, such as a stream or a
// websocket broadcast. Its write failures are logged and never stop the run;
// the CSV and database sinks stay the record of what was scraped.
type OptionalFixtures struct {
	name   string
	next   FixtureSink
	logger *slog.Logger
}

// NewOptionalFixtures wraps next under name for logging.
func NewOptionalFixtures(name string, next FixtureSink, logger *slog.Logger) *OptionalFixtures {
	if logger == nil {
		logger = slog.Default()
	}
	return &OptionalFixtures{name: name, next: next, logger: logger}
}

func (o *OptionalFixtures) WriteFixtures(ctx context.Context, records []fixture.Record) error {
	if err := o.next.WriteFixtures(ctx, records); err != nil {
		o.logger.Warn("optional sink write failed", "sink", o.name, "records", len(records), "error", err)
	}
	return nil
}

func (o *OptionalFixtures) Close() error { return o.next.Close() }

// OptionalStandings is OptionalFixtures for table rows.
type OptionalStandings struct {
	name   string
	next   StandingsSink
	logger *slog.Logger
}

// NewOptionalStandings wraps next under name for logging.
func NewOptionalStandings(name string, next StandingsSink, logger *slog.Logger) *OptionalStandings {
	if logger == nil {
		logger = slog.Default()
	}
	return &OptionalStandings{name: name, next: next, logger: logger}
}

func (o *OptionalStandings) WriteStandings(ctx context.Context, rows []standings.Row) error {
	if err := o.next.WriteStandings(ctx, rows); err != nil {
		o.logger.Warn("optional sink write failed", "sink", o.name, "rows", len(rows), "error", err)
	}
	return nil
}

func (o *OptionalStandings) Close() error { return o.next.Close() }
