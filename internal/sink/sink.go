// Package sink persists accepted records as they are found. Every write is durable
// before it returns, so a crash loses at most the page being processed.
package sink

import (
	"context"
	"errors"

	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/fixture"
	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/standings"
)

// FixtureSink receives newly admitted fixtures, one page at a time.
type FixtureSink interface {
	WriteFixtures(ctx context.Context, records []fixture.Record) error
	Close() error
}

// StandingsSink receives one season's table rows at a time.
type StandingsSink interface {
	WriteStandings(ctx context.Context, rows []standings.Row) error
	Close() error
}

// FixtureFanout writes every batch to each sink in order.
type FixtureFanout []FixtureSink

// WriteFixtures writes to all sinks and returns the first error.
func (f FixtureFanout) WriteFixtures(ctx context.Context, records []fixture.Record) error {
	var first error
	for _, s := range f {
		if err := s.WriteFixtures(ctx, records); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Close closes every sink.
func (f FixtureFanout) Close() error {
	var errs []error
	for _, s := range f {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}

// StandingsFanout writes every batch to each sink in order.
type StandingsFanout []StandingsSink

// WriteStandings writes to all sinks and returns the first error.
func (f StandingsFanout) WriteStandings(ctx context.Context, rows []standings.Row) error {
	var first error
	for _, s := range f {
		if err := s.WriteStandings(ctx, rows); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Close closes every sink.
func (f StandingsFanout) Close() error {
	var errs []error
	for _, s := range f {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}
