package main

import (
	"log"
	"os"
	"time"

	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/paginator"
	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/timeline"
)

// consoleReporter prints run progress for a person watching the terminal.
type consoleReporter struct {
	out *log.Logger
}

func newConsoleReporter() *consoleReporter {
	return &consoleReporter{out: log.New(os.Stdout, "", log.LstdFlags)}
}

func (r *consoleReporter) OnSeasonStart(season string, index, total int) {
	r.out.Printf("Processing season %s (%d/%d)", season, index+1, total)
}

func (r *consoleReporter) OnDateStart(season string, date timeline.DateDescriptor, index, total int) {
	label := date.Text
	if label == "" {
		label = date.ISODate
	}
	r.out.Printf("  Date %d/%d: %s", index+1, total, label)
}

func (r *consoleReporter) OnPageProcessed(season, weekDate string, extracted, admitted int) {
	if weekDate == "" {
		r.out.Printf("  ✓ %d rows", admitted)
		return
	}
	r.out.Printf("  ✓ %s: %d fixtures, %d new", weekDate, extracted, admitted)
}

func (r *consoleReporter) OnSeasonComplete(s paginator.SeasonSummary) {
	r.out.Printf("✓ Season %s complete: %d records from %d pages in %s",
		s.Season, s.Records, s.Pages, s.Elapsed.Round(time.Second))
}

func (r *consoleReporter) OnSeasonError(season string, err error) {
	r.out.Printf("⚠️  Season %s: %v", season, err)
}
