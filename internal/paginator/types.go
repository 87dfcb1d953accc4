package paginator

import (
	"errors"
	"time"

	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/fixture"
	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/standings"
	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/timeline"
)

// ErrPersistence wraps sink failures. It is the only per-page error that stops a run.
var ErrPersistence = errors.New("persistence failure")

// SeasonSummary counts what one season produced.
type SeasonSummary struct {
	Season     string        `json:"season"`
	Pages      int           `json:"pages"`
	Failures   int           `json:"failures"`
	Records    int           `json:"records"`
	Duplicates int           `json:"duplicates"`
	Elapsed    time.Duration `json:"elapsed"`
	Skipped    bool          `json:"skipped,omitempty"`
	// Failed marks a season whose initial page never loaded.
	Failed bool `json:"failed,omitempty"`
}

// Result is the outcome of a fixtures run, seasons concatenated in run order.
type Result struct {
	Records []fixture.Record
	Seasons []SeasonSummary
}

// TableResult is the outcome of a standings run.
type TableResult struct {
	Rows    []standings.Row
	Seasons []SeasonSummary
}

// Reporter receives lifecycle callbacks from the paginator.
type Reporter interface {
	OnSeasonStart(season string, index int, total int)
	OnDateStart(season string, date timeline.DateDescriptor, index int, total int)
	OnPageProcessed(season string, weekDate string, extracted int, admitted int)
	OnSeasonComplete(summary SeasonSummary)
	OnSeasonError(season string, err error)
}

type nopReporter struct{}

func (nopReporter) OnSeasonStart(string, int, int)                        {}
func (nopReporter) OnDateStart(string, timeline.DateDescriptor, int, int) {}
func (nopReporter) OnPageProcessed(string, string, int, int)              {}
func (nopReporter) OnSeasonComplete(SeasonSummary)                        {}
func (nopReporter) OnSeasonError(string, error)                           {}
