// Package paginator drives a scrape run: it renders each season's fixtures pages,
// follows the date widget until every discovered date has been visited, and hands
// newly accepted records to the sinks before moving to the next page.
package paginator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/config"
	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/fixture"
	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/identity"
	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/render"
	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/sink"
	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/standings"
	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/timeline"
)

const (
	DefaultMaxPagesPerSeason = 400

	filtersApplySelector = ".js-competition-filters-apply"
	loaderSelector       = ".c-loader"
)

// Options configures a Paginator. Only Renderer is required.
type Options struct {
	Renderer render.Renderer

	Resolver  *timeline.Resolver
	Fixtures  *fixture.Extractor
	Standings *standings.Extractor

	FixtureSink   sink.FixtureSink
	StandingsSink sink.StandingsSink
	Reporter      Reporter

	BaseURL           string
	PageTimeout       time.Duration
	SeasonDelay       time.Duration
	MaxPagesPerSeason int

	Logger *slog.Logger
}

// Paginator runs fixtures and standings traversals. It is single threaded: one
// page is rendered, extracted and persisted before the next is requested.
type Paginator struct {
	renderer  render.Renderer
	resolver  *timeline.Resolver
	fixtures  *fixture.Extractor
	standings *standings.Extractor

	fixtureSink   sink.FixtureSink
	standingsSink sink.StandingsSink
	reporter      Reporter

	baseURL     string
	pageTimeout time.Duration
	seasonDelay time.Duration
	maxPages    int

	logger *slog.Logger
}

// New creates a Paginator, filling unset collaborators with defaults.
func New(opts Options) *Paginator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &Paginator{
		renderer:      opts.Renderer,
		resolver:      opts.Resolver,
		fixtures:      opts.Fixtures,
		standings:     opts.Standings,
		fixtureSink:   opts.FixtureSink,
		standingsSink: opts.StandingsSink,
		reporter:      opts.Reporter,
		baseURL:       opts.BaseURL,
		pageTimeout:   opts.PageTimeout,
		seasonDelay:   opts.SeasonDelay,
		maxPages:      opts.MaxPagesPerSeason,
		logger:        logger,
	}

	if p.resolver == nil {
		p.resolver = timeline.NewResolver(nil, logger)
	}
	if p.fixtures == nil {
		p.fixtures = fixture.NewExtractor("", "", logger)
	}
	if p.standings == nil {
		p.standings = standings.NewExtractor(fixture.DefaultCompetitionGroup, fixture.DefaultCompetition, logger)
	}
	if p.reporter == nil {
		p.reporter = nopReporter{}
	}
	if p.baseURL == "" {
		p.baseURL = config.BaseURL
	}
	if p.pageTimeout <= 0 {
		p.pageTimeout = render.DefaultPageTimeout
	}
	if p.maxPages <= 0 {
		p.maxPages = DefaultMaxPagesPerSeason
	}

	return p
}

// Run scrapes the fixtures of each named season in order. Per-page and per-season
// failures are logged and skipped; the returned error is either ErrPersistence or
// the context's error, together with everything gathered up to that point.
func (p *Paginator) Run(ctx context.Context, seasonNames []string) (Result, error) {
	index := identity.NewIndex()
	var result Result

	for i, name := range seasonNames {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if i > 0 {
			p.pause(ctx)
		}

		p.reporter.OnSeasonStart(name, i, len(seasonNames))

		season, err := config.LookupSeason(name)
		if err != nil {
			p.logger.Error("skipping season", "season", name, "error", err)
			p.reporter.OnSeasonError(name, err)
			result.Seasons = append(result.Seasons, SeasonSummary{Season: name, Skipped: true})
			continue
		}

		records, summary, err := p.runSeason(ctx, season, index)
		result.Records = append(result.Records, records...)
		result.Seasons = append(result.Seasons, summary)
		if err != nil {
			p.reporter.OnSeasonError(name, err)
			return result, err
		}
		if summary.Failed {
			continue
		}

		p.logger.Info("completed season", "season", name, "records", summary.Records, "pages", summary.Pages)
		p.reporter.OnSeasonComplete(summary)
	}

	return result, nil
}

// runSeason walks one season's date widget. Dates found on later pages join the
// worklist; the visited set and the page cap bound the walk.
func (p *Paginator) runSeason(ctx context.Context, season config.Season, index *identity.Index) ([]fixture.Record, SeasonSummary, error) {
	started := time.Now()
	summary := SeasonSummary{Season: season.Name}

	var records []fixture.Record
	finish := func(err error) ([]fixture.Record, SeasonSummary, error) {
		summary.Elapsed = time.Since(started)
		summary.Records = len(records)
		return records, summary, err
	}

	initialURL := season.FixturesURL(p.baseURL, "")
	p.logger.Info("processing season", "season", season.Name, "url", initialURL)

	doc, err := p.load(ctx, initialURL, render.Ready{Timeout: p.pageTimeout})
	summary.Pages++
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return finish(ctxErr)
		}
		summary.Failures++
		summary.Failed = true
		p.logger.Error("failed to load season's initial page", "season", season.Name, "error", err)
		p.reporter.OnSeasonError(season.Name, err)
		return finish(nil)
	}

	selected := p.resolver.ResolveSelectedDate(doc)
	visited := map[string]bool{selected: true}

	admitted, err := p.processPage(ctx, doc, season.Name, selected, index, &summary)
	records = append(records, admitted...)
	if err != nil {
		return finish(err)
	}

	queued := map[string]bool{}
	var worklist []timeline.DateDescriptor
	enqueue := func(dates []timeline.DateDescriptor) {
		for _, d := range dates {
			if d.ISODate == "" || visited[d.ISODate] || queued[d.ISODate] {
				continue
			}
			queued[d.ISODate] = true
			worklist = append(worklist, d)
		}
	}
	enqueue(p.resolver.EnumerateDates(doc))
	p.logger.Info("found dates for season", "season", season.Name, "dates", len(worklist))

	for i := 0; i < len(worklist); i++ {
		if err := ctx.Err(); err != nil {
			return finish(err)
		}
		if summary.Pages >= p.maxPages {
			p.logger.Warn("page limit reached, stopping season",
				"season", season.Name, "limit", p.maxPages, "remaining", len(worklist)-i)
			break
		}

		date := worklist[i]
		visited[date.ISODate] = true
		p.reporter.OnDateStart(season.Name, date, i, len(worklist))

		doc, err := p.load(ctx, season.FixturesURL(p.baseURL, date.ID), render.Ready{Timeout: p.pageTimeout})
		summary.Pages++
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return finish(ctxErr)
			}
			summary.Failures++
			p.logger.Warn("failed to load date, continuing", "season", season.Name, "date", date.ISODate, "error", err)
			continue
		}

		admitted, err := p.processPage(ctx, doc, season.Name, date.ISODate, index, &summary)
		records = append(records, admitted...)
		if err != nil {
			return finish(err)
		}

		enqueue(p.resolver.EnumerateDates(doc))
	}

	return finish(nil)
}

// processPage extracts, admits and persists one page's fixtures. On a sink failure
// the admitted records are still returned: earlier sinks in a fan-out may hold them.
func (p *Paginator) processPage(ctx context.Context, doc *goquery.Document, season, weekDate string, index *identity.Index, summary *SeasonSummary) ([]fixture.Record, error) {
	extracted := p.fixtures.Extract(doc, season, weekDate)

	var admitted []fixture.Record
	for _, r := range extracted {
		if !index.Admit(r) {
			summary.Duplicates++
			p.logger.Debug("skipping duplicate fixture", "key", identity.Key(r))
			continue
		}
		admitted = append(admitted, r)
	}

	if len(admitted) > 0 && p.fixtureSink != nil {
		if err := p.fixtureSink.WriteFixtures(ctx, admitted); err != nil {
			return admitted, fmt.Errorf("%w: writing %d fixtures for %s %s: %w", ErrPersistence, len(admitted), season, weekDate, err)
		}
	}

	p.logger.Info("processed date", "season", season, "date", weekDate, "extracted", len(extracted), "new", len(admitted))
	p.reporter.OnPageProcessed(season, weekDate, len(extracted), len(admitted))
	return admitted, nil
}

func (p *Paginator) load(ctx context.Context, url string, ready render.Ready) (*goquery.Document, error) {
	markup, err := p.renderer.Render(ctx, url, ready)
	if err != nil {
		return nil, err
	}
	return render.ParseHTML(markup)
}

// pause waits between seasons; cancellation cuts it short.
func (p *Paginator) pause(ctx context.Context) {
	if p.seasonDelay <= 0 {
		return
	}
	t := time.NewTimer(p.seasonDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
