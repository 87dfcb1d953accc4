package paginator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/config"
	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/render"
)

// RunTables scrapes each named season's league table. Seasons that fail to load
// contribute no rows; rows are concatenated in season order.
func (p *Paginator) RunTables(ctx context.Context, seasonNames []string) (TableResult, error) {
	var result TableResult

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

		started := time.Now()
		summary := SeasonSummary{Season: name, Pages: 1}

		doc, err := p.loadTable(ctx, season)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			summary.Failures++
			summary.Failed = true
			summary.Elapsed = time.Since(started)
			p.logger.Error("failed to load table page", "season", name, "error", err)
			p.reporter.OnSeasonError(name, err)
			result.Seasons = append(result.Seasons, summary)
			continue
		}

		rows := p.standings.Extract(doc, name)
		result.Rows = append(result.Rows, rows...)
		summary.Records = len(rows)

		if len(rows) > 0 && p.standingsSink != nil {
			if err := p.standingsSink.WriteStandings(ctx, rows); err != nil {
				err = fmt.Errorf("%w: writing %d table rows for %s: %w", ErrPersistence, len(rows), name, err)
				summary.Elapsed = time.Since(started)
				result.Seasons = append(result.Seasons, summary)
				p.reporter.OnSeasonError(name, err)
				return result, err
			}
		}

		summary.Elapsed = time.Since(started)
		result.Seasons = append(result.Seasons, summary)

		p.reporter.OnPageProcessed(name, "", len(rows), len(rows))
		p.reporter.OnSeasonComplete(summary)
	}

	return result, nil
}

// loadTable renders the season's table page, driving the filter form for seasons
// whose page ignores the URL parameters.
func (p *Paginator) loadTable(ctx context.Context, season config.Season) (*goquery.Document, error) {
	url := season.TableURL(p.baseURL)
	ready := render.Ready{Selector: "table", GoneSelector: loaderSelector, Timeout: p.pageTimeout}

	if season.TableViaFilters {
		if fr, ok := p.renderer.(render.FilterRenderer); ok {
			p.logger.Info("loading table via filters", "season", season.Name)
			markup, err := fr.RenderWithFilters(ctx, url, tableFilters(season), ready)
			if !errors.Is(err, render.ErrFiltersUnsupported) {
				if err != nil {
					return nil, err
				}
				return render.ParseHTML(markup)
			}
		}
		p.logger.Warn("renderer cannot apply filters, using direct URL", "season", season.Name)
	}

	p.logger.Info("loading table", "season", season.Name, "url", url)
	markup, err := p.renderer.Render(ctx, url, ready)
	if err != nil {
		return nil, err
	}
	return render.ParseHTML(markup)
}

func tableFilters(season config.Season) render.FilterForm {
	return render.FilterForm{
		Selects: []render.Filter{
			{ElementID: "season", Value: season.ID},
			{ElementID: "competition-group", Text: season.CompetitionGroupLabel},
			{ElementID: "competition", Text: season.CompetitionLabel},
		},
		ApplySelector: filtersApplySelector,
	}
}
