package paginator

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/config"
	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/fixture"
	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/identity"
	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/render"
	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/sink"
	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/standings"
)

const (
	current  = "2024-2025"
	previous = "2023-2024"
)

// fakeRenderer serves pages keyed by "<season id>|<match-day>".
type fakeRenderer struct {
	pages map[string]string
	fail  map[string]error
	calls []string
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{pages: map[string]string{}, fail: map[string]error{}}
}

func pageKey(seasonName, matchDay string) string {
	s, err := config.LookupSeason(seasonName)
	if err != nil {
		panic(err)
	}
	return s.ID + "|" + matchDay
}

func (f *fakeRenderer) Render(_ context.Context, rawURL string, _ render.Ready) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	key := u.Query().Get("season") + "|" + u.Query().Get("match-day")
	f.calls = append(f.calls, key)
	if err := f.fail[key]; err != nil {
		return "", err
	}
	markup, ok := f.pages[key]
	if !ok {
		return "", fmt.Errorf("no page for %s", key)
	}
	return markup, nil
}

type day struct {
	id, iso  string
	selected bool
}

func fixturesPage(days []day, matches ...[2]string) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="c-date-picker-timeline"><ul>`)
	for _, d := range days {
		class := "c-date-picker-timeline__item"
		if d.selected {
			class += " is-initial-selected is-selected"
		}
		fmt.Fprintf(&b, `<li class="%s"><a class="js-fixture-date" id="%s"><time datetime="%sT00:00:00Z">%s</time></a></li>`,
			class, d.id, d.iso, d.iso)
	}
	b.WriteString(`</ul></div>`)
	for _, m := range matches {
		fmt.Fprintf(&b, `<div class="c-match-detail-card__container"><div class="c-fixture">`+
			`<div class="c-fixture__badge-before"><span class="c-badge__label">%s</span></div>`+
			`<div class="c-fixture__body"><span class="c-fixture__time">14:00</span></div>`+
			`<div class="c-fixture__badge-after"><span class="c-badge__label">%s</span></div>`+
			`</div></div>`, m[0], m[1])
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

type memorySink struct {
	batches [][]fixture.Record
	err     error
}

func (m *memorySink) WriteFixtures(_ context.Context, records []fixture.Record) error {
	if m.err != nil {
		return m.err
	}
	m.batches = append(m.batches, records)
	return nil
}

func (m *memorySink) Close() error { return nil }

type recordingReporter struct {
	nopReporter
	errors    []string
	completed []SeasonSummary
}

func (r *recordingReporter) OnSeasonError(season string, _ error) {
	r.errors = append(r.errors, season)
}

func (r *recordingReporter) OnSeasonComplete(s SeasonSummary) {
	r.completed = append(r.completed, s)
}

func newTestPaginator(r render.Renderer, s *memorySink, rep Reporter) *Paginator {
	opts := Options{Renderer: r, Reporter: rep, BaseURL: "https://hockey.test/competitions"}
	if s != nil {
		opts.FixtureSink = s
	}
	return New(opts)
}

var widget = []day{
	{id: "md-1", iso: "2024-09-14"},
	{id: "md-2", iso: "2024-09-21", selected: true},
	{id: "md-3", iso: "2024-09-28"},
}

func TestRun_WalksEveryDateOnce(t *testing.T) {
	r := newFakeRenderer()
	r.pages[pageKey(current, "")] = fixturesPage(widget, [2]string{"Blue Sticks", "Red Mallets"})
	r.pages[pageKey(current, "md-1")] = fixturesPage(widget, [2]string{"Green Hooks", "Yellow Flicks"})
	// The last page reveals a further date.
	r.pages[pageKey(current, "md-3")] = fixturesPage(
		append(widget, day{id: "md-4", iso: "2024-10-05"}),
		[2]string{"Orange Drags", "Purple Pushes"},
	)
	r.pages[pageKey(current, "md-4")] = fixturesPage(append(widget, day{id: "md-4", iso: "2024-10-05"}))

	s := &memorySink{}
	p := newTestPaginator(r, s, nil)

	result, err := p.Run(context.Background(), []string{current})
	require.NoError(t, err)

	assert.Equal(t, []string{
		pageKey(current, ""), pageKey(current, "md-1"), pageKey(current, "md-3"), pageKey(current, "md-4"),
	}, r.calls, "selected date is not re-rendered; discovered dates are followed")

	require.Len(t, result.Records, 3)
	assert.Equal(t, "2024-09-21", result.Records[0].WeekDate)
	assert.Equal(t, "2024-09-14", result.Records[1].WeekDate)
	assert.Equal(t, "2024-09-28", result.Records[2].WeekDate)
	assert.Len(t, s.batches, 3, "one durable write per page with new records")

	require.Len(t, result.Seasons, 1)
	assert.Equal(t, 4, result.Seasons[0].Pages)
	assert.Equal(t, 3, result.Seasons[0].Records)
}

func TestProcessPage_SameFixtureOnTwoPages(t *testing.T) {
	days := []day{{id: "a", iso: "2024-09-21", selected: true}}
	first, err := render.ParseHTML(fixturesPage(days, [2]string{"Blue Sticks", "Red Mallets"}))
	require.NoError(t, err)
	second, err := render.ParseHTML(fixturesPage(days,
		[2]string{"Blue Sticks", "Red Mallets"}, [2]string{"Green Hooks", "Yellow Flicks"}))
	require.NoError(t, err)

	s := &memorySink{}
	p := newTestPaginator(newFakeRenderer(), s, nil)
	idx := identity.NewIndex()
	var summary SeasonSummary

	admitted, err := p.processPage(context.Background(), first, current, "2024-09-21", idx, &summary)
	require.NoError(t, err)
	assert.Len(t, admitted, 1)

	admitted, err = p.processPage(context.Background(), second, current, "2024-09-21", idx, &summary)
	require.NoError(t, err)
	require.Len(t, admitted, 1)
	assert.Equal(t, "Green Hooks", admitted[0].HomeTeam)

	assert.Equal(t, 1, summary.Duplicates)
	require.Len(t, s.batches, 2)
	assert.Len(t, s.batches[1], 1, "the repeat never reaches the sink")
}

func TestRun_FailedDateIsSkipped(t *testing.T) {
	r := newFakeRenderer()
	r.pages[pageKey(current, "")] = fixturesPage(widget, [2]string{"Blue Sticks", "Red Mallets"})
	r.fail[pageKey(current, "md-1")] = errors.New("navigation timeout")
	r.pages[pageKey(current, "md-3")] = fixturesPage(widget, [2]string{"Green Hooks", "Yellow Flicks"})

	p := newTestPaginator(r, &memorySink{}, nil)

	result, err := p.Run(context.Background(), []string{current})
	require.NoError(t, err)

	assert.Len(t, result.Records, 2)
	assert.Equal(t, 1, result.Seasons[0].Failures)
}

func TestRun_UnknownAndFailingSeasonsDoNotStopRun(t *testing.T) {
	r := newFakeRenderer()
	r.fail[pageKey(current, "")] = errors.New("browser crashed")
	r.pages[pageKey(previous, "")] = fixturesPage(
		[]day{{id: "x", iso: "2023-10-07", selected: true}},
		[2]string{"Blue Sticks", "Red Mallets"},
	)

	rep := &recordingReporter{}
	p := newTestPaginator(r, &memorySink{}, rep)

	result, err := p.Run(context.Background(), []string{"1999-2000", current, previous})
	require.NoError(t, err)

	require.Len(t, result.Records, 1)
	assert.Equal(t, previous, result.Records[0].Season)
	assert.Equal(t, []string{"1999-2000", current}, rep.errors)

	require.Len(t, result.Seasons, 3)
	assert.True(t, result.Seasons[0].Skipped)
	assert.Equal(t, 1, result.Seasons[1].Failures)
	assert.True(t, result.Seasons[1].Failed)
	assert.Equal(t, 1, result.Seasons[2].Records)

	require.Len(t, rep.completed, 1, "a season whose initial page failed is not reported complete")
	assert.Equal(t, previous, rep.completed[0].Season)
}

func TestRun_PersistenceFailureStopsRun(t *testing.T) {
	r := newFakeRenderer()
	r.pages[pageKey(current, "")] = fixturesPage(widget, [2]string{"Blue Sticks", "Red Mallets"})

	diskFull := errors.New("disk full")
	p := newTestPaginator(r, &memorySink{err: diskFull}, nil)

	_, err := p.Run(context.Background(), []string{current, previous})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, diskFull)
	assert.Equal(t, []string{pageKey(current, "")}, r.calls)
}

func TestRun_PersistenceFailureKeepsAdmittedRecords(t *testing.T) {
	r := newFakeRenderer()
	r.pages[pageKey(current, "")] = fixturesPage(
		[]day{{id: "x", iso: "2024-09-21", selected: true}},
		[2]string{"Blue Sticks", "Red Mallets"},
	)

	written := &memorySink{}
	p := New(Options{
		Renderer:    r,
		FixtureSink: sink.FixtureFanout{written, &memorySink{err: errors.New("database is locked")}},
		BaseURL:     "https://hockey.test/competitions",
	})

	result, err := p.Run(context.Background(), []string{current, previous})

	require.ErrorIs(t, err, ErrPersistence)
	require.Len(t, written.batches, 1, "the CSV side of the fan-out already holds the page")
	assert.Len(t, result.Records, 1)
	require.Len(t, result.Seasons, 1)
	assert.Equal(t, 1, result.Seasons[0].Records)
}

func TestRun_OptionalSinkFailureDoesNotStopRun(t *testing.T) {
	r := newFakeRenderer()
	r.pages[pageKey(current, "")] = fixturesPage(
		[]day{{id: "x", iso: "2024-09-21", selected: true}},
		[2]string{"Blue Sticks", "Red Mallets"},
	)
	r.pages[pageKey(previous, "")] = fixturesPage(
		[]day{{id: "y", iso: "2023-10-07", selected: true}},
		[2]string{"Green Hooks", "Grey Flicks"},
	)

	written := &memorySink{}
	stream := &memorySink{err: errors.New("redis: connection refused")}
	p := New(Options{
		Renderer:    r,
		FixtureSink: sink.FixtureFanout{written, sink.NewOptionalFixtures("stream", stream, nil)},
		BaseURL:     "https://hockey.test/competitions",
	})

	result, err := p.Run(context.Background(), []string{current, previous})
	require.NoError(t, err)

	assert.Len(t, result.Records, 2)
	assert.Len(t, written.batches, 2)
	require.Len(t, result.Seasons, 2)
	assert.Equal(t, 1, result.Seasons[1].Records)
}

func TestRun_PageLimit(t *testing.T) {
	r := newFakeRenderer()
	var days []day
	for i := 1; i <= 10; i++ {
		days = append(days, day{id: fmt.Sprintf("md-%d", i), iso: fmt.Sprintf("2024-10-%02d", i), selected: i == 1})
	}
	for _, d := range days {
		key := d.id
		if d.selected {
			key = ""
		}
		r.pages[pageKey(current, key)] = fixturesPage(days)
	}

	p := New(Options{Renderer: r, MaxPagesPerSeason: 4})

	result, err := p.Run(context.Background(), []string{current})
	require.NoError(t, err)
	assert.Len(t, r.calls, 4)
	assert.Equal(t, 4, result.Seasons[0].Pages)
}

func TestRun_ZeroContainersIsNotAnError(t *testing.T) {
	r := newFakeRenderer()
	r.pages[pageKey(current, "")] = fixturesPage([]day{{id: "a", iso: "2024-09-21", selected: true}})

	s := &memorySink{}
	p := newTestPaginator(r, s, nil)

	result, err := p.Run(context.Background(), []string{current})
	require.NoError(t, err)
	assert.Empty(t, result.Records)
	assert.Empty(t, s.batches)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newTestPaginator(newFakeRenderer(), nil, nil)
	_, err := p.Run(ctx, []string{current})
	assert.ErrorIs(t, err, context.Canceled)
}

// filterRenderer records filter forms and serves one table for every request.
type filterRenderer struct {
	fakeRenderer
	table string
	forms []render.FilterForm
}

func (f *filterRenderer) Render(_ context.Context, rawURL string, _ render.Ready) (string, error) {
	f.calls = append(f.calls, rawURL)
	return f.table, nil
}

func (f *filterRenderer) RenderWithFilters(_ context.Context, rawURL string, form render.FilterForm, _ render.Ready) (string, error) {
	f.forms = append(f.forms, form)
	return f.table, nil
}

type memoryStandings struct {
	rows []standings.Row
}

func (m *memoryStandings) WriteStandings(_ context.Context, rows []standings.Row) error {
	m.rows = append(m.rows, rows...)
	return nil
}

func (m *memoryStandings) Close() error { return nil }

const tableMarkup = `<html><body><div class="c-table-container"><table>
<thead><tr><th></th><th><span class="u-hide u-inline-block@lg">Team</span></th></tr></thead>
<tbody>
<tr><td>1</td><td>Blue Sticks</td><td>18</td><td>14</td><td>3</td><td>1</td><td>52</td><td>12</td><td>40</td><td>45</td></tr>
<tr><td>2</td><td>Red Mallets</td><td>18</td><td>12</td><td>2</td><td>4</td><td>40</td><td>21</td><td>19</td><td>38</td></tr>
</tbody></table></div></body></html>`

func TestRunTables(t *testing.T) {
	r := &filterRenderer{table: tableMarkup}
	out := &memoryStandings{}
	p := New(Options{Renderer: r, StandingsSink: out})

	result, err := p.RunTables(context.Background(), []string{current, previous})
	require.NoError(t, err)

	require.Len(t, r.forms, 1, "only the current season is driven through the filters")
	assert.Equal(t, ".js-competition-filters-apply", r.forms[0].ApplySelector)
	assert.Equal(t, render.Filter{ElementID: "season", Value: config.Seasons[0].ID}, r.forms[0].Selects[0])
	assert.Equal(t, "London Women's Premier Division", r.forms[0].Selects[2].Text)
	require.Len(t, r.calls, 1)
	assert.Contains(t, r.calls[0], "season="+config.Seasons[1].ID)

	require.Len(t, result.Rows, 4, "seasons are concatenated, never merged")
	assert.Equal(t, current, result.Rows[0].Season)
	assert.Equal(t, previous, result.Rows[3].Season)
	assert.Len(t, out.rows, 4)
}

type failingStandings struct{ err error }

func (f failingStandings) WriteStandings(context.Context, []standings.Row) error { return f.err }
func (f failingStandings) Close() error                                          { return nil }

func TestRunTables_PersistenceFailureKeepsRows(t *testing.T) {
	r := &filterRenderer{table: tableMarkup}
	written := &memoryStandings{}
	p := New(Options{
		Renderer:      r,
		StandingsSink: sink.StandingsFanout{written, failingStandings{err: errors.New("disk full")}},
	})

	result, err := p.RunTables(context.Background(), []string{current, previous})

	require.ErrorIs(t, err, ErrPersistence)
	assert.Len(t, written.rows, 2)
	assert.Len(t, result.Rows, 2)
	require.Len(t, result.Seasons, 1)
	assert.Equal(t, 2, result.Seasons[0].Records)
}

func TestRunTables_HTTPRendererFallsBackToURL(t *testing.T) {
	r := newFakeRenderer()
	r.pages[pageKey(current, "")] = tableMarkup

	p := New(Options{Renderer: r})

	result, err := p.RunTables(context.Background(), []string{current})
	require.NoError(t, err)
	assert.Len(t, result.Rows, 2)
}
