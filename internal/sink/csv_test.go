package sink

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/fixture"
	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/standings"
)

var runStart = time.Date(2025, 3, 8, 14, 5, 9, 0, time.UTC)

func sampleRecords() []fixture.Record {
	return []fixture.Record{
		{
			Season: "2024-2025", CompetitionGroup: "LONDON HOCKEY LEAGUE WOMENS", Competition: "London Women's Premier Division",
			WeekDate: "2024-09-21", HomeTeam: "Blue Sticks", AwayTeam: "Red Mallets", HomeScore: "3", AwayScore: "1",
			HomeBadgeURL: "https://cdn.example.org/a.png", AwayBadgeURL: "https://cdn.example.org/b.png",
			Location: "Paddington Rec, Pitch 2", TimeOfMatch: fixture.TimeCompleted, Status: fixture.StatusCompleted,
		},
		{
			Season: "2024-2025", CompetitionGroup: "LONDON HOCKEY LEAGUE WOMENS", Competition: "London Women's Premier Division",
			WeekDate: "2024-09-28", HomeTeam: `The "Quoted" XI`, AwayTeam: "Green Hooks",
			TimeOfMatch: "14:30", Status: fixture.StatusScheduled,
		},
		{
			Season: "2024-2025", CompetitionGroup: "LONDON HOCKEY LEAGUE WOMENS", Competition: "London Women's Premier Division",
			WeekDate: "2024-10-05", HomeTeam: "Yellow Flicks", AwayTeam: "Orange Drags", Status: fixture.StatusUnknown,
		},
	}
}

func TestFixtureCSV_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	s, err := NewFixtureCSV(dir, runStart)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "hockey_league_data_20250308_140509.csv"), s.Path())

	records := sampleRecords()
	ctx := context.Background()
	require.NoError(t, s.WriteFixtures(ctx, records[:1]))
	require.NoError(t, s.WriteFixtures(ctx, nil))

	// Durable before Close: the first page is readable while the run continues.
	f, err := os.Open(s.Path())
	require.NoError(t, err)
	partial, err := ReadFixtures(f)
	f.Close()
	require.NoError(t, err)
	assert.Len(t, partial, 1)

	require.NoError(t, s.WriteFixtures(ctx, records[1:]))
	require.NoError(t, s.Close())

	f, err = os.Open(s.Path())
	require.NoError(t, err)
	defer f.Close()
	got, err := ReadFixtures(f)
	require.NoError(t, err)

	if diff := cmp.Diff(records, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestFixtureCSV_HeaderOnly(t *testing.T) {
	s, err := NewFixtureCSV(t.TempDir(), runStart)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, "Season,Competition Group,Competition,Week Date,Home Team,Away Team,Home Team Score,Away Team Score,Home Team Badge,Away Team Badge,Fixture Location,Time of Match\n", string(data))
}

func TestStandingsCSV(t *testing.T) {
	s, err := NewStandingsCSV(t.TempDir(), runStart)
	require.NoError(t, err)

	played, points := 18, 45
	rows := []standings.Row{
		{Season: "2024-2025", CompetitionGroup: "G", Competition: "C", Position: 1, Team: "Blue Sticks", Played: &played, Points: &points},
	}
	require.NoError(t, s.WriteStandings(context.Background(), rows))
	require.NoError(t, s.Close())
	assert.Equal(t, "london_womens_premier_all_seasons_20250308_140509.csv", filepath.Base(s.Path()))

	f, err := os.Open(s.Path())
	require.NoError(t, err)
	defer f.Close()
	all, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, all, 2)
	assert.Equal(t, standings.Columns, all[0])
	assert.Equal(t, []string{"2024-2025", "G", "C", "1", "Blue Sticks", "18", "", "", "", "", "", "", "45"}, all[1])
}

func TestReadFixtures_RejectsForeignHeader(t *testing.T) {
	_, err := ReadFixtures(strings.NewReader("a,b,c\n1,2,3\n"))
	assert.Error(t, err)

	_, err = ReadFixtures(strings.NewReader(""))
	assert.Error(t, err)
}

type failingSink struct {
	writes int
	err    error
}

func (f *failingSink) WriteFixtures(context.Context, []fixture.Record) error {
	f.writes++
	return f.err
}

func (f *failingSink) Close() error { return nil }

func TestFixtureFanout(t *testing.T) {
	diskFull := errors.New("disk full")
	a := &failingSink{err: diskFull}
	b := &failingSink{}

	fan := FixtureFanout{a, b}
	err := fan.WriteFixtures(context.Background(), sampleRecords())

	assert.ErrorIs(t, err, diskFull)
	assert.Equal(t, 1, a.writes)
	assert.Equal(t, 1, b.writes, "later sinks still receive the batch")
	assert.NoError(t, fan.Close())
}

func TestOptionalFixtures_SwallowsWriteErrors(t *testing.T) {
	down := &failingSink{err: errors.New("redis: connection refused")}
	csvLike := &failingSink{}

	fan := FixtureFanout{csvLike, NewOptionalFixtures("stream", down, nil)}
	err := fan.WriteFixtures(context.Background(), sampleRecords())

	assert.NoError(t, err)
	assert.Equal(t, 1, down.writes)
	assert.Equal(t, 1, csvLike.writes)
}

type failingStandings struct{ err error }

func (f failingStandings) WriteStandings(context.Context, []standings.Row) error { return f.err }
func (f failingStandings) Close() error                                          { return nil }

func TestOptionalStandings_SwallowsWriteErrors(t *testing.T) {
	o := NewOptionalStandings("websocket", failingStandings{err: errors.New("gone")}, nil)

	assert.NoError(t, o.WriteStandings(context.Background(), []standings.Row{{Team: "Blue Sticks"}}))
	assert.NoError(t, o.Close())
}
