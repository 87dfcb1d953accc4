package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/fixture"
	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/standings"
	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/store"
)

func newTestDB(t *testing.T) *store.Database {
	t.Helper()
	db, err := store.NewDatabase(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations(context.Background()))
	return db
}

func records() []fixture.Record {
	return []fixture.Record{
		{
			Season: "2024-2025", CompetitionGroup: "G", Competition: "C", WeekDate: "2024-09-21",
			HomeTeam: "Blue Sticks", AwayTeam: "Red Mallets", HomeScore: "3", AwayScore: "1",
			TimeOfMatch: fixture.TimeCompleted, Status: fixture.StatusCompleted,
		},
		{
			Season: "2024-2025", CompetitionGroup: "G", Competition: "C", WeekDate: "2024-09-28",
			HomeTeam: "Green Hooks", AwayTeam: "Blue Sticks", TimeOfMatch: "14:30", Status: fixture.StatusScheduled,
		},
		{
			Season: "2023-2024", CompetitionGroup: "G", Competition: "C", WeekDate: "2023-10-07",
			HomeTeam: "Yellow Flicks", AwayTeam: "Orange Drags", Status: fixture.StatusUnknown,
		},
	}
}

func TestRunRepository_Lifecycle(t *testing.T) {
	db := newTestDB(t)
	runs := NewRunRepository(db)
	ctx := context.Background()
	start := time.Date(2025, 3, 8, 14, 0, 0, 0, time.UTC)

	require.NoError(t, runs.Start(ctx, "run-1", store.RunKindFixtures, []string{"2024-2025", "2023-2024"}, start))
	require.NoError(t, runs.Start(ctx, "run-2", store.RunKindFixtures, []string{"2024-2025"}, start.Add(time.Hour)))

	require.NoError(t, runs.Finish(ctx, "run-1", 42, nil, start.Add(10*time.Minute)))
	require.NoError(t, runs.Finish(ctx, "run-2", 3, errors.New("persistence failure: disk full"), start.Add(70*time.Minute)))

	run, err := runs.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, store.RunStatusCompleted, run.Status)
	assert.Equal(t, []string{"2024-2025", "2023-2024"}, run.Seasons)
	assert.Equal(t, 42, run.Records)
	require.NotNil(t, run.FinishedAt)
	assert.True(t, run.FinishedAt.Equal(start.Add(10*time.Minute)))

	latest, err := runs.LatestCompleted(ctx, store.RunKindFixtures)
	require.NoError(t, err)
	assert.Equal(t, "run-1", latest, "failed runs are not served")

	list, err := runs.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "run-2", list[0].RunID)
	assert.Equal(t, "persistence failure: disk full", list[0].Error)

	_, err = runs.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, runs.Finish(ctx, "missing", 0, nil, start), ErrNotFound)
	_, err = runs.LatestCompleted(ctx, store.RunKindStandings)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFixtureRepository_SinkAndList(t *testing.T) {
	db := newTestDB(t)
	repo := NewFixtureRepository(db)
	ctx := context.Background()

	s := repo.Sink("run-1")
	require.NoError(t, s.WriteFixtures(ctx, records()[:2]))
	require.NoError(t, s.WriteFixtures(ctx, records()))
	require.NoError(t, s.Close())
	require.NoError(t, repo.Insert(ctx, "run-2", records()[:1]))

	all, err := repo.List(ctx, FixtureQuery{RunID: "run-1"})
	require.NoError(t, err)
	require.Len(t, all, 3, "re-sent fixtures are ignored")

	want := []fixture.Record{records()[2], records()[0], records()[1]}
	if diff := cmp.Diff(want, all); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}

	byTeam, err := repo.List(ctx, FixtureQuery{RunID: "run-1", Team: "Blue Sticks"})
	require.NoError(t, err)
	assert.Len(t, byTeam, 2)

	byDate, err := repo.List(ctx, FixtureQuery{Season: "2024-2025", WeekDate: "2024-09-21"})
	require.NoError(t, err)
	assert.Len(t, byDate, 2, "one per run")

	limited, err := repo.List(ctx, FixtureQuery{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestStandingsRepository_NullStats(t *testing.T) {
	db := newTestDB(t)
	repo := NewStandingsRepository(db)
	ctx := context.Background()

	played, points := 18, 45
	rows := []standings.Row{
		{Season: "2024-2025", CompetitionGroup: "G", Competition: "C", Position: 2, Team: "Red Mallets", Played: &played},
		{Season: "2024-2025", CompetitionGroup: "G", Competition: "C", Position: 1, Team: "Blue Sticks", Played: &played, Points: &points},
		{Season: "2023-2024", CompetitionGroup: "G", Competition: "C", Position: 1, Team: "Blue Sticks"},
	}
	require.NoError(t, repo.Sink("run-1").WriteStandings(ctx, rows))

	got, err := repo.List(ctx, "run-1", "2024-2025")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, rows[1], got[0])
	assert.Equal(t, rows[0], got[1])
	assert.Nil(t, got[1].Points)

	all, err := repo.List(ctx, "run-1", "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
