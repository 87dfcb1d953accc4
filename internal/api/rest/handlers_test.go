package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/fixture"
	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/standings"
	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/store"
	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/store/repository"
)

func newTestServer(t *testing.T) (*httptest.Server, *store.Database) {
	t.Helper()
	db, err := store.NewDatabase(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations(context.Background()))

	srv := httptest.NewServer(NewRouter(NewHandler(db), nil))
	t.Cleanup(srv.Close)
	return srv, db
}

func seedFixtures(t *testing.T, db *store.Database, runID string, started time.Time, runErr error, records []fixture.Record) {
	t.Helper()
	ctx := context.Background()
	runs := repository.NewRunRepository(db)
	require.NoError(t, runs.Start(ctx, runID, store.RunKindFixtures, []string{"2024-2025"}, started))
	require.NoError(t, repository.NewFixtureRepository(db).Insert(ctx, runID, records))
	require.NoError(t, runs.Finish(ctx, runID, len(records), runErr, started.Add(time.Minute)))
}

func getJSON(t *testing.T, url string, into any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
	return resp.StatusCode
}

func TestHealthCheck(t *testing.T) {
	srv, _ := newTestServer(t)

	var body map[string]string
	status := getJSON(t, srv.URL+"/health", &body)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])
}

func TestGetFixtures_LatestCompletedRun(t *testing.T) {
	srv, db := newTestServer(t)
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	seedFixtures(t, db, "old", base, nil, []fixture.Record{
		{Season: "2024-2025", WeekDate: "2024-09-21", HomeTeam: "Old Home", AwayTeam: "Old Away"},
	})
	seedFixtures(t, db, "new", base.Add(time.Hour), nil, []fixture.Record{
		{Season: "2024-2025", WeekDate: "2024-09-21", HomeTeam: "Blue Sticks", AwayTeam: "Red Mallets", HomeScore: "2", AwayScore: "0", TimeOfMatch: fixture.TimeCompleted},
		{Season: "2024-2025", WeekDate: "2024-09-28", HomeTeam: "Green Hooks", AwayTeam: "Blue Sticks", TimeOfMatch: "14:30"},
		{Season: "2024-2025", WeekDate: "2024-09-28", HomeTeam: "Yellow Flicks", AwayTeam: "Orange Drags", TimeOfMatch: "16:00"},
	})
	seedFixtures(t, db, "broken", base.Add(2*time.Hour), errors.New("boom"), nil)

	var body fixturesResponse
	status := getJSON(t, srv.URL+"/api/v1/fixtures", &body)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "new", body.RunID, "failed runs are never the default")
	assert.Equal(t, 3, body.Count)

	status = getJSON(t, srv.URL+"/api/v1/fixtures?team=Blue+Sticks", &body)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2, body.Count)

	status = getJSON(t, srv.URL+"/api/v1/fixtures?week_date=2024-09-28&limit=1", &body)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, body.Count)

	status = getJSON(t, srv.URL+"/api/v1/fixtures?run=old", &body)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body.Fixtures, 1)
	assert.Equal(t, "Old Home", body.Fixtures[0].HomeTeam)
}

func TestGetFixtures_Errors(t *testing.T) {
	srv, db := newTestServer(t)

	var body map[string]any
	status := getJSON(t, srv.URL+"/api/v1/fixtures", &body)
	assert.Equal(t, http.StatusNotFound, status, "no completed run yet")

	seedFixtures(t, db, "r1", time.Now(), nil, nil)
	status = getJSON(t, srv.URL+"/api/v1/fixtures?limit=abc", &body)
	assert.Equal(t, http.StatusBadRequest, status)
	status = getJSON(t, srv.URL+"/api/v1/fixtures?limit=5000", &body)
	assert.Equal(t, http.StatusBadRequest, status)

	var empty fixturesResponse
	status = getJSON(t, srv.URL+"/api/v1/fixtures", &empty)
	assert.Equal(t, http.StatusOK, status)
	assert.NotNil(t, empty.Fixtures)
	assert.Zero(t, empty.Count)
}

func TestGetStandings(t *testing.T) {
	srv, db := newTestServer(t)
	ctx := context.Background()
	ten := 10

	runs := repository.NewRunRepository(db)
	require.NoError(t, runs.Start(ctx, "t1", store.RunKindStandings, []string{"2024-2025", "2023-2024"}, time.Now()))
	require.NoError(t, repository.NewStandingsRepository(db).Insert(ctx, "t1", []standings.Row{
		{Season: "2024-2025", Position: 1, Team: "Blue Sticks", Points: &ten},
		{Season: "2023-2024", Position: 1, Team: "Red Mallets"},
	}))
	require.NoError(t, runs.Finish(ctx, "t1", 2, nil, time.Now()))

	var body standingsResponse
	status := getJSON(t, srv.URL+"/api/v1/standings?season=2024-2025", &body)

	require.Equal(t, http.StatusOK, status)
	require.Len(t, body.Rows, 1)
	assert.Equal(t, "Blue Sticks", body.Rows[0].Team)
	assert.Equal(t, &ten, body.Rows[0].Points)
}

func TestGetRuns(t *testing.T) {
	srv, db := newTestServer(t)
	seedFixtures(t, db, "r1", time.Now(), nil, nil)

	var runs []store.Run
	status := getJSON(t, srv.URL+"/api/v1/runs", &runs)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, runs, 1)
	assert.Equal(t, store.RunStatusCompleted, runs[0].Status)

	var run store.Run
	status = getJSON(t, srv.URL+"/api/v1/runs/r1", &run)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "r1", run.RunID)

	var missing map[string]any
	status = getJSON(t, srv.URL+"/api/v1/runs/nope", &missing)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Run not found", missing["error"])
}

func TestGetSeasons(t *testing.T) {
	srv, _ := newTestServer(t)

	var seasons []map[string]any
	status := getJSON(t, srv.URL+"/api/v1/seasons", &seasons)

	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, seasons, 2)
}

func TestCORS(t *testing.T) {
	srv, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://example.org")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware(slog.Default())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
