package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/config"
	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/fixture"
	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/standings"
	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/store"
	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/store/repository"
)

const maxLimit = 1000

// Handler contains dependencies for HTTP handlers
type Handler struct {
	db        *store.Database
	runs      *repository.RunRepository
	fixtures  *repository.FixtureRepository
	standings *repository.StandingsRepository
}

// NewHandler creates a new handler
func NewHandler(db *store.Database) *Handler {
	return &Handler{
		db:        db,
		runs:      repository.NewRunRepository(db),
		fixtures:  repository.NewFixtureRepository(db),
		standings: repository.NewStandingsRepository(db),
	}
}

// HealthCheck handles health check requests
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.db.HealthCheck(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "Database unavailable", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "hockeyscrape",
	})
}

// GetSeasons lists the seasons the scraper knows how to address
func (h *Handler) GetSeasons(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, config.Seasons)
}

type fixturesResponse struct {
	RunID    string           `json:"run_id"`
	Count    int              `json:"count"`
	Fixtures []fixture.Record `json:"fixtures"`
}

// GetFixtures returns stored fixtures, from the latest completed run unless
// ?run= names one. Filters: season, week_date, team, limit.
func (h *Handler) GetFixtures(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	runID, ok := h.resolveRun(r.Context(), w, q.Get("run"), store.RunKindFixtures)
	if !ok {
		return
	}
	limit, err := parseLimit(q.Get("limit"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid limit", err)
		return
	}

	records, err := h.fixtures.List(r.Context(), repository.FixtureQuery{
		RunID:    runID,
		Season:   q.Get("season"),
		WeekDate: q.Get("week_date"),
		Team:     q.Get("team"),
		Limit:    limit,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch fixtures", err)
		return
	}
	if records == nil {
		records = []fixture.Record{}
	}

	respondJSON(w, http.StatusOK, fixturesResponse{RunID: runID, Count: len(records), Fixtures: records})
}

type standingsResponse struct {
	RunID string          `json:"run_id"`
	Count int             `json:"count"`
	Rows  []standings.Row `json:"standings"`
}

// GetStandings returns a table run's rows, optionally for one season
func (h *Handler) GetStandings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	runID, ok := h.resolveRun(r.Context(), w, q.Get("run"), store.RunKindStandings)
	if !ok {
		return
	}

	rows, err := h.standings.List(r.Context(), runID, q.Get("season"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch standings", err)
		return
	}
	if rows == nil {
		rows = []standings.Row{}
	}

	respondJSON(w, http.StatusOK, standingsResponse{RunID: runID, Count: len(rows), Rows: rows})
}

// GetRuns lists recent scrape runs
func (h *Handler) GetRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid limit", err)
		return
	}

	runs, err := h.runs.List(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch runs", err)
		return
	}
	if runs == nil {
		runs = []*store.Run{}
	}

	respondJSON(w, http.StatusOK, runs)
}

// GetRun returns a single run
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.runs.Get(r.Context(), mux.Vars(r)["runID"])
	if errors.Is(err, repository.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Run not found", err)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch run", err)
		return
	}

	respondJSON(w, http.StatusOK, run)
}

// resolveRun returns the requested run, or the newest completed run of kind.
// It writes the error response itself when it returns false.
func (h *Handler) resolveRun(ctx context.Context, w http.ResponseWriter, requested, kind string) (string, bool) {
	if requested != "" {
		return requested, true
	}
	runID, err := h.runs.LatestCompleted(ctx, kind)
	if errors.Is(err, repository.ErrNotFound) {
		respondError(w, http.StatusNotFound, "No completed "+kind+" run", err)
		return "", false
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to find latest run", err)
		return "", false
	}
	return runID, true
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n <= 0 || n > maxLimit {
		return 0, errors.New("limit must be between 1 and 1000")
	}
	return n, nil
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error response
func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]interface{}{
		"error":  message,
		"status": status,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	respondJSON(w, status, response)
}
