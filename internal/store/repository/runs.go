package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/store"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// RunRepository records scrape runs
type RunRepository struct {
	db *store.Database
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *store.Database) *RunRepository {
	return &RunRepository{db: db}
}

// Start records a run as running.
func (r *RunRepository) Start(ctx context.Context, runID, kind string, seasons []string, startedAt time.Time) error {
	query := `
		INSERT INTO scrape_runs (run_id, kind, seasons, status, started_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.db.DB().ExecContext(ctx, r.db.Rebind(query),
		runID, kind, strings.Join(seasons, ","), string(store.RunStatusRunning), store.FormatTime(startedAt))
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", runID, err)
	}
	return nil
}

// Finish marks a run completed, or failed when runErr is set.
func (r *RunRepository) Finish(ctx context.Context, runID string, records int, runErr error, finishedAt time.Time) error {
	status, message := store.RunStatusCompleted, ""
	if runErr != nil {
		status, message = store.RunStatusFailed, runErr.Error()
	}

	query := `
		UPDATE scrape_runs
		SET status = ?, records = ?, error = ?, finished_at = ?
		WHERE run_id = ?
	`
	res, err := r.db.DB().ExecContext(ctx, r.db.Rebind(query),
		string(status), records, message, store.FormatTime(finishedAt), runID)
	if err != nil {
		return fmt.Errorf("updating run %s: %w", runID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return nil
}

// Get finds a run by ID
func (r *RunRepository) Get(ctx context.Context, runID string) (*store.Run, error) {
	query := `
		SELECT run_id, kind, seasons, status, records, error, started_at, finished_at
		FROM scrape_runs
		WHERE run_id = ?
	`
	run, err := scanRun(r.db.DB().QueryRowContext(ctx, r.db.Rebind(query), runID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying run: %w", err)
	}
	return run, nil
}

// List returns the most recent runs first.
func (r *RunRepository) List(ctx context.Context, limit int) ([]*store.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT run_id, kind, seasons, status, records, error, started_at, finished_at
		FROM scrape_runs
		ORDER BY started_at DESC
		LIMIT ?
	`
	rows, err := r.db.DB().QueryContext(ctx, r.db.Rebind(query), limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []*store.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// LatestCompleted returns the ID of the newest completed run of kind.
func (r *RunRepository) LatestCompleted(ctx context.Context, kind string) (string, error) {
	query := `
		SELECT run_id FROM scrape_runs
		WHERE kind = ? AND status = ?
		ORDER BY started_at DESC
		LIMIT 1
	`
	var runID string
	err := r.db.DB().QueryRowContext(ctx, r.db.Rebind(query), kind, string(store.RunStatusCompleted)).Scan(&runID)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("no completed %s run: %w", kind, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("querying latest run: %w", err)
	}
	return runID, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*store.Run, error) {
	var (
		run               store.Run
		seasons, status   string
		started, finished string
	)
	if err := s.Scan(&run.RunID, &run.Kind, &seasons, &status, &run.Records, &run.Error, &started, &finished); err != nil {
		return nil, err
	}

	run.Status = store.RunStatus(status)
	if seasons != "" {
		run.Seasons = strings.Split(seasons, ",")
	}

	var err error
	if run.StartedAt, err = store.ParseTime(started); err != nil {
		return nil, fmt.Errorf("parsing started_at: %w", err)
	}
	if finished != "" {
		t, err := store.ParseTime(finished)
		if err != nil {
			return nil, fmt.Errorf("parsing finished_at: %w", err)
		}
		run.FinishedAt = &t
	}
	return &run, nil
}
