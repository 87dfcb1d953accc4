package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/sink"
	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/standings"
	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/store"
)

// StandingsRepository handles league table data access
type StandingsRepository struct {
	db  *store.Database
	now func() time.Time
}

// NewStandingsRepository creates a new standings repository
func NewStandingsRepository(db *store.Database) *StandingsRepository {
	return &StandingsRepository{db: db, now: time.Now}
}

// Insert stores one batch of table rows for a run.
func (r *StandingsRepository) Insert(ctx context.Context, runID string, rows []standings.Row) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := r.db.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning standings insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, r.db.Rebind(`
		INSERT INTO standings (
			run_id, season, competition_group, competition, position, team,
			played, won, drawn, lost, goals_for, goals_against, goal_difference, points, scraped_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`))
	if err != nil {
		return fmt.Errorf("preparing standings insert: %w", err)
	}
	defer stmt.Close()

	scrapedAt := store.FormatTime(r.now())
	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx,
			runID, row.Season, row.CompetitionGroup, row.Competition, row.Position, row.Team,
			nullInt(row.Played), nullInt(row.Won), nullInt(row.Drawn), nullInt(row.Lost),
			nullInt(row.For), nullInt(row.Against), nullInt(row.GoalDifference), nullInt(row.Points),
			scrapedAt,
		); err != nil {
			return fmt.Errorf("inserting standing for %s: %w", row.Team, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing standings: %w", err)
	}
	return nil
}

// List returns a run's table rows, optionally for one season, in table order.
func (r *StandingsRepository) List(ctx context.Context, runID, season string) ([]standings.Row, error) {
	where := []string{"run_id = ?"}
	args := []any{runID}
	if season != "" {
		where, args = append(where, "season = ?"), append(args, season)
	}

	query := `
		SELECT season, competition_group, competition, position, team,
			played, won, drawn, lost, goals_for, goals_against, goal_difference, points
		FROM standings
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY season DESC, position`

	rows, err := r.db.DB().QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying standings: %w", err)
	}
	defer rows.Close()

	var out []standings.Row
	for rows.Next() {
		var (
			row                                  standings.Row
			played, won, drawn, lost, gf, ga, gd sql.NullInt64
			points                               sql.NullInt64
		)
		if err := rows.Scan(
			&row.Season, &row.CompetitionGroup, &row.Competition, &row.Position, &row.Team,
			&played, &won, &drawn, &lost, &gf, &ga, &gd, &points,
		); err != nil {
			return nil, fmt.Errorf("scanning standing: %w", err)
		}
		row.Played, row.Won, row.Drawn, row.Lost = intPtr(played), intPtr(won), intPtr(drawn), intPtr(lost)
		row.For, row.Against, row.GoalDifference, row.Points = intPtr(gf), intPtr(ga), intPtr(gd), intPtr(points)
		out = append(out, row)
	}
	return out, rows.Err()
}

// Sink adapts the repository to a run's standings sink.
func (r *StandingsRepository) Sink(runID string) sink.StandingsSink {
	return &standingsSink{repo: r, runID: runID}
}

type standingsSink struct {
	repo  *StandingsRepository
	runID string
}

func (s *standingsSink) WriteStandings(ctx context.Context, rows []standings.Row) error {
	return s.repo.Insert(ctx, s.runID, rows)
}

func (s *standingsSink) Close() error { return nil }

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
