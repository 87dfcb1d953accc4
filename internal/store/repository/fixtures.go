package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/fixture"
	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/sink"
	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/store"
)

// FixtureRepository handles fixture data access
type FixtureRepository struct {
	db  *store.Database
	now func() time.Time
}

// NewFixtureRepository creates a new fixture repository
func NewFixtureRepository(db *store.Database) *FixtureRepository {
	return &FixtureRepository{db: db, now: time.Now}
}

// FixtureQuery filters List. Empty fields match everything.
type FixtureQuery struct {
	RunID    string
	Season   string
	WeekDate string
	Team     string
	Limit    int
}

// Insert stores records for a run in one transaction. A fixture already stored
// for the run is left unchanged.
func (r *FixtureRepository) Insert(ctx context.Context, runID string, records []fixture.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning fixture insert: %w", err)
	}
	defer tx.Rollback()

	query := r.db.Rebind(`
		INSERT INTO fixtures (
			run_id, season, competition_group, competition, week_date, home_team, away_team,
			home_score, away_score, home_badge_url, away_badge_url, location, time_of_match,
			status, scraped_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`)
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing fixture insert: %w", err)
	}
	defer stmt.Close()

	scrapedAt := store.FormatTime(r.now())
	for _, rec := range records {
		if rec.Status == "" {
			rec.Status = fixture.DeriveStatus(rec.HomeScore, rec.AwayScore, rec.TimeOfMatch)
		}
		if _, err := stmt.ExecContext(ctx,
			runID, rec.Season, rec.CompetitionGroup, rec.Competition, rec.WeekDate, rec.HomeTeam, rec.AwayTeam,
			rec.HomeScore, rec.AwayScore, rec.HomeBadgeURL, rec.AwayBadgeURL, rec.Location, rec.TimeOfMatch,
			string(rec.Status), scrapedAt,
		); err != nil {
			return fmt.Errorf("inserting fixture %s v %s: %w", rec.HomeTeam, rec.AwayTeam, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing fixtures: %w", err)
	}
	return nil
}

// List returns fixtures ordered by season, week date and home team.
func (r *FixtureRepository) List(ctx context.Context, q FixtureQuery) ([]fixture.Record, error) {
	var (
		where []string
		args  []any
	)
	if q.RunID != "" {
		where, args = append(where, "run_id = ?"), append(args, q.RunID)
	}
	if q.Season != "" {
		where, args = append(where, "season = ?"), append(args, q.Season)
	}
	if q.WeekDate != "" {
		where, args = append(where, "week_date = ?"), append(args, q.WeekDate)
	}
	if q.Team != "" {
		where, args = append(where, "(home_team = ? OR away_team = ?)"), append(args, q.Team, q.Team)
	}

	query := `
		SELECT season, competition_group, competition, week_date, home_team, away_team,
			home_score, away_score, home_badge_url, away_badge_url, location, time_of_match, status
		FROM fixtures`
	if len(where) > 0 {
		query += "\n\t\tWHERE " + strings.Join(where, " AND ")
	}
	query += "\n\t\tORDER BY season, week_date, home_team"
	if q.Limit > 0 {
		query += "\n\t\tLIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := r.db.DB().QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying fixtures: %w", err)
	}
	defer rows.Close()

	var records []fixture.Record
	for rows.Next() {
		var (
			rec    fixture.Record
			status string
		)
		if err := rows.Scan(
			&rec.Season, &rec.CompetitionGroup, &rec.Competition, &rec.WeekDate, &rec.HomeTeam, &rec.AwayTeam,
			&rec.HomeScore, &rec.AwayScore, &rec.HomeBadgeURL, &rec.AwayBadgeURL, &rec.Location, &rec.TimeOfMatch,
			&status,
		); err != nil {
			return nil, fmt.Errorf("scanning fixture: %w", err)
		}
		rec.Status = fixture.Status(status)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Sink adapts the repository to a run's fixture sink.
func (r *FixtureRepository) Sink(runID string) sink.FixtureSink {
	return &fixtureSink{repo: r, runID: runID}
}

type fixtureSink struct {
	repo  *FixtureRepository
	runID string
}

func (s *fixtureSink) WriteFixtures(ctx context.Context, records []fixture.Record) error {
	return s.repo.Insert(ctx, s.runID, records)
}

// Close is a no-op; the database is owned by the caller.
func (s *fixtureSink) Close() error { return nil }
