package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/fixture"
	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/standings"
)

const (
	FixturesFilePrefix  = "hockey_league_data"
	StandingsFilePrefix = "london_womens_premier_all_seasons"

	timestampLayout = "20060102_150405"
)

// csvFile appends rows to a file and syncs after every batch.
type csvFile struct {
	mu   sync.Mutex
	path string
	f    *os.File
	w    *csv.Writer
}

func createCSV(dir, prefix string, header []string, now time.Time) (*csvFile, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_%s.csv", prefix, now.Format(timestampLayout)))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}

	c := &csvFile{path: path, f: f, w: csv.NewWriter(f)}
	if err := c.append([][]string{header}); err != nil {
		f.Close()
		return nil, err
	}
	return c, nil
}

func (c *csvFile) append(rows [][]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write %s: %w", c.path, err)
	}
	if err := c.f.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", c.path, err)
	}
	return nil
}

func (c *csvFile) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.w.Flush()
	if err := c.w.Error(); err != nil {
		c.f.Close()
		return err
	}
	return c.f.Close()
}

// FixtureCSV is the run's fixtures file.
type FixtureCSV struct {
	file *csvFile
}

// NewFixtureCSV creates hockey_league_data_<timestamp>.csv in dir and writes the header.
func NewFixtureCSV(dir string, now time.Time) (*FixtureCSV, error) {
	file, err := createCSV(dir, FixturesFilePrefix, fixture.Columns, now)
	if err != nil {
		return nil, err
	}
	return &FixtureCSV{file: file}, nil
}

// Path is the file being written.
func (s *FixtureCSV) Path() string { return s.file.path }

// WriteFixtures appends records in the fixed column order.
func (s *FixtureCSV) WriteFixtures(_ context.Context, records []fixture.Record) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, r.Row())
	}
	return s.file.append(rows)
}

func (s *FixtureCSV) Close() error { return s.file.close() }

// StandingsCSV is the run's standings file.
type StandingsCSV struct {
	file *csvFile
}

// NewStandingsCSV creates london_womens_premier_all_seasons_<timestamp>.csv in dir.
func NewStandingsCSV(dir string, now time.Time) (*StandingsCSV, error) {
	file, err := createCSV(dir, StandingsFilePrefix, standings.Columns, now)
	if err != nil {
		return nil, err
	}
	return &StandingsCSV{file: file}, nil
}

// Path is the file being written.
func (s *StandingsCSV) Path() string { return s.file.path }

// WriteStandings appends rows; null stats are written as empty cells.
func (s *StandingsCSV) WriteStandings(_ context.Context, rows []standings.Row) error {
	if len(rows) == 0 {
		return nil
	}
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Values())
	}
	return s.file.append(out)
}

func (s *StandingsCSV) Close() error { return s.file.close() }

// ReadFixtures reads a fixtures file written by FixtureCSV.
func ReadFixtures(r io.Reader) ([]fixture.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(fixture.Columns)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if !slices.Equal(header, fixture.Columns) {
		return nil, fmt.Errorf("unexpected header %v", header)
	}

	var records []fixture.Record
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(records)+2, err)
		}
		rec, err := fixture.FromRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", len(records)+2, err)
		}
		records = append(records, rec)
	}
	return records, nil
}
