// Package pivot reshapes fixtures into one row per team per match.
package pivot

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/fixture"
)

// Result is a match outcome from one team's point of view.
type Result string

const (
	ResultWin      Result = "Win"
	ResultLoss     Result = "Loss"
	ResultDraw     Result = "Draw"
	ResultUpcoming Result = "Upcoming"
	ResultUnknown  Result = "Unknown"
)

// Roles
const (
	RoleHome = "Home"
	RoleAway = "Away"
)

// Columns is the pivoted output's column order.
var Columns = []string{
	"Season",
	"Competition Group",
	"Competition",
	"Week Date",
	"Fixture Location",
	"Time of Match",
	"Team_Role",
	"Team",
	"Opponent",
	"Team_Score",
	"Opponent_Score",
	"Result",
}

// Row is one team's side of a fixture.
type Row struct {
	Season           string
	CompetitionGroup string
	Competition      string
	WeekDate         string
	Location         string
	TimeOfMatch      string
	Role             string
	Team             string
	Opponent         string
	TeamScore        string
	OpponentScore    string
	Result           Result
}

// Values returns the row in Columns order.
func (r Row) Values() []string {
	return []string{
		r.Season,
		r.CompetitionGroup,
		r.Competition,
		r.WeekDate,
		r.Location,
		r.TimeOfMatch,
		r.Role,
		r.Team,
		r.Opponent,
		r.TeamScore,
		r.OpponentScore,
		string(r.Result),
	}
}

// Pivot returns a home row followed by an away row for every record, so the
// output is always twice the input's length.
func Pivot(records []fixture.Record) []Row {
	rows := make([]Row, 0, 2*len(records))
	for _, rec := range records {
		base := Row{
			Season:           rec.Season,
			CompetitionGroup: rec.CompetitionGroup,
			Competition:      rec.Competition,
			WeekDate:         rec.WeekDate,
			Location:         rec.Location,
			TimeOfMatch:      rec.TimeOfMatch,
		}

		home := base
		home.Role, home.Team, home.Opponent = RoleHome, rec.HomeTeam, rec.AwayTeam
		home.TeamScore, home.OpponentScore = rec.HomeScore, rec.AwayScore
		home.Result = Outcome(rec.HomeScore, rec.AwayScore)

		away := base
		away.Role, away.Team, away.Opponent = RoleAway, rec.AwayTeam, rec.HomeTeam
		away.TeamScore, away.OpponentScore = rec.AwayScore, rec.HomeScore
		away.Result = Outcome(rec.AwayScore, rec.HomeScore)

		rows = append(rows, home, away)
	}
	return rows
}

// Outcome compares two score cells. A missing score means the match is still
// to be played; a score that is not a number is Unknown.
func Outcome(team, opponent string) Result {
	team, opponent = strings.TrimSpace(team), strings.TrimSpace(opponent)
	if team == "" || opponent == "" {
		return ResultUpcoming
	}
	t, err1 := strconv.ParseFloat(team, 64)
	o, err2 := strconv.ParseFloat(opponent, 64)
	switch {
	case err1 != nil || err2 != nil:
		return ResultUnknown
	case t > o:
		return ResultWin
	case t < o:
		return ResultLoss
	default:
		return ResultDraw
	}
}

// Counts tallies rows by result.
func Counts(rows []Row) map[Result]int {
	counts := make(map[Result]int)
	for _, r := range rows {
		counts[r.Result]++
	}
	return counts
}

// WriteCSV writes a header and the rows.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(r.Values()); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
