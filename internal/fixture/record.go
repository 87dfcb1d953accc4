// Package fixture models one match between two teams and extracts matches from a
// rendered fixtures page.
package fixture

import "fmt"

// Status says how far a fixture's result could be resolved.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusScheduled Status = "scheduled"

	// StatusUnknown means neither a score nor a kick-off time was found. It is
	// not a guess at "postponed" or "upcoming".
	StatusUnknown Status = "unknown"
)

// TimeCompleted is the Time of Match value for fixtures with a result.
const TimeCompleted = "Completed"

// Columns is the fixed output column order.
var Columns = []string{
	"Season",
	"Competition Group",
	"Competition",
	"Week Date",
	"Home Team",
	"Away Team",
	"Home Team Score",
	"Away Team Score",
	"Home Team Badge",
	"Away Team Badge",
	"Fixture Location",
	"Time of Match",
}

// Record is one fixture. Optional fields hold "" when absent.
type Record struct {
	Season           string `json:"season"`
	CompetitionGroup string `json:"competition_group"`
	Competition      string `json:"competition"`
	WeekDate         string `json:"week_date"`
	HomeTeam         string `json:"home_team"`
	AwayTeam         string `json:"away_team"`
	HomeScore        string `json:"home_score"`
	AwayScore        string `json:"away_score"`
	HomeBadgeURL     string `json:"home_badge_url"`
	AwayBadgeURL     string `json:"away_badge_url"`
	Location         string `json:"location"`
	TimeOfMatch      string `json:"time_of_match"`
	Status           Status `json:"status"`
}

// Complete reports whether both team names are present.
func (r Record) Complete() bool {
	return r.HomeTeam != "" && r.AwayTeam != ""
}

// Row returns the record's values in Columns order.
func (r Record) Row() []string {
	return []string{
		r.Season,
		r.CompetitionGroup,
		r.Competition,
		r.WeekDate,
		r.HomeTeam,
		r.AwayTeam,
		r.HomeScore,
		r.AwayScore,
		r.HomeBadgeURL,
		r.AwayBadgeURL,
		r.Location,
		r.TimeOfMatch,
	}
}

// FromRow rebuilds a record from values in Columns order. Status is derived from
// the score and time columns.
func FromRow(row []string) (Record, error) {
	if len(row) != len(Columns) {
		return Record{}, fmt.Errorf("expected %d columns, got %d", len(Columns), len(row))
	}
	r := Record{
		Season:           row[0],
		CompetitionGroup: row[1],
		Competition:      row[2],
		WeekDate:         row[3],
		HomeTeam:         row[4],
		AwayTeam:         row[5],
		HomeScore:        row[6],
		AwayScore:        row[7],
		HomeBadgeURL:     row[8],
		AwayBadgeURL:     row[9],
		Location:         row[10],
		TimeOfMatch:      row[11],
	}
	r.Status = DeriveStatus(r.HomeScore, r.AwayScore, r.TimeOfMatch)
	return r, nil
}

// DeriveStatus maps the stored score and time columns back to a Status.
func DeriveStatus(homeScore, awayScore, timeOfMatch string) Status {
	switch {
	case homeScore != "" && awayScore != "":
		return StatusCompleted
	case timeOfMatch != "" && timeOfMatch != TimeCompleted:
		return StatusScheduled
	default:
		return StatusUnknown
	}
}
