// Package standings extracts league table rows from a rendered table page.
package standings

import (
	"math"
	"strconv"
	"strings"
)

// CanonicalHeaders is the table schema every extracted row conforms to.
var CanonicalHeaders = []string{"Position", "Team", "Played", "Won", "Drawn", "Lost", "For", "Against", "GD", "Points"}

// Columns is the fixed output column order.
var Columns = append([]string{"Season", "Competition Group", "Competition"}, CanonicalHeaders...)

// Row is one team's line in a season's table. Nil stats were not parseable.
type Row struct {
	Season           string `json:"season"`
	CompetitionGroup string `json:"competition_group"`
	Competition      string `json:"competition"`
	Position         int    `json:"position"`
	Team             string `json:"team"`
	Played           *int   `json:"played"`
	Won              *int   `json:"won"`
	Drawn            *int   `json:"drawn"`
	Lost             *int   `json:"lost"`
	For              *int   `json:"for"`
	Against          *int   `json:"against"`
	GoalDifference   *int   `json:"goal_difference"`
	Points           *int   `json:"points"`
}

// Values returns the row in Columns order; nil stats become empty cells.
func (r Row) Values() []string {
	return []string{
		r.Season,
		r.CompetitionGroup,
		r.Competition,
		strconv.Itoa(r.Position),
		r.Team,
		formatInt(r.Played),
		formatInt(r.Won),
		formatInt(r.Drawn),
		formatInt(r.Lost),
		formatInt(r.For),
		formatInt(r.Against),
		formatInt(r.GoalDifference),
		formatInt(r.Points),
	}
}

// ParseInt coerces a table cell to a number. It accepts a leading plus sign, the
// unicode minus and integral decimals such as "12.0"; anything else is nil.
func ParseInt(raw string) *int {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "−", "-")
	s = strings.TrimPrefix(s, "+")
	if s == "" {
		return nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return &n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil
	}
	n := int(f)
	return &n
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
