// Package identity rejects fixtures already accepted earlier in the same run.
package identity

import (
	"strings"

	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/fixture"
)

// separator is the ASCII unit separator; it does not occur in team names.
const separator = "\x1f"

// Key is the fixture's identity: season, week date, home team and away team.
func Key(r fixture.Record) string {
	return strings.Join([]string{r.Season, r.WeekDate, r.HomeTeam, r.AwayTeam}, separator)
}

// Index remembers the keys admitted during one run. Create a new Index per run;
// it is not safe for concurrent use.
type Index struct {
	seen map[string]struct{}
}

func NewIndex() *Index {
	return &Index{seen: make(map[string]struct{})}
}

// Admit reports whether r is new to this run and records it if so.
func (i *Index) Admit(r fixture.Record) bool {
	key := Key(r)
	if _, ok := i.seen[key]; ok {
		return false
	}
	i.seen[key] = struct{}{}
	return true
}

// Len is the number of admitted fixtures.
func (i *Index) Len() int {
	return len(i.seen)
}
