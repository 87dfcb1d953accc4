package fixture

import (
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	DefaultCompetitionGroup = "LONDON HOCKEY LEAGUE WOMENS"
	DefaultCompetition      = "London Women's Premier Division"
)

// containerSelectors are tried in order until one matches at least one element.
var containerSelectors = []string{
	".c-match-detail-card__container",
	".c-fixture",
}

// scoreScopes narrow where score and time are looked up inside a container;
// without either the container itself is searched.
var scoreScopes = []string{
	".c-fixture__body",
	".c-fixture__info",
}

// outcome is what a score strategy resolved.
type outcome struct {
	homeScore, awayScore string
	timeOfMatch          string
	status               Status
}

// scoreStrategy inspects one scope and reports whether it applied.
type scoreStrategy func(scope *goquery.Selection) (outcome, bool)

var scoreStrategies = []scoreStrategy{
	scoreBoard,
	dashedScore,
	kickOffTime,
}

// Extractor turns a rendered fixtures page into records. It holds no per-page
// state; the same markup always yields the same records.
type Extractor struct {
	competitionGroup   string
	defaultCompetition string
	logger             *slog.Logger
}

// NewExtractor creates an Extractor. Empty labels fall back to the defaults.
func NewExtractor(competitionGroup, defaultCompetition string, logger *slog.Logger) *Extractor {
	if competitionGroup == "" {
		competitionGroup = DefaultCompetitionGroup
	}
	if defaultCompetition == "" {
		defaultCompetition = DefaultCompetition
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		competitionGroup:   competitionGroup,
		defaultCompetition: defaultCompetition,
		logger:             logger,
	}
}

// Extract returns every complete fixture on the page for the given season and
// week date. A page with no match containers yields no records.
func (e *Extractor) Extract(doc *goquery.Document, season, weekDate string) []Record {
	competition := text(doc.Find(".c-ribbon__title").First())
	if competition == "" {
		competition = e.defaultCompetition
	}

	containers := e.containers(doc)
	if containers.Length() == 0 {
		e.logger.Info("no match containers on page", "season", season, "week_date", weekDate)
		return nil
	}

	var records []Record
	containers.Each(func(_ int, c *goquery.Selection) {
		r := Record{
			Season:           season,
			CompetitionGroup: e.competitionGroup,
			Competition:      competition,
			WeekDate:         weekDate,
			Status:           StatusUnknown,
		}

		home := c.Find(".c-fixture__badge-before").First()
		r.HomeTeam = text(home.Find(".c-badge__label").First())
		r.HomeBadgeURL = attr(home.Find(".c-badge__image").First(), "src")

		away := c.Find(".c-fixture__badge-after").First()
		r.AwayTeam = text(away.Find(".c-badge__label").First())
		r.AwayBadgeURL = attr(away.Find(".c-badge__image").First(), "src")

		r.Location = text(c.Find(".c-fixture__location span").First())

		if o, ok := resolveScore(c); ok {
			r.HomeScore, r.AwayScore = o.homeScore, o.awayScore
			r.TimeOfMatch = o.timeOfMatch
			r.Status = o.status
		}

		if !r.Complete() {
			if r.HomeTeam != "" || r.AwayTeam != "" {
				e.logger.Warn("dropping fixture with one team name",
					"season", season, "week_date", weekDate,
					"home_team", r.HomeTeam, "away_team", r.AwayTeam)
			}
			return
		}
		records = append(records, r)
	})

	e.logger.Debug("extracted fixtures", "season", season, "week_date", weekDate,
		"containers", containers.Length(), "records", len(records))
	return records
}

func (e *Extractor) containers(doc *goquery.Document) *goquery.Selection {
	for i, sel := range containerSelectors {
		found := doc.Find(sel)
		if found.Length() > 0 {
			if i > 0 {
				e.logger.Debug("using fallback container selector", "selector", sel, "count", found.Length())
			}
			return found
		}
	}
	return doc.Find(containerSelectors[0])
}

// resolveScore runs the strategies against the first scope present in c.
func resolveScore(c *goquery.Selection) (outcome, bool) {
	scope := c
	for _, sel := range scoreScopes {
		if s := c.Find(sel).First(); s.Length() > 0 {
			scope = s
			break
		}
	}

	for _, strategy := range scoreStrategies {
		if o, ok := strategy(scope); ok {
			return o, true
		}
	}
	return outcome{}, false
}

func scoreBoard(scope *goquery.Selection) (outcome, bool) {
	items := scope.Find(".c-fixture__score-board .c-score__item")
	if items.Length() < 2 {
		return outcome{}, false
	}
	home, away := text(items.Eq(0)), text(items.Eq(1))
	if home == "" || away == "" {
		return outcome{}, false
	}
	return outcome{homeScore: home, awayScore: away, timeOfMatch: TimeCompleted, status: StatusCompleted}, true
}

func dashedScore(scope *goquery.Selection) (outcome, bool) {
	score := scope.Find(".c-fixture__score").First()
	if score.Length() == 0 {
		return outcome{}, false
	}
	parts := strings.Split(text(score), "-")
	if len(parts) != 2 {
		return outcome{}, false
	}
	home, away := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	if home == "" || away == "" {
		return outcome{}, false
	}
	return outcome{homeScore: home, awayScore: away, timeOfMatch: TimeCompleted, status: StatusCompleted}, true
}

func kickOffTime(scope *goquery.Selection) (outcome, bool) {
	t := text(scope.Find(".c-fixture__time").First())
	if t == "" {
		return outcome{}, false
	}
	return outcome{timeOfMatch: t, status: StatusScheduled}, true
}

func text(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}

func attr(s *goquery.Selection, name string) string {
	v, _ := s.Attr(name)
	return strings.TrimSpace(v)
}
