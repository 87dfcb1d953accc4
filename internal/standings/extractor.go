package standings

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const minCells = 8

// abbreviations maps the narrow-view header labels; "P" is positional.
var abbreviations = map[string]string{
	"W":  "Won",
	"D":  "Drawn",
	"L":  "Lost",
	"F":  "For",
	"A":  "Against",
	"GD": "GD",
}

var tableSelectors = []string{
	"div.c-table-container table",
	"table",
}

// Extractor turns a rendered table page into rows.
type Extractor struct {
	competitionGroup   string
	defaultCompetition string
	logger             *slog.Logger
}

// NewExtractor creates an Extractor that stamps rows with competitionGroup and
// with the page's competition title, or defaultCompetition when the page has none.
func NewExtractor(competitionGroup, defaultCompetition string, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{competitionGroup: competitionGroup, defaultCompetition: defaultCompetition, logger: logger}
}

// Extract returns the table's rows for season, each with exactly the canonical
// columns. Rows with fewer than eight cells are skipped.
func (e *Extractor) Extract(doc *goquery.Document, season string) []Row {
	table := findTable(doc)
	if table == nil {
		e.logger.Warn("no table found on page", "season", season)
		return nil
	}

	competition := strings.Join(strings.Fields(doc.Find(".c-ribbon__title").First().Text()), " ")
	if competition == "" {
		competition = e.defaultCompetition
	}

	headers := ReconcileHeaders(table.Find("thead tr").First().Find("th"))
	if !slices.Equal(headers, CanonicalHeaders) {
		e.logger.Warn("header mismatch, using canonical headers",
			"season", season, "found", headers, "expected", CanonicalHeaders)
	}

	var rows []Row
	table.Find("tbody tr").Each(func(i int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < minCells {
			e.logger.Warn("row has insufficient cells, skipping",
				"season", season, "row", i, "cells", cells.Length())
			return
		}
		raw := rawValues(cells)
		row := Row{
			Season:           season,
			CompetitionGroup: e.competitionGroup,
			Competition:      competition,
			Team:             raw[1],
			Played:           ParseInt(raw[2]),
			Won:              ParseInt(raw[3]),
			Drawn:            ParseInt(raw[4]),
			Lost:             ParseInt(raw[5]),
			For:              ParseInt(raw[6]),
			Against:          ParseInt(raw[7]),
			GoalDifference:   ParseInt(raw[8]),
			Points:           ParseInt(raw[9]),
		}
		if pos := ParseInt(raw[0]); pos != nil {
			row.Position = *pos
		}
		rows = append(rows, row)
	})

	e.logger.Info("extracted table rows", "season", season, "rows", len(rows))
	return rows
}

func findTable(doc *goquery.Document) *goquery.Selection {
	for _, sel := range tableSelectors {
		if t := doc.Find(sel).First(); t.Length() > 0 {
			return t
		}
	}
	return nil
}

// ReconcileHeaders resolves header cells to column names. Each cell prefers its
// wide-view label, then its narrow-view abbreviation; a cell with neither is the
// position column. The result is what the page showed, not yet forced to the
// canonical schema.
func ReconcileHeaders(cells *goquery.Selection) []string {
	var headers []string
	cells.Each(func(_ int, th *goquery.Selection) {
		if wide := labelSpan(th, "u-hide", "u-inline-block@lg"); wide != "" {
			headers = append(headers, wide)
			return
		}
		narrow := labelSpan(th, "u-hide@lg")
		switch {
		case narrow == "":
			headers = append(headers, "Position")
		case narrow == "P" && len(headers) < 3:
			headers = append(headers, "Played")
		case narrow == "P" && len(headers) > 8:
			headers = append(headers, "Points")
		default:
			if full, ok := abbreviations[narrow]; ok {
				narrow = full
			}
			headers = append(headers, narrow)
		}
	})
	return headers
}

// labelSpan returns the text of the first span carrying exactly the given classes.
func labelSpan(th *goquery.Selection, classes ...string) string {
	var label string
	th.Find("span").EachWithBreak(func(_ int, span *goquery.Selection) bool {
		attr, _ := span.Attr("class")
		if !sameClasses(strings.Fields(attr), classes) {
			return true
		}
		label = strings.TrimSpace(span.Text())
		return label == ""
	})
	return label
}

func sameClasses(have, want []string) bool {
	if len(have) != len(want) {
		return false
	}
	for _, c := range want {
		if !slices.Contains(have, c) {
			return false
		}
	}
	return true
}

// rawValues reads a row's cells into the canonical width: team prefers its link
// text, points prefers bold text, short rows are padded and long rows truncated.
func rawValues(cells *goquery.Selection) []string {
	values := make([]string, 0, len(CanonicalHeaders))
	cells.EachWithBreak(func(i int, td *goquery.Selection) bool {
		var v string
		switch i {
		case 1:
			v = preferChild(td, "a")
		case 9:
			v = preferChild(td, "b")
		default:
			v = td.Text()
		}
		values = append(values, strings.TrimSpace(v))
		return len(values) < len(CanonicalHeaders)
	})
	for len(values) < len(CanonicalHeaders) {
		values = append(values, "")
	}
	return values
}

func preferChild(td *goquery.Selection, tag string) string {
	if child := td.Find(tag).First(); child.Length() > 0 {
		return child.Text()
	}
	return td.Text()
}
