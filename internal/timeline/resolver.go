// Package timeline reads the date-picker widget of a fixtures page: which date the
// page shows and which other dates can be requested.
package timeline

import (
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const isoLayout = "2006-01-02"

// DateDescriptor is one selectable date of the pagination widget.
type DateDescriptor struct {
	ID         string
	Text       string
	ISODate    string
	IsSelected bool
}

// selectedDateMarkers are tried in order; the first that yields a parseable date wins.
var selectedDateMarkers = []string{
	".c-date-picker-timeline__item.is-initial-selected.is-selected",
	".c-date-picker-timeline__item.is-initial-selected",
	".c-date-picker-timeline__item-inner.is-selected",
	".c-date-picker-timeline__item.is-selected",
}

// Resolver resolves dates from rendered markup. The zero value is not usable;
// call NewResolver.
type Resolver struct {
	now    func() time.Time
	logger *slog.Logger
}

// NewResolver creates a Resolver. now defaults to time.Now.
func NewResolver(now func() time.Time, logger *slog.Logger) *Resolver {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{now: now, logger: logger}
}

// ResolveSelectedDate returns the ISO date the page represents. It never fails:
// when no marker carries a date it falls back to any dated element, then to today.
func (r *Resolver) ResolveSelectedDate(doc *goquery.Document) string {
	for _, marker := range selectedDateMarkers {
		if date, ok := firstDate(doc.Find(marker).Find("time[datetime]")); ok {
			return date
		}
	}

	if date, ok := firstDate(doc.Find("time[datetime]")); ok {
		r.logger.Debug("no selected date marker, using first dated element", "date", date)
		return date
	}

	today := r.now().Format(isoLayout)
	r.logger.Warn("no date found on page, using today", "date", today)
	return today
}

// EnumerateDates lists the widget's dates in document order. If the widget is
// absent it falls back to dated elements inside an identified button or link.
func (r *Resolver) EnumerateDates(doc *goquery.Document) []DateDescriptor {
	dates := timelineItems(doc)
	if len(dates) > 0 {
		return dates
	}

	dates = datedControls(doc)
	if len(dates) > 0 {
		r.logger.Debug("date widget absent, using dated controls", "count", len(dates))
	}
	return dates
}

func timelineItems(doc *goquery.Document) []DateDescriptor {
	var dates []DateDescriptor
	doc.Find(".c-date-picker-timeline__item").Each(func(_ int, item *goquery.Selection) {
		link := item.Find(".js-fixture-date[id]").First()
		id, _ := link.Attr("id")
		if link.Length() == 0 || id == "" {
			return
		}
		date, ok := firstDate(item.Find("time[datetime]"))
		if !ok {
			return
		}
		dates = append(dates, DateDescriptor{
			ID:         id,
			Text:       collapse(link.Text()),
			ISODate:    date,
			IsSelected: item.HasClass("is-selected") || item.HasClass("is-initial-selected"),
		})
	})
	return dates
}

func datedControls(doc *goquery.Document) []DateDescriptor {
	var dates []DateDescriptor
	doc.Find("time[datetime]").Each(func(_ int, t *goquery.Selection) {
		control := t.Closest("button, a")
		id, _ := control.Attr("id")
		if id == "" {
			return
		}
		date, ok := parseDatetime(t)
		if !ok {
			return
		}
		dates = append(dates, DateDescriptor{
			ID:      id,
			Text:    collapse(control.Text()),
			ISODate: date,
		})
	})
	return dates
}

// firstDate returns the first parseable datetime in sel.
func firstDate(sel *goquery.Selection) (string, bool) {
	var (
		date  string
		found bool
	)
	sel.EachWithBreak(func(_ int, t *goquery.Selection) bool {
		date, found = parseDatetime(t)
		return !found
	})
	return date, found
}

// parseDatetime reads the date part of a datetime attribute such as
// "2024-09-21T00:00:00+01:00".
func parseDatetime(t *goquery.Selection) (string, bool) {
	raw, ok := t.Attr("datetime")
	if !ok {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	if i := strings.IndexAny(raw, "T "); i >= 0 {
		raw = raw[:i]
	}
	if _, err := time.Parse(isoLayout, raw); err != nil {
		return "", false
	}
	return raw, true
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
