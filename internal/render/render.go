// Package render turns page URLs into rendered markup. The scraping core only
// depends on the Renderer interface; the browser session, plain HTTP fetching and
// caching are adapters behind it.
package render

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var (
	// ErrReadyTimeout marks a readiness wait that expired. It is logged, never
	// returned: rendering continues with whatever markup is present.
	ErrReadyTimeout = errors.New("ready condition not met before timeout")

	// ErrFiltersUnsupported is returned by renderers that cannot script a page.
	ErrFiltersUnsupported = errors.New("renderer cannot drive filter forms")
)

// Ready describes when a page counts as rendered. All waits are soft.
type Ready struct {
	// Selector must be present before the markup is captured. Empty means the
	// renderer waits its fixed initial delay instead.
	Selector string

	// GoneSelector, typically a loading spinner, must be hidden or absent.
	GoneSelector string

	// Timeout bounds the readiness wait; zero uses the renderer default.
	Timeout time.Duration
}

// Filter selects one option of a <select> element, by value when Value is set and
// by visible text otherwise.
type Filter struct {
	ElementID string
	Value     string
	Text      string
}

// FilterForm is the scripted interaction used by pages that ignore URL parameters.
type FilterForm struct {
	Selects       []Filter
	ApplySelector string
}

// Renderer returns the rendered markup for a URL.
type Renderer interface {
	Render(ctx context.Context, url string, ready Ready) (string, error)
}

// FilterRenderer is a Renderer that can also drive a filter form before capturing.
type FilterRenderer interface {
	Renderer
	RenderWithFilters(ctx context.Context, url string, form FilterForm, ready Ready) (string, error)
}

// ParseHTML converts raw HTML to a goquery Document for parsing
func ParseHTML(htmlContent string) (*goquery.Document, error) {
	if strings.TrimSpace(htmlContent) == "" {
		return nil, fmt.Errorf("empty HTML content")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}
