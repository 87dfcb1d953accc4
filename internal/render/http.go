package render

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// HTTPOptions configures the static renderer.
type HTTPOptions struct {
	UserAgent       string
	Timeout         time.Duration
	RequestInterval time.Duration
	Retries         int
	Logger          *slog.Logger
}

// HTTPRenderer fetches markup without executing scripts. It serves pages that are
// rendered server side and saved mirrors of the site.
type HTTPRenderer struct {
	client  *resty.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewHTTPRenderer creates a resty-backed renderer.
func NewHTTPRenderer(opts HTTPOptions) *HTTPRenderer {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultPageTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	client := resty.New().
		SetTimeout(opts.Timeout).
		SetRetryCount(max(opts.Retries, 0)).
		SetRetryWaitTime(500 * time.Millisecond)
	if opts.UserAgent != "" {
		client.SetHeader("User-Agent", opts.UserAgent)
	}

	return &HTTPRenderer{
		client:  client,
		limiter: newLimiter(opts.RequestInterval),
		logger:  opts.Logger,
	}
}

// Render GETs url. The ready condition cannot be awaited on static markup; a
// missing ready selector is only noted.
func (h *HTTPRenderer) Render(ctx context.Context, url string, ready Ready) (string, error) {
	if err := h.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	h.logger.Info("fetching page", "url", url)
	res, err := h.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return "", fmt.Errorf("fetching page: %w", err)
	}
	if res.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", res.StatusCode())
	}

	body := res.String()
	if ready.Selector != "" {
		if doc, err := ParseHTML(body); err == nil && doc.Find(ready.Selector).Length() == 0 {
			h.logger.Debug("ready selector absent from static markup", "selector", ready.Selector, "url", url)
		}
	}
	return body, nil
}

// Close is a no-op; it keeps HTTPRenderer interchangeable with ChromeRenderer.
func (h *HTTPRenderer) Close() error {
	return nil
}
