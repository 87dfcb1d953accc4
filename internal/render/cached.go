package render

import (
	"context"
	"log/slog"
	"time"
)

const cacheKeyPrefix = "hockeyscrape:render:"

// Store is the slice of a key/value cache the render cache needs.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Cached serves repeat renders of the same URL from a Store. Filter-driven renders
// depend on page state, not the URL, and always go to the wrapped renderer.
type Cached struct {
	next   Renderer
	store  Store
	ttl    time.Duration
	logger *slog.Logger
}

// NewCached wraps next with a cache.
func NewCached(next Renderer, store Store, ttl time.Duration, logger *slog.Logger) *Cached {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cached{next: next, store: store, ttl: ttl, logger: logger}
}

// Render returns cached markup when present, otherwise renders and stores it.
// Cache failures never fail the render.
func (c *Cached) Render(ctx context.Context, url string, ready Ready) (string, error) {
	key := CacheKey(url)
	if cached, err := c.store.Get(ctx, key); err == nil && cached != "" {
		c.logger.Debug("using cached page", "url", url)
		return cached, nil
	}

	markup, err := c.next.Render(ctx, url, ready)
	if err != nil {
		return "", err
	}

	if err := c.store.Set(ctx, key, markup, c.ttl); err != nil {
		c.logger.Warn("failed to cache rendered page", "url", url, "error", err)
	}
	return markup, nil
}

// RenderWithFilters passes through to the wrapped renderer when it can script pages.
func (c *Cached) RenderWithFilters(ctx context.Context, url string, form FilterForm, ready Ready) (string, error) {
	fr, ok := c.next.(FilterRenderer)
	if !ok {
		return "", ErrFiltersUnsupported
	}
	return fr.RenderWithFilters(ctx, url, form, ready)
}

// CacheKey is the store key for a rendered URL.
func CacheKey(url string) string {
	return cacheKeyPrefix + url
}
