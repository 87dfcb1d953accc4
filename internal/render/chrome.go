package render

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/chromedp/chromedp"
	"golang.org/x/time/rate"
)

const (
	// DefaultPageTimeout bounds navigation and each readiness wait.
	DefaultPageTimeout = 30 * time.Second

	// filterPause lets the page react to each select change.
	filterPause = 1 * time.Second
)

// ChromeOptions configures the headless browser session.
type ChromeOptions struct {
	Headless        bool
	UserAgent       string
	PageTimeout     time.Duration
	InitialDelay    time.Duration
	SettleDelay     time.Duration
	RequestInterval time.Duration
	Retries         int

	// DebugDir, when set, receives the HTML and a screenshot of every page.
	DebugDir string

	Logger *slog.Logger
}

// ChromeRenderer renders pages in one long-lived Chrome tab. The session is owned
// by the run: create it once, defer Close.
type ChromeRenderer struct {
	opts    ChromeOptions
	logger  *slog.Logger
	limiter *rate.Limiter

	// Chromedp contexts for the allocator and the single tab
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	pages int
}

// NewChromeRenderer starts the browser. Failing to establish the session is the
// one error that should end a run.
func NewChromeRenderer(opts ChromeOptions) (*ChromeRenderer, error) {
	if opts.PageTimeout <= 0 {
		opts.PageTimeout = DefaultPageTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1920, 1080),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// An empty Run launches Chrome, so a missing binary fails here and not on page one.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("starting browser session: %w", err)
	}

	if opts.DebugDir != "" {
		if err := os.MkdirAll(opts.DebugDir, 0755); err != nil {
			browserCancel()
			allocCancel()
			return nil, fmt.Errorf("creating debug directory: %w", err)
		}
	}

	return &ChromeRenderer{
		opts:          opts,
		logger:        opts.Logger,
		limiter:       newLimiter(opts.RequestInterval),
		allocCtx:      allocCtx,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

// Close releases the tab and the browser process.
func (c *ChromeRenderer) Close() error {
	if c.browserCancel != nil {
		c.browserCancel()
	}
	if c.allocCancel != nil {
		c.allocCancel()
	}
	return nil
}

// Render loads url and returns the page's outer HTML once ready holds or its
// wait has expired.
func (c *ChromeRenderer) Render(ctx context.Context, url string, ready Ready) (string, error) {
	return c.render(ctx, url, nil, ready)
}

// RenderWithFilters loads url, drives the filter form, then captures the page.
// A select or apply step that fails is logged and skipped.
func (c *ChromeRenderer) RenderWithFilters(ctx context.Context, url string, form FilterForm, ready Ready) (string, error) {
	return c.render(ctx, url, &form, ready)
}

func (c *ChromeRenderer) render(ctx context.Context, url string, form *FilterForm, ready Ready) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	c.logger.Info("loading page", "url", url)
	if err := c.navigate(ctx, url); err != nil {
		return "", err
	}

	if form != nil {
		c.applyFilters(ctx, *form)
	}

	c.waitReady(ctx, ready)

	var htmlContent string
	captureCtx, cancel := c.tabContext(ctx, c.opts.PageTimeout)
	defer cancel()
	if err := chromedp.Run(captureCtx, chromedp.OuterHTML(`html`, &htmlContent, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("capturing page HTML: %w", err)
	}
	if htmlContent == "" {
		return "", fmt.Errorf("empty HTML content returned")
	}

	c.pages++
	if c.opts.DebugDir != "" {
		c.saveDebug(ctx, htmlContent)
	}

	return htmlContent, nil
}

// tabContext derives a bounded context on the browser tab that also ends when
// the caller's context does. Cancelling it never closes the tab.
func (c *ChromeRenderer) tabContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	tabCtx, cancel := context.WithTimeout(c.browserCtx, timeout)
	stop := context.AfterFunc(parent, cancel)
	return tabCtx, func() {
		stop()
		cancel()
	}
}

// navigate retries hard navigation failures with exponential backoff.
func (c *ChromeRenderer) navigate(ctx context.Context, url string) error {
	op := func() error {
		navCtx, cancel := c.tabContext(ctx, c.opts.PageTimeout)
		defer cancel()
		return chromedp.Run(navCtx, chromedp.Navigate(url))
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(max(c.opts.Retries, 0))),
		ctx,
	)
	notify := func(err error, wait time.Duration) {
		c.logger.Warn("navigation failed, retrying", "url", url, "wait", wait, "error", err)
	}

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	return nil
}

// waitReady applies the readiness condition; expiry is logged and ignored.
func (c *ChromeRenderer) waitReady(ctx context.Context, ready Ready) {
	timeout := ready.Timeout
	if timeout <= 0 {
		timeout = c.opts.PageTimeout
	}

	if ready.Selector == "" {
		c.sleep(ctx, c.opts.InitialDelay)
	} else {
		waitCtx, cancel := c.tabContext(ctx, timeout)
		err := chromedp.Run(waitCtx, chromedp.WaitReady(ready.Selector, chromedp.ByQuery))
		cancel()
		if err != nil {
			c.logger.Warn("continuing with current page content",
				"selector", ready.Selector, "error", errors.Join(ErrReadyTimeout, err))
		}

		if ready.GoneSelector != "" {
			var gone bool
			goneCtx, cancel := c.tabContext(ctx, timeout)
			err := chromedp.Run(goneCtx, chromedp.Poll(hiddenExpression(ready.GoneSelector), &gone))
			cancel()
			if err != nil {
				c.logger.Debug("loader may not have been visible or has already disappeared",
					"selector", ready.GoneSelector, "error", err)
			}
		}
	}

	c.sleep(ctx, c.opts.SettleDelay)
}

func (c *ChromeRenderer) applyFilters(ctx context.Context, form FilterForm) {
	for _, f := range form.Selects {
		var selected bool
		selCtx, cancel := c.tabContext(ctx, c.opts.PageTimeout)
		err := chromedp.Run(selCtx,
			chromedp.WaitReady("#"+f.ElementID, chromedp.ByQuery),
			chromedp.Evaluate(selectExpression(f), &selected),
			chromedp.Sleep(filterPause),
		)
		cancel()

		switch {
		case err != nil:
			c.logger.Warn("failed to select filter option", "filter", f.ElementID, "error", err)
		case !selected:
			c.logger.Warn("filter option not found", "filter", f.ElementID, "value", f.Value, "text", f.Text)
		default:
			c.logger.Info("selected filter option", "filter", f.ElementID, "value", f.Value, "text", f.Text)
		}
	}

	if form.ApplySelector == "" {
		return
	}

	var clicked bool
	applyCtx, cancel := c.tabContext(ctx, c.opts.PageTimeout)
	defer cancel()
	err := chromedp.Run(applyCtx,
		chromedp.WaitReady(form.ApplySelector, chromedp.ByQuery),
		chromedp.Evaluate(clickExpression(form.ApplySelector), &clicked),
	)
	if err != nil || !clicked {
		c.logger.Warn("failed to apply filters", "selector", form.ApplySelector, "error", err)
		return
	}
	c.logger.Info("applied filters")
	c.sleep(ctx, c.opts.SettleDelay)
}

func (c *ChromeRenderer) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	sleepCtx, cancel := c.tabContext(ctx, d+c.opts.PageTimeout)
	defer cancel()
	_ = chromedp.Run(sleepCtx, chromedp.Sleep(d))
}

func (c *ChromeRenderer) saveDebug(ctx context.Context, htmlContent string) {
	base := filepath.Join(c.opts.DebugDir, fmt.Sprintf("page_%03d", c.pages))

	if err := os.WriteFile(base+".html", []byte(htmlContent), 0644); err != nil {
		c.logger.Error("error saving HTML", "path", base+".html", "error", err)
	}

	var shot []byte
	shotCtx, cancel := c.tabContext(ctx, c.opts.PageTimeout)
	defer cancel()
	if err := chromedp.Run(shotCtx, chromedp.FullScreenshot(&shot, 90)); err != nil {
		c.logger.Error("error taking screenshot", "error", err)
		return
	}
	if err := os.WriteFile(base+".png", shot, 0644); err != nil {
		c.logger.Error("error saving screenshot", "path", base+".png", "error", err)
		return
	}
	c.logger.Debug("saved debug snapshot", "path", base)
}

// selectExpression picks an option and fires the change event the page listens for.
func selectExpression(f Filter) string {
	id, _ := json.Marshal(f.ElementID)
	value, _ := json.Marshal(f.Value)
	text, _ := json.Marshal(f.Text)
	return fmt.Sprintf(`(function(id, value, text) {
	const el = document.getElementById(id);
	if (!el || !el.options) { return false; }
	const opt = Array.from(el.options).find(o => value ? o.value === value : o.text.trim() === text);
	if (!opt) { return false; }
	el.value = opt.value;
	el.dispatchEvent(new Event('change', { bubbles: true }));
	return true;
})(%s, %s, %s)`, id, value, text)
}

// clickExpression clicks through script, which survives overlays that swallow
// synthetic mouse events.
func clickExpression(selector string) string {
	sel, _ := json.Marshal(selector)
	return fmt.Sprintf(`(function(sel) {
	const el = document.querySelector(sel);
	if (!el) { return false; }
	el.scrollIntoView(true);
	el.click();
	return true;
})(%s)`, sel)
}

func hiddenExpression(selector string) string {
	sel, _ := json.Marshal(selector)
	return fmt.Sprintf(`(function(sel) {
	const el = document.querySelector(sel);
	return !el || el.offsetParent === null;
})(%s)`, sel)
}

func newLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}
