// Package config holds run configuration loaded from the environment and the
// registry of seasons the scraper knows how to address.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	BaseURL        = "https://london.englandhockey.co.uk/competitions"
	FixturesPath   = "2024-2025-4477305-london-hockey-league-womens-4477409-london-womens-premier-division/fixtures"
	TablePath      = "2024-2025-4477305-london-hockey-league-womens-4477409-london-womens-premier-division/table"
	AllSeasons     = "all"
	RendererChrome = "chrome"
	RendererHTTP   = "http"
)

// ErrUnknownSeason is returned when a season label has no registry entry.
var ErrUnknownSeason = errors.New("unknown season")

// Season identifies one competition period and the tokens the site expects for it.
type Season struct {
	Name               string
	ID                 string
	CompetitionGroupID string
	CompetitionID      string

	// CompetitionGroupLabel and CompetitionLabel are the visible option texts used
	// when the table page has to be driven through its filter form.
	CompetitionGroupLabel string
	CompetitionLabel      string

	// TableViaFilters is set for seasons whose standings page ignores the URL
	// parameters and only renders the right table after the filters are applied.
	TableViaFilters bool
}

// Seasons is ordered newest first; "all" walks it in this order.
var Seasons = []Season{
	{
		Name:                  "2024-2025",
		ID:                    "14edd6a1-2d0e-447a-8550-68b42882e46d",
		CompetitionGroupID:    "30df1a93-543a-4352-a493-72e5ae8c102d",
		CompetitionID:         "a91902a0-70f5-4edb-8f50-0eba140e972f",
		CompetitionGroupLabel: "LONDON HOCKEY LEAGUE WOMENS",
		CompetitionLabel:      "London Women's Premier Division",
		TableViaFilters:       true,
	},
	{
		Name:                  "2023-2024",
		ID:                    "3d87a2df-f97d-47a1-8371-b8e5267c5360",
		CompetitionGroupID:    "8c166342-84d4-4f76-ae04-85bb285359da",
		CompetitionID:         "bbd3b34a-7621-4e1d-8bf4-e10a1712241e",
		CompetitionGroupLabel: "LONDON HOCKEY LEAGUE WOMENS",
		CompetitionLabel:      "London Women's Premier Division",
	},
}

// LookupSeason finds a season by its label.
func LookupSeason(name string) (Season, error) {
	for _, s := range Seasons {
		if s.Name == name {
			return s, nil
		}
	}
	return Season{}, fmt.Errorf("%w: %q", ErrUnknownSeason, name)
}

// SeasonNames expands a --season value into the labels to scrape. Unknown labels
// are passed through so the paginator can report them per season.
func SeasonNames(selection string) []string {
	selection = strings.TrimSpace(selection)
	if selection == "" || strings.EqualFold(selection, AllSeasons) {
		names := make([]string, 0, len(Seasons))
		for _, s := range Seasons {
			names = append(names, s.Name)
		}
		return names
	}

	var names []string
	for _, part := range strings.Split(selection, ",") {
		if part = strings.TrimSpace(part); part != "" {
			names = append(names, part)
		}
	}
	return names
}

// FixturesURL builds the fixtures page URL for a season. An empty matchDay loads the
// page the site picks by default.
func (s Season) FixturesURL(base, matchDay string) string {
	return s.pageURL(base, FixturesPath, matchDay)
}

// TableURL builds the standings page URL for a season.
func (s Season) TableURL(base string) string {
	return s.pageURL(base, TablePath, "")
}

func (s Season) pageURL(base, path, matchDay string) string {
	q := url.Values{}
	q.Set("season", s.ID)
	q.Set("competition-group", s.CompetitionGroupID)
	q.Set("competition", s.CompetitionID)
	if matchDay != "" {
		q.Set("match-day", matchDay)
	}
	return strings.TrimRight(base, "/") + "/" + path + "?" + q.Encode()
}

// Config holds every tunable of a scrape run.
type Config struct {
	BaseURL   string
	OutputDir string
	Headless  bool
	Debug     bool
	Season    string
	Renderer  string
	UserAgent string

	// Page loading
	PageTimeout     time.Duration
	InitialDelay    time.Duration
	SettleDelay     time.Duration
	RequestInterval time.Duration
	SeasonDelay     time.Duration
	RenderRetries   int

	MaxPagesPerSeason int

	// Labels stamped on every record
	CompetitionGroup   string
	DefaultCompetition string

	// Optional sinks and services
	DatabaseURL string
	RedisURL    string
	CacheTTL    time.Duration
	StreamName  string
	WSPort      string
	APIPort     string
	RefreshHour int
}

// Load reads configuration from environment variables with defaults matching
// the site's observed behaviour.
func Load() *Config {
	return &Config{
		BaseURL:   getEnv("HOCKEY_BASE_URL", BaseURL),
		OutputDir: getEnv("HOCKEY_OUTPUT_DIR", "hockey_data"),
		Headless:  getEnv("HOCKEY_HEADLESS", "true") == "true",
		Debug:     getEnv("HOCKEY_DEBUG", "false") == "true",
		Season:    getEnv("HOCKEY_SEASON", AllSeasons),
		Renderer:  getEnv("HOCKEY_RENDERER", RendererChrome),
		UserAgent: getEnv("HOCKEY_USER_AGENT", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),

		PageTimeout:     envDuration("PAGE_TIMEOUT", 30*time.Second),
		InitialDelay:    envDuration("INITIAL_DELAY", 10*time.Second),
		SettleDelay:     envDuration("SETTLE_DELAY", 5*time.Second),
		RequestInterval: envDuration("REQUEST_INTERVAL", 2*time.Second),
		SeasonDelay:     envDuration("SEASON_DELAY", 3*time.Second),
		RenderRetries:   envInt("RENDER_RETRIES", 2),

		MaxPagesPerSeason: envInt("MAX_PAGES_PER_SEASON", 400),

		CompetitionGroup:   getEnv("COMPETITION_GROUP", "LONDON HOCKEY LEAGUE WOMENS"),
		DefaultCompetition: getEnv("DEFAULT_COMPETITION", "London Women's Premier Division"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),
		CacheTTL:    envDuration("RENDER_CACHE_TTL", 0),
		StreamName:  getEnv("REDIS_STREAM", "hockey.fixtures"),
		WSPort:      getEnv("WS_PORT", ""),
		APIPort:     getEnv("API_PORT", "8080"),
		RefreshHour: envInt("REFRESH_HOUR", -1),
	}
}

// Validate rejects combinations the run cannot work with.
func (c *Config) Validate() error {
	if c.OutputDir == "" {
		return fmt.Errorf("output directory must be set")
	}
	if c.Renderer != RendererChrome && c.Renderer != RendererHTTP {
		return fmt.Errorf("invalid renderer %q (must be %q or %q)", c.Renderer, RendererChrome, RendererHTTP)
	}
	if c.PageTimeout <= 0 {
		return fmt.Errorf("page timeout must be positive")
	}
	if c.MaxPagesPerSeason <= 0 {
		return fmt.Errorf("max pages per season must be positive")
	}
	if c.RefreshHour < -1 || c.RefreshHour > 23 {
		return fmt.Errorf("refresh hour must be 0-23, or -1 to disable")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil {
		return v
	}
	return defaultValue
}

// envDuration accepts Go duration strings ("30s") or a bare number of seconds.
func envDuration(key string, defaultValue time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
