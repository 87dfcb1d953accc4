package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/api/websocket"
	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/cache"
	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/config"
	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/publisher"
	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/render"
	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/store"
	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/store/repository"
)

// session holds everything one scrape run opens: the renderer and the optional
// database, Redis and websocket services behind the sinks.
type session struct {
	cfg     *config.Config
	logger  *slog.Logger
	runID   string
	started time.Time

	renderer render.Renderer
	db       *store.Database
	runs     *repository.RunRepository
	redis    *cache.RedisCache
	ws       *websocket.Server

	closers []func() error
}

func openSession(ctx context.Context, cfg *config.Config, kind string, seasons []string) (_ *session, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	s := &session{
		cfg:     cfg,
		logger:  slog.Default(),
		runID:   uuid.NewString(),
		started: time.Now(),
	}
	defer func() {
		if err != nil {
			s.close()
		}
	}()

	log.Printf("Starting %s v%s - run %s", serviceName, serviceVersion, s.runID)

	if cfg.DatabaseURL != "" {
		if s.db, err = store.NewDatabase(cfg.DatabaseURL, s.logger); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		s.closers = append(s.closers, s.db.Close)
		if err = s.db.RunMigrations(ctx); err != nil {
			return nil, fmt.Errorf("failed to run database migrations: %w", err)
		}
		s.runs = repository.NewRunRepository(s.db)
		if err = s.runs.Start(ctx, s.runID, kind, seasons, s.started); err != nil {
			return nil, err
		}
		log.Printf("✓ Connected to %s database", s.db.Driver())
	}

	if cfg.RedisURL != "" {
		if s.redis, err = cache.NewRedisCache(cfg.RedisURL); err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		s.closers = append(s.closers, s.redis.Close)
		log.Println("✓ Connected to Redis")
	}

	if cfg.WSPort != "" {
		s.ws = websocket.NewServer(cfg.WSPort, s.logger)
		go func() {
			if err := s.ws.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("websocket server error", "error", err)
			}
		}()
		s.closers = append(s.closers, func() error {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return s.ws.Shutdown(shutdownCtx)
		})
		log.Printf("✓ WebSocket feed on :%s/ws/fixtures", cfg.WSPort)
	}

	if s.renderer, err = s.newRenderer(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *session) newRenderer() (render.Renderer, error) {
	var (
		r      render.Renderer
		closer func() error
	)

	switch s.cfg.Renderer {
	case config.RendererHTTP:
		h := render.NewHTTPRenderer(render.HTTPOptions{
			UserAgent:       s.cfg.UserAgent,
			Timeout:         s.cfg.PageTimeout,
			RequestInterval: s.cfg.RequestInterval,
			Retries:         s.cfg.RenderRetries,
			Logger:          s.logger,
		})
		r, closer = h, h.Close
	default:
		opts := render.ChromeOptions{
			Headless:        s.cfg.Headless,
			UserAgent:       s.cfg.UserAgent,
			PageTimeout:     s.cfg.PageTimeout,
			InitialDelay:    s.cfg.InitialDelay,
			SettleDelay:     s.cfg.SettleDelay,
			RequestInterval: s.cfg.RequestInterval,
			Retries:         s.cfg.RenderRetries,
			Logger:          s.logger,
		}
		if s.cfg.Debug {
			opts.DebugDir = s.cfg.OutputDir
		}
		c, err := render.NewChromeRenderer(opts)
		if err != nil {
			return nil, fmt.Errorf("failed to start browser: %w", err)
		}
		r, closer = c, c.Close
		log.Printf("✓ Browser started (headless=%t)", s.cfg.Headless)
	}
	s.closers = append(s.closers, closer)

	if s.redis != nil && s.cfg.CacheTTL > 0 {
		log.Printf("✓ Render cache enabled (ttl=%s)", s.cfg.CacheTTL)
		return render.NewCached(r, s.redis, s.cfg.CacheTTL, s.logger), nil
	}
	return r, nil
}

func (s *session) publisher() *publisher.RedisStreamPublisher {
	if s.redis == nil {
		return nil
	}
	return publisher.NewRedisStreamPublisher(s.redis.Client(), s.cfg.StreamName, s.runID)
}

// finish records the run's outcome. A cancelled run is still recorded, so the
// write gets its own short deadline.
func (s *session) finish(records int, runErr error) {
	if s.runs == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.runs.Finish(ctx, s.runID, records, runErr, time.Now()); err != nil {
		s.logger.Error("failed to record run outcome", "run_id", s.runID, "error", err)
	}
}

// track closes c with the session's other resources, so its error is logged
// rather than dropped.
func (s *session) track(name string, c io.Closer) {
	s.closers = append(s.closers, func() error {
		if err := c.Close(); err != nil {
			return fmt.Errorf("closing %s: %w", name, err)
		}
		return nil
	})
}

// close releases resources in reverse order of opening.
func (s *session) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.logger.Warn("error during shutdown", "error", err)
		}
	}
	s.closers = nil
}
