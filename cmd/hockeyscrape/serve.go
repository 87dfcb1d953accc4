package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/api/rest"
	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/config"
	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/scheduler"
	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/store"
)

func newServeCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored fixtures, tables and runs over a REST API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&cfg.APIPort, "port", cfg.APIPort, "REST API port")
	cmd.Flags().IntVar(&cfg.RefreshHour, "refresh-hour", cfg.RefreshHour, "Re-scrape fixtures and tables daily at this hour (-1 disables)")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("serve needs a database: pass --db or set DATABASE_URL")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	db, err := store.NewDatabase(cfg.DatabaseURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	log.Printf("✓ Connected to %s database", db.Driver())

	if err := db.RunMigrations(ctx); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	log.Println("✓ Database migrations applied")

	server := rest.NewServer(cfg.APIPort, db, nil)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()
	log.Printf("✓ REST API server listening on :%s", cfg.APIPort)

	if cfg.RefreshHour >= 0 {
		sched := scheduler.New(scheduler.Config{Hour: cfg.RefreshHour}, nil)
		sched.Add("fixtures", func(ctx context.Context) error { return runFixtures(ctx, cfg) })
		sched.Add("table", func(ctx context.Context) error { return runTable(ctx, cfg) })
		go sched.Start(ctx)
		log.Printf("✓ Daily refresh at %02d:00", cfg.RefreshHour)
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Println("✓ Shutdown complete")
	return nil
}
