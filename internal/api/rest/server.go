package rest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/store"
)

// Server represents the REST API server
type Server struct {
	port   string
	server *http.Server
	logger *slog.Logger
}

// NewServer creates a new REST API server over the scrape database
func NewServer(port string, db *store.Database, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		port:   port,
		logger: logger,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%s", port),
			Handler:           NewRouter(NewHandler(db), logger),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// NewRouter wires the middleware stack and routes.
func NewRouter(handler *Handler, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	router := mux.NewRouter()

	router.Use(RecoveryMiddleware(logger))
	router.Use(LoggingMiddleware(logger))

	// Health check
	router.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	// API v1 routes
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/seasons", handler.GetSeasons).Methods("GET")
	api.HandleFunc("/fixtures", handler.GetFixtures).Methods("GET")
	api.HandleFunc("/standings", handler.GetStandings).Methods("GET")
	api.HandleFunc("/runs", handler.GetRuns).Methods("GET")
	api.HandleFunc("/runs/{runID}", handler.GetRun).Methods("GET")

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "HEAD", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	})
	return c.Handler(router)
}

// Start starts the REST API server
func (s *Server) Start() error {
	s.logger.Info("REST API listening", "port", s.port)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
