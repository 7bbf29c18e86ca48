// Package server provides the HTTP API for gradsys.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/gradsys/internal/config"
	"github.com/hyperjump/gradsys/internal/registrar"
	"github.com/hyperjump/gradsys/pkg/utils"
)

// WatchService manages the inbox directories at runtime. Nil disables the watch endpoints.
type WatchService interface {
	Directories() []string
	AddDirectory(path string, syncExisting bool) error
	RemoveDirectory(path string) error
}

// Server is the HTTP server for the gradsys API.
type Server struct {
	registrar *registrar.Registrar
	config    *config.ServerConfig
	logger    *zap.Logger
	server    *http.Server

	watch WatchService
	// configPath and appConfig persist watch directory changes; both optional.
	configPath  string
	appConfig   *config.Config
	appConfigMu sync.Mutex
}

// NewServer creates a server with the given dependencies.
func NewServer(
	reg *registrar.Registrar,
	cfg *config.ServerConfig,
	logger *zap.Logger,
	watch WatchService,
	configPath string,
	appConfig *config.Config,
) *Server {
	return &Server{
		registrar:  reg,
		config:     cfg,
		logger:     utils.OrNop(logger),
		watch:      watch,
		configPath: configPath,
		appConfig:  appConfig,
	}
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if s.config.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.config.RequestTimeout))
	}
	r.Use(middleware.Compress(5, "application/json", "text/csv"))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/transcripts", func(r chi.Router) {
			r.Post("/", s.handleUploadTranscript)
			r.Get("/", s.handleListTranscripts)
			r.Post("/parse", s.handleParseTranscript)
			r.Post("/bulk", s.handleBulkUpload)
			r.Get("/search", s.handleSearchCourses)
			r.Get("/{id}", s.handleGetTranscript)
			r.Delete("/{id}", s.handleDeleteTranscript)
			r.Post("/{id}/process", s.handleProcessTranscript)
		})
		r.Get("/graduates/eligible", s.handleEligibleGraduates)
		r.Get("/graduates/export", s.handleExportGraduates)
		r.Get("/stats", s.handleStats)
		r.Get("/watch/directories", s.handleWatchDirectoriesList)
		r.Post("/watch/directories", s.handleWatchDirectoriesAdd)
		r.Delete("/watch/directories", s.handleWatchDirectoriesRemove)
	})
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
