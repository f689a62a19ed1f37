// Package server provides the HTTP API for contextd.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/contextd/internal/config"
	"github.com/hyperjump/contextd/internal/keyword"
	"github.com/hyperjump/contextd/internal/search"
	"github.com/hyperjump/contextd/internal/store"
	"go.uber.org/zap"
)

// WatchService is the subset of the directory watcher the API needs.
type WatchService interface {
	Directories() []string
	AddDirectory(path string, syncExisting bool) error
	RemoveDirectory(path string) error
}

// Server is the HTTP server for the contextd API.
type Server struct {
	store   store.ContextStore
	engine  *search.Engine
	keyword keyword.Index // optional; kept in step with store writes
	watch   WatchService  // optional
	config  *config.Config
	logger  *zap.Logger
	server  *http.Server
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithKeywordIndex keeps the given keyword index in step with API writes.
func WithKeywordIndex(idx keyword.Index) ServerOption {
	return func(s *Server) { s.keyword = idx }
}

// WithWatchService enables the watch directory endpoints.
func WithWatchService(w WatchService) ServerOption {
	return func(s *Server) { s.watch = w }
}

// NewServer creates a server with the given dependencies.
func NewServer(st store.ContextStore, engine *search.Engine, cfg *config.Config, logger *zap.Logger, opts ...ServerOption) *Server {
	s := &Server{
		store:  st,
		engine: engine,
		config: cfg,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the chi router with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/contexts", s.handleCreateContext)
	r.Get("/contexts", s.handleListContexts)
	r.Get("/contexts/{id}", s.handleGetContext)
	r.Put("/contexts/{id}", s.handleUpdateContext)
	r.Delete("/contexts/{id}", s.handleDeleteContext)
	r.Post("/search", s.handleSearch)
	r.Post("/search/keyword", s.handleKeywordSearch)
	r.Post("/references", s.handleReferences)
	r.Get("/watch/directories", s.handleWatchDirectoriesList)
	r.Post("/watch/directories", s.handleWatchDirectoriesAdd)
	r.Delete("/watch/directories", s.handleWatchDirectoriesRemove)
	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
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
