// Package apiserver exposes the orchestrator over REST. Clients either send
// the whole conversation with every turn (stateless) or address an
// in-memory session that the server updates one turn at a time.
package apiserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/hupe1980/toolmesh"
	"github.com/hupe1980/toolmesh/catalog"
	"github.com/hupe1980/toolmesh/session"
)

// Options configures a Server.
type Options struct {
	// Registry enables the catalog management endpoints when set.
	Registry catalog.Registry
	// Sessions backs the session endpoints. Defaults to a fresh in-memory store.
	Sessions *session.InMemoryStore
	// MaxSteps bounds auto-continued runs.
	MaxSteps int
	Logger   *zap.Logger
}

// Server is the toolmesh REST API server.
type Server struct {
	router       *mux.Router
	orchestrator *toolmesh.Orchestrator
	registry     catalog.Registry
	sessions     *session.InMemoryStore
	maxSteps     int
	logger       *zap.Logger
	server       *http.Server
}

// NewServer creates a fully-wired Server ready to Start().
func NewServer(addr string, o *toolmesh.Orchestrator, optFns ...func(o *Options)) *Server {
	opts := Options{MaxSteps: 5}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Sessions == nil {
		opts.Sessions = session.NewInMemoryStore()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	srv := &Server{
		router:       mux.NewRouter(),
		orchestrator: o,
		registry:     opts.Registry,
		sessions:     opts.Sessions,
		maxSteps:     opts.MaxSteps,
		logger:       opts.Logger,
	}
	srv.server = &http.Server{
		Addr:         addr,
		Handler:      srv.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
	}
	srv.registerRoutes()
	return srv
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Start begins listening and serving HTTP requests. It blocks until the
// server is shut down or encounters a fatal error.
func (s *Server) Start() error {
	s.logger.Info("API server starting", zap.String("addr", s.server.Addr))
	return s.server.ListenAndServe()
}

// Shutdown gracefully drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
