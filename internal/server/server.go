package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lazypower/recall/internal/graph"
	"github.com/lazypower/recall/internal/index"
	"github.com/lazypower/recall/internal/ingest"
	"github.com/lazypower/recall/internal/query"
	"github.com/lazypower/recall/internal/store"
)

// Server is the recall HTTP API server.
type Server struct {
	store      *store.Store
	index      *index.Index
	graph      *graph.Graph
	pipeline   *ingest.Pipeline
	dispatcher *query.Dispatcher

	// reloadOnQuery replays the on-disk index and graph snapshot before
	// answering each query, for deployments where a separate ingestion
	// process writes the same data directory.
	reloadOnQuery bool

	router  chi.Router
	version string
	started time.Time
}

// Options wires the server's collaborators.
type Options struct {
	Store         *store.Store
	Index         *index.Index
	Graph         *graph.Graph
	Pipeline      *ingest.Pipeline
	Dispatcher    *query.Dispatcher
	ReloadOnQuery bool
	Version       string
}

// New creates a Server.
func New(opts Options) *Server {
	s := &Server{
		store:         opts.Store,
		index:         opts.Index,
		graph:         opts.Graph,
		pipeline:      opts.Pipeline,
		dispatcher:    opts.Dispatcher,
		reloadOnQuery: opts.ReloadOnQuery,
		version:       opts.Version,
		started:       time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/captures", s.handleCapture)
		r.Get("/query", s.handleQuery)
		r.Get("/memories", s.handleListMemories)
		r.Get("/memories/{memoryID}", s.handleGetMemory)
		r.Get("/movements/{entity}", s.handleMovements)
		r.Post("/maintenance/cleanup", s.handleCleanup)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	count, err := s.store.Count()
	storeOK := err == nil

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"version":  s.version,
		"uptime":   time.Since(s.started).Seconds(),
		"store":    storeOK,
		"memories": count,
		"graph":    s.graph.GetStats(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
