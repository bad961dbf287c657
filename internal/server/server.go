package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/deckrec/deckrec/internal/snapshot"
)

// Server is the deckrec HTTP API. It serves a single read-only snapshot;
// every request scores against the same immutable data, so no locking is
// needed anywhere.
type Server struct {
	snap    *snapshot.Snapshot
	router  chi.Router
	version string
	started time.Time
	log     zerolog.Logger
}

// New creates a Server over a loaded snapshot.
func New(snap *snapshot.Snapshot, version string, log zerolog.Logger) *Server {
	s := &Server{
		snap:    snap,
		version: version,
		started: time.Now(),
		log:     log,
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
		r.Get("/buckets", s.handleBuckets)
		r.Post("/recommend", s.handleRecommend)
	})

	s.router = r
}
