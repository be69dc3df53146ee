package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mnemo-ai/mnemod/internal/engine"
	"github.com/mnemo-ai/mnemod/internal/resilient"
	"github.com/mnemo-ai/mnemod/internal/store"
)

// Server is the mnemod HTTP API server: the operational surface the
// conversation pipeline and tooling call into.
type Server struct {
	db        *store.DB
	engines   map[string]*engine.Engine
	defaultNS string
	mem       *resilient.Store
	router    chi.Router
	version   string
	started   time.Time
}

// New creates a Server over one engine per namespace. defaultNS is used when
// a request names no namespace; mem is the shared resilient store handle for
// failure-queue inspection and replay.
func New(db *store.DB, engines map[string]*engine.Engine, defaultNS string, mem *resilient.Store, version string) *Server {
	s := &Server{
		db:        db,
		engines:   engines,
		defaultNS: defaultNS,
		mem:       mem,
		version:   version,
		started:   time.Now(),
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

		r.Get("/memories/rank", s.handleRank)

		r.Post("/facts", s.handleUpsertFact)
		r.Get("/facts/current", s.handleCurrentFact)
		r.Get("/facts/history", s.handleFactHistory)

		r.Post("/feedback/usage", s.handleRecordUsage)
		r.Post("/feedback/{eventID}/rating", s.handleRecordFeedback)
		r.Get("/effectiveness/top", s.handleMostEffective)
		r.Get("/effectiveness/bottom", s.handleLeastEffective)

		r.Get("/maintenance/candidates", s.handleCandidates)
		r.Get("/maintenance/similar", s.handleFindSimilar)
		r.Post("/maintenance/run", s.handleRunMaintenance)

		r.Get("/failures", s.handleFailures)
		r.Post("/failures/replay", s.handleReplay)
	})

	s.router = r
}

// engineFor resolves the namespace query parameter to an engine, falling
// back to the default namespace.
func (s *Server) engineFor(r *http.Request) *engine.Engine {
	ns := r.URL.Query().Get("namespace")
	if ns == "" {
		ns = s.defaultNS
	}
	return s.engines[ns]
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.db.Ping(); err != nil {
		dbOK = false
	}

	namespaces := make([]string, 0, len(s.engines))
	for ns := range s.engines {
		namespaces = append(namespaces, ns)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"version":    s.version,
		"uptime":     time.Since(s.started).Seconds(),
		"db":         dbOK,
		"db_path":    s.db.Path,
		"namespaces": namespaces,
		"failures":   s.mem.Queue().Len(),
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
