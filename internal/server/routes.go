package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mnemo-ai/mnemod/internal/engine"
	"github.com/mnemo-ai/mnemod/internal/memstore"
	"github.com/mnemo-ai/mnemod/internal/store"
)

func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	eng := s.engineFor(r)
	if eng == nil {
		writeError(w, http.StatusNotFound, "unknown namespace")
		return
	}
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "q required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	// Optional per-request profile override
	weights := eng.Weights
	if profile := r.URL.Query().Get("profile"); profile != "" {
		weights = engine.ProfileWeights(profile)
	}

	ranked, err := eng.RankWith(r.Context(), query, limit, weights)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":   query,
		"results": ranked,
	})
}

func (s *Server) handleUpsertFact(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Namespace string `json:"namespace"`
		Content   string `json:"content"`
		Category  string `json:"category"`
		Entity    string `json:"entity"`
		FactKey   string `json:"fact_key"`
		ValidFrom string `json:"valid_from"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "content required")
		return
	}

	ns := req.Namespace
	if ns == "" {
		ns = s.defaultNS
	}
	eng := s.engines[ns]
	if eng == nil {
		writeError(w, http.StatusNotFound, "unknown namespace")
		return
	}

	in := engine.FactInput{
		Content:  req.Content,
		Category: memstore.NormalizeCategory(req.Category),
		Entity:   req.Entity,
		FactKey:  req.FactKey,
	}
	if req.ValidFrom != "" {
		t, err := time.Parse(time.RFC3339, req.ValidFrom)
		if err != nil {
			writeError(w, http.StatusBadRequest, "valid_from must be RFC 3339")
			return
		}
		in.ValidFrom = &t
	}

	result, err := eng.UpsertFact(r.Context(), in)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleCurrentFact(w http.ResponseWriter, r *http.Request) {
	eng := s.engineFor(r)
	if eng == nil {
		writeError(w, http.StatusNotFound, "unknown namespace")
		return
	}
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "q required")
		return
	}

	var category memstore.Category
	if c := r.URL.Query().Get("category"); c != "" {
		category = memstore.NormalizeCategory(c)
	}

	rec, err := eng.CurrentFact(r.Context(), query, category)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "no current fact")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleFactHistory(w http.ResponseWriter, r *http.Request) {
	eng := s.engineFor(r)
	if eng == nil {
		writeError(w, http.StatusNotFound, "unknown namespace")
		return
	}
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "q required")
		return
	}

	var category memstore.Category
	if c := r.URL.Query().Get("category"); c != "" {
		category = memstore.NormalizeCategory(c)
	}

	history, err := eng.FactHistory(r.Context(), query, category)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":   query,
		"history": history,
	})
}

func (s *Server) handleRecordUsage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Namespace      string   `json:"namespace"`
		MemoryIDs      []string `json:"memory_ids"`
		ConversationID string   `json:"conversation_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if len(req.MemoryIDs) == 0 {
		writeError(w, http.StatusBadRequest, "memory_ids required")
		return
	}

	ns := req.Namespace
	if ns == "" {
		ns = s.defaultNS
	}
	eng := s.engines[ns]
	if eng == nil {
		writeError(w, http.StatusNotFound, "unknown namespace")
		return
	}

	eventID, err := eng.RecordUsage(r.Context(), req.MemoryIDs, req.ConversationID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"event_id": eventID})
}

func (s *Server) handleRecordFeedback(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	var req struct {
		Namespace     string `json:"namespace"`
		Rating        string `json:"rating"`
		TaskCompleted bool   `json:"task_completed"`
		Text          string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	ns := req.Namespace
	if ns == "" {
		ns = s.defaultNS
	}
	eng := s.engines[ns]
	if eng == nil {
		writeError(w, http.StatusNotFound, "unknown namespace")
		return
	}

	err := eng.RecordFeedback(r.Context(), eventID, store.ParseRating(req.Rating), req.TaskCompleted, req.Text)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMostEffective(w http.ResponseWriter, r *http.Request) {
	s.handleEffectiveness(w, r, true)
}

func (s *Server) handleLeastEffective(w http.ResponseWriter, r *http.Request) {
	s.handleEffectiveness(w, r, false)
}

func (s *Server) handleEffectiveness(w http.ResponseWriter, r *http.Request, top bool) {
	eng := s.engineFor(r)
	if eng == nil {
		writeError(w, http.StatusNotFound, "unknown namespace")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	var (
		rows []store.Effectiveness
		err  error
	)
	if top {
		rows, err = eng.MostEffective(limit)
	} else {
		rows, err = eng.LeastEffective(limit)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": rows})
}

func (s *Server) handleCandidates(w http.ResponseWriter, r *http.Request) {
	eng := s.engineFor(r)
	if eng == nil {
		writeError(w, http.StatusNotFound, "unknown namespace")
		return
	}
	set, err := eng.IdentifyCandidates(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (s *Server) handleFindSimilar(w http.ResponseWriter, r *http.Request) {
	eng := s.engineFor(r)
	if eng == nil {
		writeError(w, http.StatusNotFound, "unknown namespace")
		return
	}
	threshold, _ := strconv.ParseFloat(r.URL.Query().Get("threshold"), 64)

	groups, err := eng.FindSimilar(r.Context(), threshold)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"groups": groups})
}

func (s *Server) handleRunMaintenance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Namespace string `json:"namespace"`
		DryRun    bool   `json:"dry_run"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	ns := req.Namespace
	if ns == "" {
		ns = s.defaultNS
	}
	eng := s.engines[ns]
	if eng == nil {
		writeError(w, http.StatusNotFound, "unknown namespace")
		return
	}

	report, err := eng.RunMaintenance(r.Context(), req.DryRun)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleFailures(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"failures": s.mem.Queue().Failed(),
	})
}

func (s *Server) handleReplay(w http.ResponseWriter, r *http.Request) {
	replayed := s.mem.Replay(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"replayed":  replayed,
		"remaining": s.mem.Queue().Len(),
	})
}
