package server

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lazypower/recall/internal/query"
	"github.com/lazypower/recall/internal/vision"
)

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Analysis   *vision.SceneAnalysis `json:"analysis"`
		Image      string                `json:"image,omitempty"` // base64 JPEG
		CapturedAt string                `json:"captured_at,omitempty"`
		Transcript string                `json:"transcript,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Analysis == nil {
		writeError(w, http.StatusBadRequest, "analysis required")
		return
	}

	capturedAt := time.Now()
	if req.CapturedAt != "" {
		t, err := time.Parse(time.RFC3339, req.CapturedAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "captured_at must be RFC 3339")
			return
		}
		capturedAt = t
	}

	var image []byte
	if req.Image != "" {
		data, err := base64.StdEncoding.DecodeString(req.Image)
		if err != nil {
			writeError(w, http.StatusBadRequest, "image must be base64")
			return
		}
		image = data
	}

	result, err := s.pipeline.Ingest(r.Context(), req.Analysis, image, capturedAt, req.Transcript)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"memory_id": result.Record.ID,
		"saved":     result.Saved,
		"movements": len(result.Movements),
		"removed":   result.Removed,
	})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if s.reloadOnQuery {
		s.index.Reload()
		s.graph.Load(s.pipeline.GraphPath())
	}

	q := r.URL.Query()
	req := query.Request{
		Type:     query.Type(q.Get("type")),
		Entity:   q.Get("entity"),
		Question: q.Get("question"),
		Placed:   q.Get("placed") == "true",
	}
	if req.Type == "" {
		req.Type = query.TypeObject
	}
	if from := q.Get("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			writeError(w, http.StatusBadRequest, "from must be RFC 3339")
			return
		}
		req.TimeStart = t
	}
	if to := q.Get("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			writeError(w, http.StatusBadRequest, "to must be RFC 3339")
			return
		}
		req.TimeEnd = t
	}

	result := s.dispatcher.Dispatch(r.Context(), req)

	status := http.StatusOK
	if result.Outcome == query.OutcomeNotFound {
		status = http.StatusNotFound
	}
	writeJSON(w, status, result)
}

func (s *Server) handleListMemories(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	ids, err := s.store.ListIDs()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Newest first.
	type summary struct {
		ID       string `json:"id"`
		Time     string `json:"timestamp"`
		Location string `json:"location"`
		Objects  string `json:"objects"`
		People   string `json:"people,omitempty"`
	}
	summaries := make([]summary, 0, limit)
	for i := len(ids) - 1; i >= 0 && len(summaries) < limit; i-- {
		entry, ok := s.index.GetEntry(ids[i])
		if !ok {
			continue
		}
		summaries = append(summaries, summary{
			ID:       ids[i],
			Time:     entry.Timestamp,
			Location: entry.Location,
			Objects:  entry.Objects,
			People:   entry.People,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total":    len(ids),
		"memories": summaries,
	})
}

func (s *Server) handleGetMemory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "memoryID")
	rec, err := s.store.LoadRecord(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "memory not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleMovements(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")
	writeJSON(w, http.StatusOK, map[string]any{
		"entity":    entity,
		"last_seen": s.graph.LastLocation(entity),
		"movements": s.graph.GetHistory(entity, 10),
		"narrative": s.graph.Narrative(entity, 5),
	})
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MaxRecords int `json:"max_records"`
	}
	// Body is optional; ignore decode errors and use the pipeline default.
	json.NewDecoder(r.Body).Decode(&req)

	maxRecords := req.MaxRecords
	if maxRecords <= 0 {
		writeError(w, http.StatusBadRequest, "max_records required")
		return
	}
	evicted, err := s.index.Cleanup(maxRecords)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"evicted": evicted})
}
