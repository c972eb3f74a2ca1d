// Package rest exposes the memory application service over HTTP.
package rest

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	memoryservice "mnemonic-backend/internal/service/memory"
)

// Handler handles memory and search session HTTP requests.
type Handler struct {
	service        *memoryservice.Service
	validate       *validator.Validate
	logger         *zap.Logger
	maxSuggestions int
}

// NewHandler creates the HTTP handler. maxSuggestions is the result limit
// applied to search requests that do not set one.
func NewHandler(service *memoryservice.Service, logger *zap.Logger, maxSuggestions int) *Handler {
	if maxSuggestions < 1 {
		maxSuggestions = 5
	}
	return &Handler{
		service:        service,
		validate:       validator.New(),
		logger:         logger,
		maxSuggestions: maxSuggestions,
	}
}

// CreateMemoryRequest is the body for POST /memories.
type CreateMemoryRequest struct {
	Problem  string `json:"problem" validate:"required"`
	Solution string `json:"solution" validate:"required"`
	Category string `json:"category,omitempty" validate:"omitempty,max=100"`
}

// UpdateMemoryRequest is the body for PUT /memories/{id}.
type UpdateMemoryRequest struct {
	Solution string `json:"solution" validate:"required"`
	Reason   string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

// AddConflictRequest is the body for POST /memories/{id}/conflicts.
type AddConflictRequest struct {
	ConflictID string `json:"conflict_id" validate:"required"`
	Strategy   string `json:"strategy,omitempty" validate:"omitempty,max=100"`
}

// SetConfidenceRequest is the body for PUT /memories/{id}/confidence.
// The implied [0,1] range is enforced here, at the boundary; the domain
// itself does not clamp.
type SetConfidenceRequest struct {
	Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`
}

// StartSessionRequest is the body for POST /search/sessions.
type StartSessionRequest struct {
	Query string `json:"query" validate:"required"`
}

// AddLayerRequest is the body for POST /search/sessions/{id}/layers.
type AddLayerRequest struct {
	LayerType string `json:"layer_type" validate:"required,max=100"`
}

// AddResultRequest is the body for POST /search/sessions/{id}/results.
type AddResultRequest struct {
	ResultID   string  `json:"result_id" validate:"required"`
	Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`
}

// CompleteSessionRequest is the body for POST /search/sessions/{id}/complete.
type CompleteSessionRequest struct {
	FinalConfidence float64 `json:"final_confidence" validate:"gte=0,lte=1"`
}

// FailSessionRequest is the body for POST /search/sessions/{id}/fail.
type FailSessionRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// SearchRequest is the body for POST /search.
type SearchRequest struct {
	Query      string `json:"query" validate:"required"`
	Context    string `json:"context,omitempty"`
	MaxResults int    `json:"max_results,omitempty" validate:"omitempty,min=1,max=50"`
}

// CreateMemory handles POST /memories.
func (h *Handler) CreateMemory(w http.ResponseWriter, r *http.Request) {
	var req CreateMemoryRequest
	if !h.decode(w, r, &req) {
		return
	}
	id := h.service.CreateMemoryEntry(req.Problem, req.Solution, req.Category)
	h.respond(w, http.StatusCreated, map[string]string{"id": id})
}

// UpdateMemory handles PUT /memories/{id}.
func (h *Handler) UpdateMemory(w http.ResponseWriter, r *http.Request) {
	var req UpdateMemoryRequest
	if !h.decode(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	if !h.service.UpdateMemoryEntry(id, req.Solution, req.Reason) {
		h.respondError(w, http.StatusNotFound, "memory entry not found")
		return
	}
	h.respond(w, http.StatusOK, map[string]string{"id": id})
}

// GetMemory handles GET /memories/{id}.
func (h *Handler) GetMemory(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.service.GetMemoryEntry(chi.URLParam(r, "id"))
	if !ok {
		h.respondError(w, http.StatusNotFound, "memory entry not found")
		return
	}
	h.respond(w, http.StatusOK, doc)
}

// AddConflict handles POST /memories/{id}/conflicts.
func (h *Handler) AddConflict(w http.ResponseWriter, r *http.Request) {
	var req AddConflictRequest
	if !h.decode(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	if !h.service.AddConflict(id, req.ConflictID, req.Strategy) {
		h.respondError(w, http.StatusNotFound, "memory entry not found")
		return
	}
	h.respond(w, http.StatusOK, map[string]string{"id": id})
}

// SetConfidence handles PUT /memories/{id}/confidence.
func (h *Handler) SetConfidence(w http.ResponseWriter, r *http.Request) {
	var req SetConfidenceRequest
	if !h.decode(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	if !h.service.SetConfidence(id, req.Confidence) {
		h.respondError(w, http.StatusNotFound, "memory entry not found")
		return
	}
	h.respond(w, http.StatusOK, map[string]string{"id": id})
}

// StartSession handles POST /search/sessions.
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if !h.decode(w, r, &req) {
		return
	}
	id := h.service.StartSearchSession(req.Query)
	h.respond(w, http.StatusCreated, map[string]string{"id": id})
}

// AddLayer handles POST /search/sessions/{id}/layers.
func (h *Handler) AddLayer(w http.ResponseWriter, r *http.Request) {
	var req AddLayerRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.sessionCommand(w, chi.URLParam(r, "id"), func(id string) bool {
		return h.service.AddSearchLayer(id, req.LayerType)
	})
}

// AddResult handles POST /search/sessions/{id}/results.
func (h *Handler) AddResult(w http.ResponseWriter, r *http.Request) {
	var req AddResultRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.sessionCommand(w, chi.URLParam(r, "id"), func(id string) bool {
		return h.service.AddSearchResult(id, req.ResultID, req.Confidence)
	})
}

// CompleteSession handles POST /search/sessions/{id}/complete.
func (h *Handler) CompleteSession(w http.ResponseWriter, r *http.Request) {
	var req CompleteSessionRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.sessionCommand(w, chi.URLParam(r, "id"), func(id string) bool {
		return h.service.CompleteSearchSession(id, req.FinalConfidence)
	})
}

// FailSession handles POST /search/sessions/{id}/fail.
func (h *Handler) FailSession(w http.ResponseWriter, r *http.Request) {
	var req FailSessionRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.sessionCommand(w, chi.URLParam(r, "id"), func(id string) bool {
		return h.service.FailSearchSession(id, req.Reason)
	})
}

// GetSession handles GET /search/sessions/{id}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.service.GetSearchSession(chi.URLParam(r, "id"))
	if !ok {
		h.respondError(w, http.StatusNotFound, "search session not found")
		return
	}
	h.respond(w, http.StatusOK, doc)
}

// Search handles POST /search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !h.decode(w, r, &req) {
		return
	}
	maxResults := req.MaxResults
	if maxResults == 0 {
		maxResults = h.maxSuggestions
	}
	h.respond(w, http.StatusOK, h.service.SearchMemories(req.Query, req.Context, maxResults))
}

// Statistics handles GET /statistics.
func (h *Handler) Statistics(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, h.service.Statistics())
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

// sessionCommand distinguishes an unknown session (404) from a rejected
// terminal-state transition (409).
func (h *Handler) sessionCommand(w http.ResponseWriter, id string, command func(string) bool) {
	if command(id) {
		h.respond(w, http.StatusOK, map[string]string{"id": id})
		return
	}
	if _, exists := h.service.GetSearchSession(id); exists {
		h.respondError(w, http.StatusConflict, "search session is already in a terminal state")
		return
	}
	h.respondError(w, http.StatusNotFound, "search session not found")
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.respondError(w, http.StatusBadRequest, "validation error: "+err.Error())
		return false
	}
	return true
}

func (h *Handler) respond(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respond(w, status, map[string]string{"error": message})
}
