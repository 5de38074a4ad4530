// Package handlers implements the HTTP handlers for the LexGate
// gateway: completion routing, batch routing, provider health, and the
// recent-request audit view.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/lexgate/lexgate/internal/audit"
	"github.com/lexgate/lexgate/internal/router"
	"github.com/lexgate/lexgate/pkg/models"
)

// Handlers holds all handler dependencies.
type Handlers struct {
	Router *router.Router
	Audit  *audit.Log
}

// New creates a Handlers instance.
func New(rt *router.Router, auditLog *audit.Log) *Handlers {
	return &Handlers{Router: rt, Audit: auditLog}
}

// completionRequest is the inbound JSON shape for one request.
type completionRequest struct {
	Payload     json.RawMessage    `json:"payload"`
	Type        models.RequestType `json:"type"`
	Priority    models.Priority    `json:"priority"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	TimeoutMS   int                `json:"timeout_ms"`
	Metadata    map[string]string  `json:"metadata"`
}

func (c completionRequest) toRequest() *models.Request {
	req := &models.Request{
		ID:          uuid.New().String(),
		Payload:     c.Payload,
		Type:        c.Type,
		Priority:    c.Priority,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
		Timeout:     time.Duration(c.TimeoutMS) * time.Millisecond,
		Metadata:    c.Metadata,
	}
	if req.Type == "" {
		req.Type = models.RequestChat
	}
	if req.Priority == 0 {
		req.Priority = models.PriorityMedium
	}
	return req
}

// Complete routes a single request.
func (h *Handlers) Complete(w http.ResponseWriter, r *http.Request) {
	var body completionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(body.Payload) == 0 {
		respondError(w, http.StatusBadRequest, "payload is required")
		return
	}

	resp := h.Router.Process(r.Context(), body.toRequest())

	status := http.StatusOK
	if !resp.Success {
		status = http.StatusBadGateway
	}
	respondJSON(w, status, resp)
}

// CompleteBatch routes a batch of requests, preserving order.
func (h *Handlers) CompleteBatch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Requests []completionRequest `json:"requests"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(body.Requests) == 0 {
		respondError(w, http.StatusBadRequest, "requests is required")
		return
	}
	for i, req := range body.Requests {
		if len(req.Payload) == 0 {
			respondError(w, http.StatusBadRequest, "requests["+strconv.Itoa(i)+"]: payload is required")
			return
		}
	}

	reqs := make([]*models.Request, len(body.Requests))
	for i, req := range body.Requests {
		reqs[i] = req.toRequest()
	}

	responses := h.Router.ProcessBatch(r.Context(), reqs)
	respondJSON(w, http.StatusOK, map[string]any{"responses": responses})
}

// ProviderHealth returns the per-provider health snapshot map.
func (h *Handlers) ProviderHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.Router.Health())
}

// ListRequests returns recent routing outcomes, newest first.
func (h *Handlers) ListRequests(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	records := h.Audit.Recent(limit)
	if records == nil {
		records = []audit.Record{}
	}
	respondJSON(w, http.StatusOK, records)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
