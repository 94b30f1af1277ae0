package handlers

import (
	"net/http"

	"thoughtgraph/application/services"
	pkgerrors "thoughtgraph/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ThoughtHandler handles thought and reaction HTTP requests
type ThoughtHandler struct {
	base
	graph *services.SocialGraph
}

// NewThoughtHandler creates a new thought handler
func NewThoughtHandler(graph *services.SocialGraph, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *ThoughtHandler {
	return &ThoughtHandler{
		base:  base{errors: errorHandler, logger: logger},
		graph: graph,
	}
}

// ListThoughts handles GET /thoughts
func (h *ThoughtHandler) ListThoughts(w http.ResponseWriter, r *http.Request) {
	thoughts, err := h.graph.ListThoughts(r.Context())
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, thoughts)
}

// GetThought handles GET /thoughts/{thoughtId}
func (h *ThoughtHandler) GetThought(w http.ResponseWriter, r *http.Request) {
	thought, err := h.graph.GetThought(r.Context(), chi.URLParam(r, "thoughtId"))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, thought)
}

// CreateThought handles POST /thoughts
func (h *ThoughtHandler) CreateThought(w http.ResponseWriter, r *http.Request) {
	var payload services.CreateThoughtPayload
	if err := h.decode(w, r, &payload); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	result, err := h.graph.CreateThought(r.Context(), payload)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, result)
}

// UpdateThought handles PUT /thoughts/{thoughtId}
func (h *ThoughtHandler) UpdateThought(w http.ResponseWriter, r *http.Request) {
	var payload services.UpdateThoughtPayload
	if err := h.decode(w, r, &payload); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	thought, err := h.graph.UpdateThought(r.Context(), chi.URLParam(r, "thoughtId"), payload)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, thought)
}

// DeleteThought handles DELETE /thoughts/{thoughtId}
func (h *ThoughtHandler) DeleteThought(w http.ResponseWriter, r *http.Request) {
	thought, err := h.graph.DeleteThought(r.Context(), chi.URLParam(r, "thoughtId"))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, thought)
}

// AddReaction handles POST /thoughts/{thoughtId}/reactions
func (h *ThoughtHandler) AddReaction(w http.ResponseWriter, r *http.Request) {
	var payload services.ReactionPayload
	if err := h.decode(w, r, &payload); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	thought, err := h.graph.AddReaction(r.Context(), chi.URLParam(r, "thoughtId"), payload)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, thought)
}

// RemoveReaction handles DELETE /thoughts/{thoughtId}/reactions/{reactionId}
func (h *ThoughtHandler) RemoveReaction(w http.ResponseWriter, r *http.Request) {
	reactionID, err := pathParam(r, "reactionId")
	if err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError("reactionId", "must be a valid path segment"))
		return
	}

	thought, err := h.graph.RemoveReaction(r.Context(), chi.URLParam(r, "thoughtId"), reactionID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, thought)
}
