package handlers

import (
	"net/http"

	"thoughtgraph/application/services"
	pkgerrors "thoughtgraph/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// UserHandler handles user and friend HTTP requests
type UserHandler struct {
	base
	graph *services.SocialGraph
}

// NewUserHandler creates a new user handler
func NewUserHandler(graph *services.SocialGraph, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		base:  base{errors: errorHandler, logger: logger},
		graph: graph,
	}
}

// ListUsers handles GET /users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.graph.ListUsers(r.Context())
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, users)
}

// GetUser handles GET /users/{userId}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.graph.GetUser(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, user)
}

// CreateUser handles POST /users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var payload services.UserPayload
	if err := h.decode(w, r, &payload); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	user, err := h.graph.CreateUser(r.Context(), payload)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, user)
}

// UpdateUser handles PUT /users/{userId}
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var payload services.UserPayload
	if err := h.decode(w, r, &payload); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	user, err := h.graph.UpdateUser(r.Context(), chi.URLParam(r, "userId"), payload)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, user)
}

// DeleteUser handles DELETE /users/{userId}
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	result, err := h.graph.DeleteUser(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	if len(result.Warnings) > 0 {
		h.logger.Warn("User deleted with warnings",
			zap.String("userId", result.UserID),
			zap.Strings("warnings", result.Warnings),
		)
	}
	h.respondJSON(w, http.StatusOK, result)
}

// AddFriend handles POST /users/{userId}/friends/{friendId}
func (h *UserHandler) AddFriend(w http.ResponseWriter, r *http.Request) {
	user, err := h.graph.AddFriend(r.Context(), chi.URLParam(r, "userId"), chi.URLParam(r, "friendId"))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, user)
}

// RemoveFriend handles DELETE /users/{userId}/friends/{friendId}
func (h *UserHandler) RemoveFriend(w http.ResponseWriter, r *http.Request) {
	result, err := h.graph.RemoveFriend(r.Context(), chi.URLParam(r, "userId"), chi.URLParam(r, "friendId"))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, result)
}
