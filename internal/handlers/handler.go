package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bert4lyf/chit-chat/internal/bus"
	"github.com/bert4lyf/chit-chat/internal/chat"
	"github.com/bert4lyf/chit-chat/internal/store"
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	svc   *chat.Service
	bus   *bus.Bus
	store store.Store
}

// NewHandler creates a new Handler.
func NewHandler(svc *chat.Service, b *bus.Bus, st store.Store) *Handler {
	return &Handler{svc: svc, bus: b, store: st}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// StoreError maps the store error taxonomy onto HTTP responses.
func (h *Handler) StoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrRoomNotFound):
		h.Error(w, http.StatusNotFound, "room not found")
	case errors.Is(err, store.ErrRoomDestroyed):
		h.Error(w, http.StatusGone, "room destroyed")
	case errors.Is(err, store.ErrInvalidMessage):
		h.Error(w, http.StatusUnprocessableEntity, "invalid message")
	case errors.Is(err, store.ErrTimeout):
		h.Error(w, http.StatusGatewayTimeout, "timed out")
	default:
		h.Error(w, http.StatusInternalServerError, "internal error")
	}
}
