package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bert4lyf/chit-chat/internal/chat"
)

// CreateRoomResponse represents the room creation response.
type CreateRoomResponse struct {
	ID  string `json:"id"`
	TTL int64  `json:"ttl"` // seconds
}

// TTLResponse represents the remaining-TTL response.
type TTLResponse struct {
	TTL int64 `json:"ttl"` // seconds remaining, >= 0
}

// MessageResponse represents a message in API responses.
type MessageResponse struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp int64  `json:"ts"`
}

// RoomMessagesResponse represents the list messages response.
type RoomMessagesResponse struct {
	Messages []MessageResponse `json:"messages"`
}

// PostMessageRequest represents the post message request.
type PostMessageRequest struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// PostMessageResponse represents the post message response.
type PostMessageResponse struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// CreateRoom handles room creation.
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.svc.CreateRoom(r.Context())
	if err != nil {
		h.StoreError(w, err)
		return
	}

	h.JSON(w, http.StatusCreated, CreateRoomResponse{
		ID:  room.ID,
		TTL: int64(h.svc.TTL().Seconds()),
	})
}

// GetRoomTTL handles the remaining-TTL read driving the client countdown.
func (h *Handler) GetRoomTTL(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")

	ttl, err := h.svc.RemainingTTL(r.Context(), roomID)
	if err != nil {
		h.StoreError(w, err)
		return
	}

	h.JSON(w, http.StatusOK, TTLResponse{TTL: ttl})
}

// GetRoomMessages handles fetching all messages from a room.
func (h *Handler) GetRoomMessages(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")

	messages, err := h.svc.ListMessages(r.Context(), roomID)
	if err != nil {
		h.StoreError(w, err)
		return
	}

	msgResponses := make([]MessageResponse, len(messages))
	for i, msg := range messages {
		msgResponses[i] = MessageResponse{
			ID:        msg.ID,
			Sender:    msg.Sender,
			Text:      msg.Text,
			Timestamp: msg.Timestamp,
		}
	}

	h.JSON(w, http.StatusOK, RoomMessagesResponse{Messages: msgResponses})
}

// PostMessage handles posting a message to a room.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")

	var req PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	msg, err := h.svc.PostMessage(r.Context(), roomID, req.Sender, req.Text)
	if err != nil {
		h.StoreError(w, err)
		return
	}

	h.JSON(w, http.StatusCreated, PostMessageResponse{
		ID:        msg.ID,
		Timestamp: msg.Timestamp,
	})
}

// DestroyRoom handles explicit destruction. Idempotent: destroying an
// already-destroyed or unknown room still acknowledges.
func (h *Handler) DestroyRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")

	if err := h.svc.DestroyRoom(r.Context(), roomID, chat.ReasonManual); err != nil {
		h.StoreError(w, err)
		return
	}

	h.JSON(w, http.StatusOK, map[string]string{"status": "destroyed"})
}
