package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bert4lyf/chit-chat/internal/bus"
	"github.com/bert4lyf/chit-chat/internal/models"
	"github.com/bert4lyf/chit-chat/internal/store"
)

// heartbeatInterval keeps idle event streams alive through proxies.
const heartbeatInterval = 15 * time.Second

// StreamEvents subscribes the caller to a room channel and relays events as
// Server-Sent Events. Events are wake-up signals: on chat.message the client
// re-fetches the message list, on chat.destroy the stream ends and the room
// is gone for good. Clients that connect after an event fired cannot retrieve
// it here; the message list is the catch-up path.
func (h *Handler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")

	// Reject dead rooms up front so a typo'd or stale link fails fast
	// instead of hanging on a silent stream.
	room, err := h.store.Get(r.Context(), roomID)
	if err != nil {
		h.StoreError(w, err)
		return
	}
	if room.State != models.RoomActive {
		h.StoreError(w, store.ErrRoomDestroyed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.Error(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	sub := h.bus.Subscribe(roomID, parseKinds(r.URL.Query().Get("events"))...)
	defer sub.Close()

	// Re-check after subscribing: a destroy that fired in between would
	// otherwise leave this stream open and silent forever.
	if room, err := h.store.Get(r.Context(), roomID); err != nil || room.State != models.RoomActive {
		h.StoreError(w, store.ErrRoomDestroyed)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case <-heartbeat.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()

		case evt, open := <-sub.C:
			if !open {
				// Channel torn down after destroy; stream is over.
				return
			}
			data, err := json.Marshal(evt)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Kind, data)
			flusher.Flush()

			if evt.Kind == bus.KindDestroy {
				return
			}
		}
	}
}

// parseKinds reads the optional ?events=chat.message,chat.destroy filter.
// Unknown names are ignored; an empty filter means all kinds.
func parseKinds(raw string) []bus.Kind {
	if raw == "" {
		return nil
	}
	var kinds []bus.Kind
	for _, name := range strings.Split(raw, ",") {
		switch bus.Kind(strings.TrimSpace(name)) {
		case bus.KindMessage:
			kinds = append(kinds, bus.KindMessage)
		case bus.KindDestroy:
			kinds = append(kinds, bus.KindDestroy)
		}
	}
	return kinds
}
