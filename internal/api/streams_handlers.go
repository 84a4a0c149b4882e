package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"sparkz-live/internal/models"
	"sparkz-live/internal/storage"
)

type streamPayload struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Genre     string    `json:"genre"`
	IsLive    bool      `json:"isLive"`
	CreatedAt time.Time `json:"createdAt"`
}

func toStreamPayload(session models.StreamSession) streamPayload {
	return streamPayload{
		ID:        session.ID,
		UserID:    session.UserID,
		Name:      session.Name,
		Genre:     session.Genre,
		IsLive:    session.IsLive,
		CreatedAt: session.CreatedAt,
	}
}

// Streams handles POST /api/streams: a new live session for the caller.
func (h *Handler) Streams(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	caller, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req struct {
		Name  string `json:"name"`
		Genre string `json:"genre"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, errors.New("name is required"))
		return
	}

	session, err := h.Store.CreateStream(r.Context(), storage.CreateStreamParams{
		UserID: caller.ID,
		Name:   req.Name,
		Genre:  req.Genre,
	})
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	h.recorder().StreamStarted()
	writeJSON(w, http.StatusCreated, toStreamPayload(session))
}

// StreamRoutes dispatches everything under /api/streams/.
func (h *Handler) StreamRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/streams/"), "/")
	parts := strings.Split(rest, "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusNotFound, errors.New("not found"))
		return
	}

	if len(parts) == 1 && parts[0] == "active" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		h.listActiveStreams(w, r)
		return
	}

	if len(parts) == 2 {
		streamID := parts[0]
		switch parts[1] {
		case "end":
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			h.endStream(w, r, streamID)
			return
		case "chat":
			switch r.Method {
			case http.MethodGet:
				h.listChat(w, r, streamID)
			case http.MethodPost:
				h.postChat(w, r, streamID)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
			return
		}
	}

	writeError(w, http.StatusNotFound, errors.New("not found"))
}

func (h *Handler) listActiveStreams(w http.ResponseWriter, r *http.Request) {
	streams, err := h.Store.ActiveStreams(r.Context())
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	payload := make([]map[string]interface{}, 0, len(streams))
	for _, entry := range streams {
		payload = append(payload, map[string]interface{}{
			"id":         entry.Session.ID,
			"userId":     entry.Session.UserID,
			"name":       entry.Session.Name,
			"genre":      entry.Session.Genre,
			"isLive":     entry.Session.IsLive,
			"createdAt":  entry.Session.CreatedAt,
			"djName":     entry.DJName,
			"profilePic": entry.ProfilePic,
			"playbackId": entry.PlaybackID,
		})
	}
	writeJSON(w, http.StatusOK, payload)
}

func (h *Handler) endStream(w http.ResponseWriter, r *http.Request, streamID string) {
	caller, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	session, err := h.Store.StreamByID(r.Context(), streamID)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	if session.UserID != caller.ID {
		writeError(w, http.StatusForbidden, errors.New("forbidden"))
		return
	}
	if err := h.Store.EndStream(r.Context(), streamID); err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	if session.IsLive {
		h.recorder().StreamStopped()
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) listChat(w http.ResponseWriter, r *http.Request, streamID string) {
	entries, err := h.Store.ChatMessages(r.Context(), streamID)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	payload := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		payload = append(payload, map[string]interface{}{
			"id":         entry.Message.ID,
			"streamId":   entry.Message.StreamID,
			"userId":     entry.Message.UserID,
			"message":    entry.Message.Message,
			"createdAt":  entry.Message.CreatedAt,
			"djName":     entry.DJName,
			"profilePic": entry.ProfilePic,
		})
	}
	writeJSON(w, http.StatusOK, payload)
}

// postChat appends a message as the caller. The author id comes from the
// token, never from the body.
func (h *Handler) postChat(w http.ResponseWriter, r *http.Request, streamID string) {
	caller, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	if _, err := h.Store.StreamByID(r.Context(), streamID); err != nil {
		h.writeStoreError(w, r, err)
		return
	}

	var req struct {
		Message string `json:"message"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, errors.New("message is required"))
		return
	}

	message, err := h.Store.CreateChatMessage(r.Context(), storage.CreateChatMessageParams{
		StreamID: streamID,
		UserID:   caller.ID,
		Message:  req.Message,
	})
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	h.recorder().ObserveChatEvent("message")
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":        message.ID,
		"streamId":  message.StreamID,
		"userId":    message.UserID,
		"message":   message.Message,
		"createdAt": message.CreatedAt,
	})
}
