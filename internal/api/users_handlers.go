package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"sparkz-live/internal/models"
	"sparkz-live/internal/storage"
)

type userPayload struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	DJName           string    `json:"djName"`
	Bio              string    `json:"bio"`
	ProfilePic       string    `json:"profilePic"`
	PlaybackID       string    `json:"playbackId"`
	CreatedAt        time.Time `json:"createdAt"`
	StreamKey        string    `json:"streamKey,omitempty"`
	ProviderStreamID string    `json:"providerStreamId,omitempty"`
}

// publicProfile redacts the ingest credentials. Playback id stays public
// because viewers need it to watch.
func publicProfile(user models.User) userPayload {
	return userPayload{
		ID:         user.ID,
		Email:      user.Email,
		DJName:     user.DJName,
		Bio:        user.Bio,
		ProfilePic: user.ProfilePic,
		PlaybackID: user.PlaybackID,
		CreatedAt:  user.CreatedAt,
	}
}

func ownerProfile(user models.User) userPayload {
	payload := publicProfile(user)
	payload.StreamKey = user.StreamKey
	payload.ProviderStreamID = user.ProviderStreamID
	return payload
}

// UserRoutes dispatches everything under /api/users/.
func (h *Handler) UserRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/users/"), "/")
	parts := strings.Split(rest, "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusNotFound, errors.New("not found"))
		return
	}
	userID := parts[0]

	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			h.getUser(w, r, userID)
		case http.MethodPut:
			h.updateProfile(w, r, userID)
		default:
			methodNotAllowed(w, http.MethodGet, http.MethodPut)
		}
	case len(parts) == 2:
		switch parts[1] {
		case "profile-pic":
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			h.uploadProfilePic(w, r, userID)
		case "stream-key":
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			h.getStreamKey(w, r, userID)
		case "regenerate-key":
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			h.regenerateStreamKey(w, r, userID)
		case "follow":
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			h.followUser(w, r, userID)
		case "followers":
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			h.listFollowers(w, r, userID)
		case "schedule":
			switch r.Method {
			case http.MethodGet:
				h.listSchedule(w, r, userID)
			case http.MethodPost:
				h.createSchedule(w, r, userID)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		default:
			writeError(w, http.StatusNotFound, errors.New("not found"))
		}
	default:
		writeError(w, http.StatusNotFound, errors.New("not found"))
	}
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request, userID string) {
	user, err := h.Store.UserByID(r.Context(), userID)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	if caller, ok := UserFromContext(r.Context()); ok && caller.ID == user.ID {
		writeJSON(w, http.StatusOK, ownerProfile(user))
		return
	}
	writeJSON(w, http.StatusOK, publicProfile(user))
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request, userID string) {
	if _, ok := h.requireOwner(w, r, userID); !ok {
		return
	}

	var req struct {
		DJName string `json:"djName"`
		Bio    string `json:"bio"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	req.DJName = strings.TrimSpace(req.DJName)
	if req.DJName == "" {
		writeError(w, http.StatusBadRequest, errors.New("djName is required"))
		return
	}

	user, err := h.Store.UpdateProfile(r.Context(), storage.UpdateProfileParams{
		UserID: userID,
		DJName: req.DJName,
		Bio:    req.Bio,
	})
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ownerProfile(user))
}

func (h *Handler) getStreamKey(w http.ResponseWriter, r *http.Request, userID string) {
	user, ok := h.requireOwner(w, r, userID)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"streamKey": user.StreamKey})
}

func (h *Handler) regenerateStreamKey(w http.ResponseWriter, r *http.Request, userID string) {
	user, ok := h.requireOwner(w, r, userID)
	if !ok {
		return
	}
	if user.ProviderStreamID == "" {
		h.log().Error("account has no provisioned stream", "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, errors.New("internal error"))
		return
	}

	h.recorder().ObserveProviderAttempt("reset_stream_key")
	stream, err := h.Video.ResetStreamKey(r.Context(), user.ProviderStreamID)
	if err != nil {
		h.recorder().ObserveProviderFailure("reset_stream_key")
		h.log().Error("stream key reset failed", "user_id", user.ID, "error", err)
		writeError(w, http.StatusBadGateway, errors.New("stream key reset failed"))
		return
	}
	if err := h.Store.UpdateStreamKey(r.Context(), user.ID, stream.StreamKey); err != nil {
		h.log().Warn("provider key rotated but not persisted",
			"user_id", user.ID, "provider_stream_id", user.ProviderStreamID, "error", err)
		h.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"streamKey": stream.StreamKey})
}

// followUser creates the edge with the caller as follower. The follower id
// comes from the token, never from the body.
func (h *Handler) followUser(w http.ResponseWriter, r *http.Request, userID string) {
	caller, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	if _, err := h.Store.UserByID(r.Context(), userID); err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	if err := h.Store.Follow(r.Context(), caller.ID, userID); err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) listFollowers(w http.ResponseWriter, r *http.Request, userID string) {
	followers, err := h.Store.Followers(r.Context(), userID)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	payload := make([]map[string]string, 0, len(followers))
	for _, follower := range followers {
		payload = append(payload, map[string]string{
			"id":         follower.ID,
			"djName":     follower.DJName,
			"profilePic": follower.ProfilePic,
		})
	}
	writeJSON(w, http.StatusOK, payload)
}

type schedulePayload struct {
	ID       string `json:"id"`
	UserID   string `json:"userId"`
	Day      string `json:"day"`
	Time     string `json:"time"`
	ShowName string `json:"showName"`
}

func toSchedulePayload(entry models.ScheduleEntry) schedulePayload {
	return schedulePayload{
		ID:       entry.ID,
		UserID:   entry.UserID,
		Day:      entry.Day,
		Time:     entry.Time,
		ShowName: entry.ShowName,
	}
}

func (h *Handler) listSchedule(w http.ResponseWriter, r *http.Request, userID string) {
	entries, err := h.Store.Schedules(r.Context(), userID)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	payload := make([]schedulePayload, 0, len(entries))
	for _, entry := range entries {
		payload = append(payload, toSchedulePayload(entry))
	}
	writeJSON(w, http.StatusOK, payload)
}

func (h *Handler) createSchedule(w http.ResponseWriter, r *http.Request, userID string) {
	if _, ok := h.requireOwner(w, r, userID); !ok {
		return
	}

	var req struct {
		Day      string `json:"day"`
		Time     string `json:"time"`
		ShowName string `json:"showName"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	if strings.TrimSpace(req.Day) == "" || strings.TrimSpace(req.Time) == "" || strings.TrimSpace(req.ShowName) == "" {
		writeError(w, http.StatusBadRequest, errors.New("day, time, and showName are required"))
		return
	}

	entry, err := h.Store.CreateSchedule(r.Context(), storage.CreateScheduleParams{
		UserID:   userID,
		Day:      req.Day,
		Time:     req.Time,
		ShowName: req.ShowName,
	})
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSchedulePayload(entry))
}

// ScheduleRoutes dispatches /api/schedules/{id}.
func (h *Handler) ScheduleRoutes(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/schedules/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, errors.New("not found"))
		return
	}
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, http.MethodDelete)
		return
	}

	caller, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	entry, err := h.Store.ScheduleByID(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	if entry.UserID != caller.ID {
		writeError(w, http.StatusForbidden, errors.New("forbidden"))
		return
	}
	if err := h.Store.DeleteSchedule(r.Context(), id); err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
