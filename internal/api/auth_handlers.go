package api

import (
	"errors"
	"net/http"
	"strings"

	"sparkz-live/internal/auth"
	"sparkz-live/internal/storage"
)

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	DJName   string `json:"djName"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup registers a new DJ account. The duplicate-email check runs before
// the provider call so a known-duplicate signup never provisions an orphaned
// live stream. Provision-then-insert is not atomic: an insert failure after
// provisioning leaves a provider resource behind, which is logged for
// reconciliation.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.DJName = strings.TrimSpace(req.DJName)
	if req.Email == "" || req.Password == "" || req.DJName == "" {
		writeError(w, http.StatusBadRequest, errors.New("email, password, and djName are required"))
		return
	}

	if _, err := h.Store.UserByEmail(r.Context(), req.Email); err == nil {
		writeError(w, http.StatusConflict, errors.New("email already registered"))
		return
	} else if !errors.Is(err, storage.ErrNotFound) {
		h.writeStoreError(w, r, err)
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.log().Error("password hash failed", "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("internal error"))
		return
	}

	h.recorder().ObserveProviderAttempt("create_live_stream")
	stream, err := h.Video.CreateLiveStream(r.Context())
	if err != nil {
		h.recorder().ObserveProviderFailure("create_live_stream")
		h.log().Error("live stream provisioning failed", "error", err)
		writeError(w, http.StatusBadGateway, errors.New("stream provisioning failed"))
		return
	}

	user, err := h.Store.CreateUser(r.Context(), storage.CreateUserParams{
		Email:            req.Email,
		PasswordHash:     passwordHash,
		DJName:           req.DJName,
		StreamKey:        stream.StreamKey,
		ProviderStreamID: stream.StreamID,
		PlaybackID:       stream.PlaybackID,
	})
	if err != nil {
		// The provider resource has no owning row now. Log enough to
		// reconcile it by hand.
		h.log().Warn("orphaned provider stream after failed insert",
			"provider_stream_id", stream.StreamID, "email", req.Email, "error", err)
		h.writeStoreError(w, r, err)
		return
	}

	token, err := h.Tokens.Issue(user.ID)
	if err != nil {
		h.log().Error("token issue failed", "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("internal error"))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"token": token,
		"user":  ownerProfile(user),
	})
}

// Login verifies credentials and mints a bearer token. Unknown email and bad
// password produce the same response.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	user, err := h.Store.UserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, errors.New("invalid credentials"))
			return
		}
		h.writeStoreError(w, r, err)
		return
	}
	if !auth.VerifyPassword(req.Password, user.PasswordHash) {
		writeError(w, http.StatusUnauthorized, errors.New("invalid credentials"))
		return
	}

	token, err := h.Tokens.Issue(user.ID)
	if err != nil {
		h.log().Error("token issue failed", "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("internal error"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user": map[string]string{
			"id":     user.ID,
			"email":  user.Email,
			"djName": user.DJName,
		},
	})
}
