package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"sparkz-live/internal/models"
)

type contextKey string

const userContextKey contextKey = "authenticatedUser"

// ContextWithUser stores the authenticated user in the provided context.
func ContextWithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext retrieves the authenticated user from context if present.
func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userContextKey).(models.User)
	return user, ok
}

// ExtractToken pulls the bearer token from the Authorization header.
func ExtractToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// AuthenticateRequest validates the bearer token and loads the account. Every
// failure collapses into the same error so clients cannot distinguish why a
// token was rejected.
func (h *Handler) AuthenticateRequest(r *http.Request) (models.User, error) {
	token := ExtractToken(r)
	if token == "" {
		return models.User{}, errors.New("authentication required")
	}
	userID, ok := h.Tokens.Verify(token)
	if !ok {
		return models.User{}, errors.New("authentication required")
	}
	user, err := h.Store.UserByID(r.Context(), userID)
	if err != nil {
		return models.User{}, errors.New("authentication required")
	}
	return user, nil
}

func (h *Handler) requireUser(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, errors.New("authentication required"))
		return models.User{}, false
	}
	return user, true
}

// requireOwner gates mutations on a user-scoped resource: the authenticated
// account must be the target user.
func (h *Handler) requireOwner(w http.ResponseWriter, r *http.Request, targetUserID string) (models.User, bool) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return models.User{}, false
	}
	if user.ID != targetUserID {
		writeError(w, http.StatusForbidden, errors.New("forbidden"))
		return models.User{}, false
	}
	return user, true
}
