// Package api translates HTTP requests into store queries and provider calls.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"sparkz-live/internal/auth"
	"sparkz-live/internal/observability/metrics"
	"sparkz-live/internal/storage"
	"sparkz-live/internal/video"
)

// StreamProvisioner is the slice of the video provider the handlers need.
type StreamProvisioner interface {
	CreateLiveStream(ctx context.Context) (video.LiveStream, error)
	ResetStreamKey(ctx context.Context, streamID string) (video.LiveStream, error)
}

// Handler owns the route implementations. Logger and Metrics are optional;
// nil values fall back to the process defaults.
type Handler struct {
	Store   storage.Repository
	Tokens  *auth.TokenManager
	Video   StreamProvisioner
	Logger  *slog.Logger
	Metrics *metrics.Recorder
}

// NewHandler wires the handler's dependencies.
func NewHandler(store storage.Repository, tokens *auth.TokenManager, provider StreamProvisioner) *Handler {
	return &Handler{Store: store, Tokens: tokens, Video: provider}
}

func (h *Handler) log() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *Handler) recorder() *metrics.Recorder {
	if h.Metrics != nil {
		return h.Metrics
	}
	return metrics.Default()
}

// writeStoreError maps repository failures onto the closed response set.
// Internal details are logged, never returned.
func (h *Handler) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, errors.New("not found"))
	case errors.Is(err, storage.ErrEmailTaken):
		writeError(w, http.StatusConflict, errors.New("email already registered"))
	default:
		h.log().Error("store operation failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}

// Health reports liveness plus store reachability.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	store := "ok"
	if err := h.Store.Ping(r.Context()); err != nil {
		h.log().Warn("store ping failed", "error", err)
		store = "unreachable"
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
		"store":  store,
	})
}
