package server

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"

	"sparkz-live/internal/observability/logging"
)

const requestIDHeader = "X-Request-Id"

// requestIDMiddleware assigns every request an identifier, honouring one
// supplied by an upstream proxy, and echoes it on the response so clients can
// quote it in support reports.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = newRequestID()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := logging.ContextWithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func newRequestID() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(buf[:])
}
