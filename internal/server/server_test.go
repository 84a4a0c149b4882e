package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sparkz-live/internal/api"
	"sparkz-live/internal/auth"
	"sparkz-live/internal/storage"
	"sparkz-live/internal/testsupport/providerstub"
	"sparkz-live/internal/video"
)

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	store := storage.NewMemoryRepository()
	tokens, err := auth.NewTokenManager("server-test-secret")
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}
	stub := providerstub.Start(providerstub.Options{})
	t.Cleanup(stub.Close)
	client, err := video.NewClient(video.Config{BaseURL: stub.BaseURL(), TokenID: "token", TokenSecret: "secret"})
	if err != nil {
		t.Fatalf("video client: %v", err)
	}
	srv, err := New(api.NewHandler(store, tokens, client), cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return srv
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func signupUser(t *testing.T, handler http.Handler, email string) (token, userID string) {
	t.Helper()
	rr := doJSON(t, handler, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email":    email,
		"password": "correct horse",
		"djName":   "DJ " + email,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("signup status = %d, body %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode signup response: %v", err)
	}
	return resp.Token, resp.User.ID
}

func TestPublicRoutesBypassAuth(t *testing.T) {
	srv := newTestServer(t, Config{})
	handler := srv.Handler()

	for _, path := range []string{"/api/health", "/metrics"} {
		rr := doJSON(t, handler, http.MethodGet, path, "", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("GET %s = %d, want 200", path, rr.Code)
		}
	}

	rr := doJSON(t, handler, http.MethodGet, "/api/streams/active", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("anonymous active listing = %d, want 200", rr.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t, Config{})
	handler := srv.Handler()

	rr := doJSON(t, handler, http.MethodPost, "/api/streams", "", map[string]string{"name": "set"})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("stream create without token = %d, want 401", rr.Code)
	}

	token, userID := signupUser(t, handler, "gate@example.com")
	rr = doJSON(t, handler, http.MethodPost, "/api/streams", token, map[string]string{"name": "set", "genre": "house"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("stream create with token = %d, body %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, handler, http.MethodGet, "/api/users/"+userID, "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("anonymous profile read = %d, want 200", rr.Code)
	}
}

func TestInvalidTokenRejectedEvenOnPublicGET(t *testing.T) {
	srv := newTestServer(t, Config{})
	handler := srv.Handler()

	rr := doJSON(t, handler, http.MethodGet, "/api/streams/active", "garbage-token", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token on public GET = %d, want 401", rr.Code)
	}
}

func TestStreamKeyReadRequiresOwner(t *testing.T) {
	srv := newTestServer(t, Config{})
	handler := srv.Handler()

	_, ownerID := signupUser(t, handler, "owner@example.com")
	otherToken, _ := signupUser(t, handler, "other@example.com")

	rr := doJSON(t, handler, http.MethodGet, "/api/users/"+ownerID+"/stream-key", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous stream-key read = %d, want 401", rr.Code)
	}
	rr = doJSON(t, handler, http.MethodGet, "/api/users/"+ownerID+"/stream-key", otherToken, nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("cross-user stream-key read = %d, want 403", rr.Code)
	}
}

func TestLoginThrottleReturnsRetryAfter(t *testing.T) {
	srv := newTestServer(t, Config{RateLimit: RateLimitConfig{LoginLimit: 2, LoginWindow: time.Minute}})
	handler := srv.Handler()

	body := map[string]string{"email": "nobody@example.com", "password": "wrong"}
	for i := 0; i < 2; i++ {
		rr := doJSON(t, handler, http.MethodPost, "/api/auth/login", "", body)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d = %d, want 401", i, rr.Code)
		}
	}
	rr := doJSON(t, handler, http.MethodPost, "/api/auth/login", "", body)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("throttled attempt = %d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatalf("throttled response missing Retry-After header")
	}
}

func TestGlobalRateLimit(t *testing.T) {
	srv := newTestServer(t, Config{RateLimit: RateLimitConfig{GlobalRPS: 0.001, GlobalBurst: 1}})
	handler := srv.Handler()

	first := doJSON(t, handler, http.MethodGet, "/api/health", "", nil)
	if first.Code != http.StatusOK {
		t.Fatalf("first request = %d, want 200", first.Code)
	}
	second := doJSON(t, handler, http.MethodGet, "/api/health", "", nil)
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request = %d, want 429", second.Code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv := newTestServer(t, Config{})
	handler := srv.Handler()

	rr := doJSON(t, handler, http.MethodGet, "/api/health", "", nil)
	if rr.Header().Get("X-Request-Id") == "" {
		t.Fatalf("generated request id missing from response")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-Id", "upstream-42")
	echo := httptest.NewRecorder()
	handler.ServeHTTP(echo, req)
	if got := echo.Header().Get("X-Request-Id"); got != "upstream-42" {
		t.Fatalf("request id = %q, want upstream-42", got)
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv := newTestServer(t, Config{})
	rr := doJSON(t, srv.Handler(), http.MethodGet, "/api/health", "", nil)
	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "no-referrer",
	} {
		if got := rr.Header().Get(header); got != want {
			t.Fatalf("%s = %q, want %q", header, got, want)
		}
	}
}

func TestExtractClientIP(t *testing.T) {
	cases := []struct {
		name    string
		forward string
		realIP  string
		remote  string
		want    string
	}{
		{name: "forwarded list", forward: "203.0.113.9, 10.0.0.1", remote: "10.0.0.2:1234", want: "203.0.113.9"},
		{name: "real ip", realIP: "198.51.100.7", remote: "10.0.0.2:1234", want: "198.51.100.7"},
		{name: "remote addr", remote: "192.0.2.4:5678", want: "192.0.2.4"},
		{name: "remote without port", remote: "192.0.2.4", want: "192.0.2.4"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tc.remote
		if tc.forward != "" {
			req.Header.Set("X-Forwarded-For", tc.forward)
		}
		if tc.realIP != "" {
			req.Header.Set("X-Real-IP", tc.realIP)
		}
		if got := extractClientIP(req); got != tc.want {
			t.Fatalf("%s: extractClientIP = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestMethodNotAllowedOnAuthRoutes(t *testing.T) {
	srv := newTestServer(t, Config{})
	rr := doJSON(t, srv.Handler(), http.MethodGet, "/api/auth/login", "", nil)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET login = %d, want 405", rr.Code)
	}
	if rr.Header().Get("Allow") != http.MethodPost {
		t.Fatalf("Allow header = %q, want POST", rr.Header().Get("Allow"))
	}
}

func TestLoginThrottleKeysByClientIP(t *testing.T) {
	srv := newTestServer(t, Config{RateLimit: RateLimitConfig{LoginLimit: 1, LoginWindow: time.Minute}})
	handler := srv.Handler()

	send := func(ip string) int {
		raw, _ := json.Marshal(map[string]string{"email": "nobody@example.com", "password": "wrong"})
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", ip)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	if code := send("203.0.113.1"); code != http.StatusUnauthorized {
		t.Fatalf("first attempt = %d, want 401", code)
	}
	if code := send("203.0.113.1"); code != http.StatusTooManyRequests {
		t.Fatalf("second attempt same ip = %d, want 429", code)
	}
	if code := send("203.0.113.2"); code != http.StatusUnauthorized {
		t.Fatalf("fresh ip = %d, want 401", code)
	}
}
