package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExtractToken(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"Bearer abc123", "abc123"},
		{"bearer abc123", "abc123"},
		{"Basic abc123", ""},
		{"Bearer", ""},
		{"  Bearer   spaced  ", "spaced"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		if got := ExtractToken(req); got != tc.want {
			t.Fatalf("ExtractToken(%q) = %q, want %q", tc.header, got, tc.want)
		}
	}
}

func TestAuthenticateRequest(t *testing.T) {
	env := newTestEnv(t)
	user := env.signup(t, "dj@example.com", "Spark")

	token, err := env.handler.Tokens.Issue(user.ID)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	got, err := env.handler.AuthenticateRequest(req)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("authenticated id = %q, want %q", got.ID, user.ID)
	}

	bad := httptest.NewRequest(http.MethodGet, "/", nil)
	bad.Header.Set("Authorization", "Bearer not-a-token")
	if _, err := env.handler.AuthenticateRequest(bad); err == nil {
		t.Fatalf("garbage token should fail")
	}

	ghost, err := env.handler.Tokens.Issue("missing-user")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	orphan := httptest.NewRequest(http.MethodGet, "/", nil)
	orphan.Header.Set("Authorization", "Bearer "+ghost)
	if _, err := env.handler.AuthenticateRequest(orphan); err == nil {
		t.Fatalf("token for missing account should fail")
	}
}

func TestRequireOwner(t *testing.T) {
	env := newTestEnv(t)
	owner := env.signup(t, "dj@example.com", "Spark")

	rr := httptest.NewRecorder()
	if _, ok := env.handler.requireOwner(rr, httptest.NewRequest(http.MethodGet, "/", nil), owner.ID); ok {
		t.Fatalf("anonymous request should not pass")
	}
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous = %d, want 401", rr.Code)
	}

	rr = httptest.NewRecorder()
	req := asUser(httptest.NewRequest(http.MethodGet, "/", nil), owner)
	if _, ok := env.handler.requireOwner(rr, req, "someone-else"); ok {
		t.Fatalf("mismatched owner should not pass")
	}
	if rr.Code != http.StatusForbidden {
		t.Fatalf("mismatch = %d, want 403", rr.Code)
	}

	rr = httptest.NewRecorder()
	if _, ok := env.handler.requireOwner(rr, req, owner.ID); !ok {
		t.Fatalf("owner should pass")
	}
}
