// Package providerstub hosts a fake video-provider API for tests.
package providerstub

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// Options describes how the fake provider should behave.
type Options struct {
	// StreamKey, StreamID, and PlaybackID are returned from the create
	// endpoint. Defaults are filled in when empty.
	StreamKey  string
	StreamID   string
	PlaybackID string

	// ResetStreamKey is returned from the reset endpoint. Defaults to
	// StreamKey with a "-rotated" suffix.
	ResetStreamKey string

	// FailCreates causes the first N create requests to return HTTP 503.
	// Subsequent attempts succeed.
	FailCreates int

	// FailResets causes the first N reset requests to return HTTP 503.
	FailResets int

	// TokenID and TokenSecret are the basic-auth credentials the stub
	// enforces. If both are empty, the check is skipped.
	TokenID     string
	TokenSecret string
}

// Operation represents a recorded provider interaction.
type Operation struct {
	Kind      string
	StreamID  string
	Attempt   int
	Status    int
	Timestamp time.Time
}

// Provider hosts a single httptest.Server that serves the live-stream
// endpoints.
type Provider struct {
	server *httptest.Server
	opts   Options

	mu         sync.Mutex
	operations []Operation
	createErr  int
	resetErr   int
	streamSeq  int
}

// Start spins up a new provider stub using the provided options.
func Start(opts Options) *Provider {
	p := &Provider{opts: opts}
	p.server = httptest.NewServer(http.HandlerFunc(p.handle))
	return p
}

// Close shuts down the underlying HTTP server.
func (p *Provider) Close() {
	if p.server != nil {
		p.server.Close()
	}
}

// BaseURL returns the HTTP base URL for the provider endpoints.
func (p *Provider) BaseURL() string {
	return p.server.URL
}

// Operations returns a copy of all recorded operations in order.
func (p *Provider) Operations() []Operation {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Operation, len(p.operations))
	copy(out, p.operations)
	return out
}

// CreateCount reports how many create requests reached the stub.
func (p *Provider) CreateCount() int {
	count := 0
	for _, op := range p.Operations() {
		if op.Kind == "live-stream-create" {
			count++
		}
	}
	return count
}

func (p *Provider) handle(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/video/v1/live-streams":
		p.handleCreate(w, r)
	case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/video/v1/live-streams/") && strings.HasSuffix(r.URL.Path, "/reset-stream-key"):
		p.handleReset(w, r)
	default:
		http.Error(w, "unexpected request", http.StatusNotFound)
	}
}

type streamPayload struct {
	ID          string              `json:"id"`
	StreamKey   string              `json:"stream_key"`
	PlaybackIDs []map[string]string `json:"playback_ids"`
}

func (p *Provider) handleCreate(w http.ResponseWriter, r *http.Request) {
	if !p.expectBasic(w, r) {
		return
	}

	p.mu.Lock()
	p.createErr++
	attempt := p.createErr
	p.streamSeq++
	seq := p.streamSeq
	p.mu.Unlock()

	op := Operation{Kind: "live-stream-create", Attempt: attempt, Status: http.StatusCreated, Timestamp: time.Now()}

	if attempt <= p.opts.FailCreates {
		op.Status = http.StatusServiceUnavailable
		p.record(op)
		http.Error(w, "provider unavailable", http.StatusServiceUnavailable)
		return
	}

	p.record(op)

	payload := streamPayload{
		ID:        p.opts.StreamID,
		StreamKey: p.opts.StreamKey,
	}
	if payload.ID == "" {
		payload.ID = fmt.Sprintf("stream-%d", seq)
	}
	if payload.StreamKey == "" {
		payload.StreamKey = fmt.Sprintf("key-%d", seq)
	}
	playbackID := p.opts.PlaybackID
	if playbackID == "" {
		playbackID = fmt.Sprintf("playback-%d", seq)
	}
	payload.PlaybackIDs = []map[string]string{{"id": playbackID, "policy": "public"}}

	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]streamPayload{"data": payload})
}

func (p *Provider) handleReset(w http.ResponseWriter, r *http.Request) {
	if !p.expectBasic(w, r) {
		return
	}

	streamID := strings.TrimPrefix(r.URL.Path, "/video/v1/live-streams/")
	streamID = strings.TrimSuffix(streamID, "/reset-stream-key")

	p.mu.Lock()
	p.resetErr++
	attempt := p.resetErr
	p.mu.Unlock()

	op := Operation{Kind: "stream-key-reset", StreamID: streamID, Attempt: attempt, Status: http.StatusOK, Timestamp: time.Now()}

	if attempt <= p.opts.FailResets {
		op.Status = http.StatusServiceUnavailable
		p.record(op)
		http.Error(w, "provider unavailable", http.StatusServiceUnavailable)
		return
	}

	p.record(op)

	key := p.opts.ResetStreamKey
	if key == "" {
		base := p.opts.StreamKey
		if base == "" {
			base = "key"
		}
		key = base + "-rotated"
	}
	playbackID := p.opts.PlaybackID
	if playbackID == "" {
		playbackID = "playback-1"
	}
	payload := streamPayload{
		ID:          streamID,
		StreamKey:   key,
		PlaybackIDs: []map[string]string{{"id": playbackID, "policy": "public"}},
	}
	_ = json.NewEncoder(w).Encode(map[string]streamPayload{"data": payload})
}

func (p *Provider) record(op Operation) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.operations = append(p.operations, op)
}

func (p *Provider) expectBasic(w http.ResponseWriter, r *http.Request) bool {
	if p.opts.TokenID == "" && p.opts.TokenSecret == "" {
		return true
	}
	user, pass, ok := r.BasicAuth()
	if !ok || user != p.opts.TokenID || pass != p.opts.TokenSecret {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return false
	}
	return true
}
