// Package video talks to the external live-video provider that provisions
// ingest endpoints, stream keys, and playback IDs.
package video

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrProviderFailure wraps every non-2xx or transport-level failure from the
// provider so callers can map the whole class to one upstream error response.
var ErrProviderFailure = errors.New("video provider request failed")

// Config carries the provider credentials and endpoint.
type Config struct {
	// BaseURL is the provider API root, e.g. https://api.mux.com.
	BaseURL string
	// TokenID and TokenSecret form the basic-auth pair for every request.
	TokenID     string
	TokenSecret string
	// HTTPClient overrides the transport. Tests point it at a stub server.
	HTTPClient *http.Client
}

// Client issues authenticated requests against the provider API.
type Client struct {
	baseURL    string
	tokenID    string
	secret     string
	httpClient *http.Client
}

// LiveStream is the provider-side state for a broadcast endpoint.
type LiveStream struct {
	// StreamID identifies the live stream at the provider.
	StreamID string
	// StreamKey is the secret the DJ plugs into their encoder.
	StreamKey string
	// PlaybackID addresses the public playback URL for the stream.
	PlaybackID string
}

type liveStreamPayload struct {
	ID          string `json:"id"`
	StreamKey   string `json:"stream_key"`
	PlaybackIDs []struct {
		ID string `json:"id"`
	} `json:"playback_ids"`
}

type liveStreamEnvelope struct {
	Data liveStreamPayload `json:"data"`
}

// NewClient validates the provider configuration and returns a ready client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("provider base URL is required")
	}
	if cfg.TokenID == "" || cfg.TokenSecret == "" {
		return nil, fmt.Errorf("provider credentials are required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		tokenID:    cfg.TokenID,
		secret:     cfg.TokenSecret,
		httpClient: httpClient,
	}, nil
}

// CreateLiveStream provisions a new public low-latency live stream and
// returns its identifiers. Called once per signup.
func (c *Client) CreateLiveStream(ctx context.Context) (LiveStream, error) {
	payload := map[string]interface{}{
		"playback_policy": []string{"public"},
		"new_asset_settings": map[string]interface{}{
			"playback_policy": []string{"public"},
		},
		"latency_mode": "low",
	}
	var envelope liveStreamEnvelope
	if err := c.do(ctx, http.MethodPost, "/video/v1/live-streams", payload, &envelope); err != nil {
		return LiveStream{}, err
	}
	stream, err := fromPayload(envelope.Data)
	if err != nil {
		return LiveStream{}, err
	}
	return stream, nil
}

// ResetStreamKey rotates the stream key for an existing live stream. The old
// key stops working at the provider immediately.
func (c *Client) ResetStreamKey(ctx context.Context, streamID string) (LiveStream, error) {
	if streamID == "" {
		return LiveStream{}, fmt.Errorf("streamID is required")
	}
	var envelope liveStreamEnvelope
	path := fmt.Sprintf("/video/v1/live-streams/%s/reset-stream-key", streamID)
	if err := c.do(ctx, http.MethodPost, path, nil, &envelope); err != nil {
		return LiveStream{}, err
	}
	stream, err := fromPayload(envelope.Data)
	if err != nil {
		return LiveStream{}, err
	}
	return stream, nil
}

func fromPayload(payload liveStreamPayload) (LiveStream, error) {
	if payload.ID == "" || payload.StreamKey == "" {
		return LiveStream{}, fmt.Errorf("%w: incomplete live stream payload", ErrProviderFailure)
	}
	stream := LiveStream{StreamID: payload.ID, StreamKey: payload.StreamKey}
	if len(payload.PlaybackIDs) > 0 {
		stream.PlaybackID = payload.PlaybackIDs[0].ID
	}
	return stream, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload interface{}, dest interface{}) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderFailure, err)
	}
	req.SetBasicAuth(c.tokenID, c.secret)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderFailure, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: %s %s: %s: %s", ErrProviderFailure, method, path, resp.Status, strings.TrimSpace(string(data)))
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrProviderFailure, err)
	}
	return nil
}
