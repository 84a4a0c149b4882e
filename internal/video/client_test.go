package video

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sparkz-live/internal/testsupport/providerstub"
)

func newTestClient(t *testing.T, stub *providerstub.Provider) *Client {
	t.Helper()
	client, err := NewClient(Config{
		BaseURL:     stub.BaseURL(),
		TokenID:     "token-id",
		TokenSecret: "token-secret",
	})
	require.NoError(t, err)
	return client
}

func TestNewClientValidatesConfig(t *testing.T) {
	_, err := NewClient(Config{TokenID: "id", TokenSecret: "secret"})
	require.Error(t, err)

	_, err = NewClient(Config{BaseURL: "http://provider"})
	require.Error(t, err)

	_, err = NewClient(Config{BaseURL: "http://provider", TokenID: "id"})
	require.Error(t, err)
}

func TestCreateLiveStream(t *testing.T) {
	stub := providerstub.Start(providerstub.Options{
		StreamID:    "ls-abc",
		StreamKey:   "sk-secret",
		PlaybackID:  "pb-public",
		TokenID:     "token-id",
		TokenSecret: "token-secret",
	})
	defer stub.Close()

	client := newTestClient(t, stub)
	stream, err := client.CreateLiveStream(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ls-abc", stream.StreamID)
	assert.Equal(t, "sk-secret", stream.StreamKey)
	assert.Equal(t, "pb-public", stream.PlaybackID)

	ops := stub.Operations()
	require.Len(t, ops, 1)
	assert.Equal(t, "live-stream-create", ops[0].Kind)
}

func TestCreateLiveStreamRejectsBadCredentials(t *testing.T) {
	stub := providerstub.Start(providerstub.Options{
		TokenID:     "token-id",
		TokenSecret: "token-secret",
	})
	defer stub.Close()

	client, err := NewClient(Config{
		BaseURL:     stub.BaseURL(),
		TokenID:     "token-id",
		TokenSecret: "wrong",
	})
	require.NoError(t, err)

	_, err = client.CreateLiveStream(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProviderFailure))
}

func TestCreateLiveStreamProviderOutage(t *testing.T) {
	stub := providerstub.Start(providerstub.Options{FailCreates: 1})
	defer stub.Close()

	client := newTestClient(t, stub)
	_, err := client.CreateLiveStream(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProviderFailure))

	stream, err := client.CreateLiveStream(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, stream.StreamKey)
}

func TestResetStreamKey(t *testing.T) {
	stub := providerstub.Start(providerstub.Options{
		StreamKey:      "sk-old",
		ResetStreamKey: "sk-new",
	})
	defer stub.Close()

	client := newTestClient(t, stub)
	stream, err := client.ResetStreamKey(context.Background(), "ls-abc")
	require.NoError(t, err)
	assert.Equal(t, "ls-abc", stream.StreamID)
	assert.Equal(t, "sk-new", stream.StreamKey)

	ops := stub.Operations()
	require.Len(t, ops, 1)
	assert.Equal(t, "stream-key-reset", ops[0].Kind)
	assert.Equal(t, "ls-abc", ops[0].StreamID)
}

func TestResetStreamKeyRequiresID(t *testing.T) {
	stub := providerstub.Start(providerstub.Options{})
	defer stub.Close()

	client := newTestClient(t, stub)
	_, err := client.ResetStreamKey(context.Background(), "")
	require.Error(t, err)
}

func TestResetStreamKeyProviderOutage(t *testing.T) {
	stub := providerstub.Start(providerstub.Options{FailResets: 1})
	defer stub.Close()

	client := newTestClient(t, stub)
	_, err := client.ResetStreamKey(context.Background(), "ls-abc")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProviderFailure))
}
