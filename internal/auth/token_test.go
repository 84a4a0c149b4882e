package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	manager, err := NewTokenManager("unit-test-secret")
	require.NoError(t, err)

	token, err := manager.Issue("user-123")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, ok := manager.Verify(token)
	require.True(t, ok)
	assert.Equal(t, "user-123", userID)
}

func TestTokenExpiry(t *testing.T) {
	current := time.Now()
	manager, err := NewTokenManager("unit-test-secret",
		WithTokenTTL(time.Hour),
		WithClock(func() time.Time { return current }),
	)
	require.NoError(t, err)

	token, err := manager.Issue("user-123")
	require.NoError(t, err)

	_, ok := manager.Verify(token)
	require.True(t, ok, "token should be valid inside the window")

	current = current.Add(2 * time.Hour)
	_, ok = manager.Verify(token)
	assert.False(t, ok, "token should be invalid after expiry")
}

func TestTokenDefaultLifetimeIsSevenDays(t *testing.T) {
	current := time.Now()
	manager, err := NewTokenManager("unit-test-secret",
		WithClock(func() time.Time { return current }),
	)
	require.NoError(t, err)

	token, err := manager.Issue("user-123")
	require.NoError(t, err)

	current = current.Add(7*24*time.Hour - time.Minute)
	_, ok := manager.Verify(token)
	assert.True(t, ok, "token should survive just under seven days")

	current = current.Add(2 * time.Minute)
	_, ok = manager.Verify(token)
	assert.False(t, ok, "token should expire after seven days")
}

func TestTokenTamperedSignature(t *testing.T) {
	manager, err := NewTokenManager("unit-test-secret")
	require.NoError(t, err)

	token, err := manager.Issue("user-123")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))
	_, ok := manager.Verify(tampered)
	assert.False(t, ok)
}

func TestTokenWrongSecret(t *testing.T) {
	issuer, err := NewTokenManager("secret-one")
	require.NoError(t, err)
	verifier, err := NewTokenManager("secret-two")
	require.NoError(t, err)

	token, err := issuer.Issue("user-123")
	require.NoError(t, err)

	_, ok := verifier.Verify(token)
	assert.False(t, ok)
}

func TestTokenGarbageInput(t *testing.T) {
	manager, err := NewTokenManager("unit-test-secret")
	require.NoError(t, err)

	for _, input := range []string{"", "garbage", "a.b.c", "eyJhbGciOiJub25lIn0..", strings.Repeat("x", 4096)} {
		_, ok := manager.Verify(input)
		assert.False(t, ok, "input %q should be rejected", input)
	}
}

func TestNewTokenManagerRequiresSecret(t *testing.T) {
	_, err := NewTokenManager("")
	require.Error(t, err)
}
