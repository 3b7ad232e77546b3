package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSigner(t *testing.T, ttl time.Duration) *Signer {
	t.Helper()
	signer, err := NewSigner([]byte("test-secret"), "hammerfall-test", ttl)
	require.NoError(t, err)
	return signer
}

func TestSigner_RoundTrip(t *testing.T) {
	signer := newTestSigner(t, time.Hour)
	userID := uuid.New()

	token, err := signer.GenerateToken(userID, "viewer42")
	require.NoError(t, err)

	claims, err := signer.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "viewer42", claims.Username)

	parsed, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, userID, parsed)
}

func TestSigner_RejectsExpiredToken(t *testing.T) {
	signer := newTestSigner(t, -time.Minute)

	token, err := signer.GenerateToken(uuid.New(), "viewer42")
	require.NoError(t, err)

	_, err = signer.ValidateToken(token)
	assert.Error(t, err)
}

func TestSigner_RejectsForeignSecret(t *testing.T) {
	signer := newTestSigner(t, time.Hour)
	other, err := NewSigner([]byte("different-secret"), "hammerfall-test", time.Hour)
	require.NoError(t, err)

	token, err := other.GenerateToken(uuid.New(), "viewer42")
	require.NoError(t, err)

	_, err = signer.ValidateToken(token)
	assert.Error(t, err)
}

func TestSigner_RejectsWrongIssuer(t *testing.T) {
	signer := newTestSigner(t, time.Hour)
	other, err := NewSigner([]byte("test-secret"), "someone-else", time.Hour)
	require.NoError(t, err)

	token, err := other.GenerateToken(uuid.New(), "viewer42")
	require.NoError(t, err)

	_, err = signer.ValidateToken(token)
	assert.Error(t, err)
}

func TestNewSigner_RequiresSecret(t *testing.T) {
	_, err := NewSigner(nil, "hammerfall-test", time.Hour)
	assert.Error(t, err)
}
