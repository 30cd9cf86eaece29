package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	m, err := NewManager("s3cret", time.Hour)
	require.NoError(t, err)

	token, err := m.Issue(42)
	require.NoError(t, err)

	id, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestNewManagerRequiresSecret(t *testing.T) {
	_, err := NewManager("", time.Hour)
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestIssueRejectsInvalidUser(t *testing.T) {
	m, err := NewManager("s3cret", time.Hour)
	require.NoError(t, err)
	_, err = m.Issue(0)
	assert.Error(t, err)
}

func TestVerifyRejects(t *testing.T) {
	m, err := NewManager("s3cret", time.Hour)
	require.NoError(t, err)

	other, err := NewManager("different", time.Hour)
	require.NoError(t, err)
	foreign, err := other.Issue(1)
	require.NoError(t, err)

	expiring, err := NewManager("s3cret", time.Minute)
	require.NoError(t, err)
	expiring.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := expiring.Issue(1)
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 1}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noUser, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":      "not-a-token",
		"wrong secret": foreign,
		"expired":      expired,
		"alg none":     none,
		"missing id":   noUser,
		"empty":        "",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := m.Verify(token)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidToken))
		})
	}
}

func TestZeroTTLHasNoExpiry(t *testing.T) {
	m, err := NewManager("s3cret", 0)
	require.NoError(t, err)
	m.now = func() time.Time { return time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC) }

	token, err := m.Issue(7)
	require.NoError(t, err)

	m.now = time.Now
	id, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
}
