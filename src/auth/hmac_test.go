package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "plate-feed-test-secret"

func mintToken(t *testing.T, claims Claims) string {
	t.Helper()
	token, err := Sign(testSecret, claims)
	require.NoError(t, err)
	return token
}

func TestVerifyValidToken(t *testing.T) {
	v, err := NewHMACVerifier(testSecret, 0)
	require.NoError(t, err)

	token := mintToken(t, Claims{
		Subject:   "user-42",
		Roles:     []string{"customer"},
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
		IssuedAt:  time.Now().Unix(),
	})

	identity, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", identity.UserID)
	assert.Equal(t, []string{"customer"}, identity.Roles)
}

func TestVerifyExpiredToken(t *testing.T) {
	v, err := NewHMACVerifier(testSecret, 0)
	require.NoError(t, err)

	token := mintToken(t, Claims{
		Subject:   "user-42",
		ExpiresAt: time.Now().Add(-time.Minute).Unix(),
	})

	_, err = v.Verify(token)
	assert.True(t, errors.Is(err, ErrExpiredToken))
}

func TestVerifyExpiredWithinLeeway(t *testing.T) {
	v, err := NewHMACVerifier(testSecret, 2*time.Minute)
	require.NoError(t, err)

	token := mintToken(t, Claims{
		Subject:   "user-42",
		ExpiresAt: time.Now().Add(-time.Minute).Unix(),
	})

	_, err = v.Verify(token)
	assert.NoError(t, err)
}

func TestVerifyWrongSecret(t *testing.T) {
	v, err := NewHMACVerifier("a-different-secret", 0)
	require.NoError(t, err)

	token := mintToken(t, Claims{
		Subject:   "user-42",
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	})

	_, err = v.Verify(token)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestVerifyMalformedTokens(t *testing.T) {
	v, err := NewHMACVerifier(testSecret, 0)
	require.NoError(t, err)

	for _, token := range []string{"", "not-a-token", "a.b", "a.b.c.d", "!!!.???.***"} {
		_, err := v.Verify(token)
		assert.Error(t, err, "token %q should be rejected", token)
	}
}

func TestVerifyMissingSubject(t *testing.T) {
	v, err := NewHMACVerifier(testSecret, 0)
	require.NoError(t, err)

	token := mintToken(t, Claims{ExpiresAt: time.Now().Add(time.Hour).Unix()})
	_, err = v.Verify(token)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestVerifyWithClock(t *testing.T) {
	v, err := NewHMACVerifier(testSecret, 0)
	require.NoError(t, err)

	expiry := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	token := mintToken(t, Claims{Subject: "user-1", ExpiresAt: expiry.Unix()})

	v.WithClock(func() time.Time { return expiry.Add(-time.Hour) })
	_, err = v.Verify(token)
	assert.NoError(t, err)

	v.WithClock(func() time.Time { return expiry.Add(time.Hour) })
	_, err = v.Verify(token)
	assert.True(t, errors.Is(err, ErrExpiredToken))
}

func TestNewVerifierEmptySecret(t *testing.T) {
	_, err := NewHMACVerifier("   ", 0)
	assert.Error(t, err)
}
