package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIssueVerifyRoundTrip(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)
	now := time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC)

	signed, err := tokens.Issue("user-1", now)
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	sub, err := tokens.Verify(signed)
	require.NoError(t, err)
	require.Equal(t, "user-1", sub)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer := NewTokens("secret-a", time.Hour)
	verifier := NewTokens("secret-b", time.Hour)

	signed, err := issuer.Issue("user-1", time.Now())
	require.NoError(t, err)

	_, err = verifier.Verify(signed)
	require.Error(t, err)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	tokens := NewTokens("test-secret", -time.Minute)
	now := time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC)

	signed, err := tokens.Issue("user-1", now)
	require.NoError(t, err)

	_, err = tokens.Verify(signed)
	require.Error(t, err)
}

func TestVerifyRejectsGarbageToken(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)
	_, err := tokens.Verify("not-a-jwt")
	require.Error(t, err)
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	require.True(t, VerifyPassword(hash, "correct horse battery staple"))
	require.False(t, VerifyPassword(hash, "wrong password"))
}
