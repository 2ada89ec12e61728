package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestTokenService_IssueAndVerify(t *testing.T) {
	svc := NewTokenService("super-secret", 30*time.Minute)

	tok, exp, err := svc.Issue(7, "admin")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), exp, 2*time.Second)

	claims, err := svc.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Subject)
	assert.Equal(t, uint(7), claims.UserID)
}

func TestTokenService_Expired(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := NewTokenService("secret", time.Minute)
	svc.now = fixedClock(t0)

	tok, _, err := svc.Issue(1, "admin")
	require.NoError(t, err)

	svc.now = fixedClock(t0.Add(59 * time.Second))
	_, err = svc.Verify(tok)
	require.NoError(t, err)

	svc.now = fixedClock(t0.Add(time.Minute))
	_, err = svc.Verify(tok)
	assert.ErrorIs(t, err, ErrTokenExpired)

	svc.now = fixedClock(t0.Add(time.Hour))
	_, err = svc.Verify(tok)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenService_WrongSecret(t *testing.T) {
	tok, _, err := NewTokenService("right-secret", time.Hour).Issue(1, "admin")
	require.NoError(t, err)

	_, err = NewTokenService("rotated-secret", time.Hour).Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestTokenService_Tampered(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)
	tok, _, err := svc.Issue(1, "admin")
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	require.Len(t, parts, 3)
	other, _, err := svc.Issue(2, "intruder")
	require.NoError(t, err)
	forged := strings.Split(other, ".")[0] + "." + strings.Split(other, ".")[1] + "." + parts[2]

	_, err = svc.Verify(forged)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = svc.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestTokenService_RejectsNoneAlgorithm(t *testing.T) {
	claims := Claims{UserID: 1, RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "admin",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenService("secret", time.Hour).Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestTokenService_RequiresExpiry(t *testing.T) {
	claims := Claims{UserID: 1, RegisteredClaims: jwt.RegisteredClaims{Subject: "admin"}}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewTokenService("secret", time.Hour).Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}
