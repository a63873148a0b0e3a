package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerifySession(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer("super-secret", 10*time.Minute)

	tok, err := issuer.IssueSession("user-1", "alice", "a@x.com", "user")
	require.NoError(t, err)

	claims, err := issuer.VerifySession(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.Equal(t, "user", claims.Role)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), claims.ExpiresAt.Time, 5*time.Second)
}

func TestVerifySession_Expired(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer("secret", time.Minute)
	issuer.now = func() time.Time { return time.Now().Add(-time.Hour) }

	tok, err := issuer.IssueSession("u1", "bob", "b@x.com", "user")
	require.NoError(t, err)

	issuer.now = time.Now
	_, err = issuer.VerifySession(tok)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifySession_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := NewTokenIssuer("right-secret", time.Hour).IssueSession("u2", "carol", "c@x.com", "user")
	require.NoError(t, err)

	_, err = NewTokenIssuer("wrong-secret", time.Hour).VerifySession(tok)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifySession_Garbage(t *testing.T) {
	t.Parallel()

	_, err := NewTokenIssuer("k", time.Hour).VerifySession("not.a.jwt")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifySession_TamperedPayload(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer("k", time.Hour)
	tok, err := issuer.IssueSession("u3", "dave", "d@x.com", "user")
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	require.Len(t, parts, 3)
	other, err := issuer.IssueSession("u4", "eve", "e@x.com", "admin")
	require.NoError(t, err)
	parts[1] = strings.Split(other, ".")[1]

	_, err = issuer.VerifySession(strings.Join(parts, "."))
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifySession_MissingClaims(t *testing.T) {
	t.Parallel()

	secret := []byte("k")
	raw := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u5",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	tok, err := raw.SignedString(secret)
	require.NoError(t, err)

	_, err = NewTokenIssuer("k", time.Hour).VerifySession(tok)
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestVerifySession_MissingExpiry(t *testing.T) {
	t.Parallel()

	raw := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      "u6",
		"username": "frank",
		"email":    "f@x.com",
		"role":     "user",
	})
	tok, err := raw.SignedString([]byte("k"))
	require.NoError(t, err)

	_, err = NewTokenIssuer("k", time.Hour).VerifySession(tok)
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestVerifySession_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	raw := jwt.NewWithClaims(jwt.SigningMethodHS512, SessionClaims{
		Username: "gina",
		Email:    "g@x.com",
		Role:     "user",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u7",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	tok, err := raw.SignedString([]byte("k"))
	require.NoError(t, err)

	_, err = NewTokenIssuer("k", time.Hour).VerifySession(tok)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestIssueSession_RequiresClaims(t *testing.T) {
	t.Parallel()

	_, err := NewTokenIssuer("k", time.Hour).IssueSession("", "x", "x@x.com", "user")
	assert.Error(t, err)
}
