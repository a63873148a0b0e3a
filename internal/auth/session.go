package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenInvalid   = errors.New("invalid token")
	ErrTokenMalformed = errors.New("token is missing required claims")

	errMissingClaims = errors.New("missing required claims")
)

// SessionClaims is the payload of a session token.
type SessionClaims struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Validate is called by the jwt parser after the registered claims checks.
func (c SessionClaims) Validate() error {
	if c.Subject == "" || c.Username == "" || c.Email == "" || c.Role == "" {
		return errMissingClaims
	}
	return nil
}

// TokenIssuer signs and verifies HS256 session tokens. The secret is fixed at
// construction; rotating it means building a new issuer, which invalidates
// every outstanding session.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL returns how long issued sessions stay valid.
func (t *TokenIssuer) TTL() time.Duration { return t.ttl }

// Secret exposes the signing key for the bearer middleware.
func (t *TokenIssuer) Secret() []byte { return t.secret }

func (t *TokenIssuer) IssueSession(subject, username, email, role string) (string, error) {
	now := t.now()
	claims := SessionClaims{
		Username: username,
		Email:    email,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	if err := claims.Validate(); err != nil {
		return "", fmt.Errorf("failed to issue session: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session: %w", err)
	}
	return signed, nil
}

func (t *TokenIssuer) VerifySession(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, t.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, ClassifyError(err)
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func (t *TokenIssuer) keyFunc(*jwt.Token) (interface{}, error) {
	return t.secret, nil
}

// ClassifyError folds a jwt parse error into ErrTokenExpired,
// ErrTokenMalformed or ErrTokenInvalid.
func ClassifyError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrTokenExpired), errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, ErrTokenMalformed), errors.Is(err, errMissingClaims), errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return ErrTokenMalformed
	default:
		return ErrTokenInvalid
	}
}
