package middleware

import (
	"errors"

	"github.com/ahmetcoskunkizilkaya/account-backend/internal/auth"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/dto"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenLocal  = "jwt"
	claimsLocal = "claims"
)

// Session requires a valid bearer token and stores its claims for Claims.
// Expired, tampered and incomplete tokens get distinct messages.
func Session(issuer *auth.TokenIssuer) fiber.Handler {
	return newSession(issuer, nil)
}

// AdminSession is Session for admin routes: a request carrying a valid
// X-Admin-Token skips the bearer check and goes straight to AdminRequired.
func AdminSession(issuer *auth.TokenIssuer, cfg *config.Config) fiber.Handler {
	return newSession(issuer, func(c *fiber.Ctx) bool { return hasAdminToken(c, cfg) })
}

func newSession(issuer *auth.TokenIssuer, skip func(*fiber.Ctx) bool) fiber.Handler {
	return jwtware.New(jwtware.Config{
		Filter:     skip,
		SigningKey: jwtware.SigningKey{JWTAlg: jwt.SigningMethodHS256.Alg(), Key: issuer.Secret()},
		Claims:     &auth.SessionClaims{},
		ContextKey: tokenLocal,
		SuccessHandler: func(c *fiber.Ctx) error {
			token, ok := c.Locals(tokenLocal).(*jwt.Token)
			if !ok {
				return unauthorized(c, "Unauthorized")
			}
			// Apply the issuer's rules too (exp required, claims complete).
			claims, err := issuer.VerifySession(token.Raw)
			if err != nil {
				return sessionError(c, err)
			}
			c.Locals(claimsLocal, claims)
			return c.Next()
		},
		ErrorHandler: sessionError,
	})
}

func sessionError(c *fiber.Ctx, err error) error {
	if errors.Is(err, jwtware.ErrJWTMissingOrMalformed) {
		return unauthorized(c, "Missing or malformed token")
	}
	switch auth.ClassifyError(err) {
	case auth.ErrTokenExpired:
		return unauthorized(c, "Token has expired")
	case auth.ErrTokenMalformed:
		return unauthorized(c, "Token is missing required claims")
	default:
		return unauthorized(c, "Invalid token")
	}
}

// Claims returns the session claims stored by Session.
func Claims(c *fiber.Ctx) (*auth.SessionClaims, bool) {
	claims, ok := c.Locals(claimsLocal).(*auth.SessionClaims)
	return claims, ok && claims != nil
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.NewErrorResponse(fiber.StatusUnauthorized, msg, c.Path()))
}
