package middleware

import (
	"context"
	"strings"
	"time"

	"postboard/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// LocalOpenID is the Fiber locals key holding the authenticated caller identity.
const LocalOpenID = "openid"

// IdentityAudience is the aud claim carried by identity tokens.
const IdentityAudience = "postboard-api"

// Authenticator verifies identity tokens. The caller identity is the token subject.
type Authenticator struct {
	secret []byte
}

// NewAuthenticator returns an Authenticator for HS256 tokens signed with secret.
func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// IssueToken signs an identity token for openid. Used by tooling and tests.
func (a *Authenticator) IssueToken(openid string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   openid,
		Audience:  jwt.ClaimStrings{IdentityAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// ParseToken validates tokenString and returns its subject.
func (a *Authenticator) ParseToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return a.secret, nil
	}, jwt.WithAudience(IdentityAudience))
	if err != nil || !token.Valid {
		return "", models.NewUnauthorizedError("Invalid or expired token")
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || strings.TrimSpace(claims.Subject) == "" {
		return "", models.NewUnauthorizedError("Invalid token structure - missing subject")
	}
	return claims.Subject, nil
}

// Required rejects requests without a valid bearer token and stores the
// caller identity in c.Locals(LocalOpenID) and the request context.
func (a *Authenticator) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("User not logged in."))
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid authorization header format"))
		}

		openid, err := a.ParseToken(parts[1])
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, err)
		}

		c.Locals(LocalOpenID, openid)
		c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, openid))
		return c.Next()
	}
}

// OpenID returns the authenticated caller identity, or "" when absent.
func OpenID(c *fiber.Ctx) string {
	openid, _ := c.Locals(LocalOpenID).(string)
	return openid
}

// Optional records the caller identity when a valid bearer token is present
// and lets anonymous requests through unchanged.
func (a *Authenticator) Optional() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, ok := strings.CutPrefix(c.Get("Authorization"), "Bearer ")
		if !ok || tokenString == "" {
			return c.Next()
		}
		if openid, err := a.ParseToken(tokenString); err == nil {
			c.Locals(LocalOpenID, openid)
			c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, openid))
		}
		return c.Next()
	}
}
