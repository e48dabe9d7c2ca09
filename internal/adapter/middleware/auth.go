package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"cashloan-backend/pkg/id"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const (
	ctxSubject = "auth.sub"
	ctxRole    = "auth.role"
)

// Claims is the identity carried by bearer tokens. Subject holds the 32-hex user id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Subject returns the authenticated user id, or "" outside Authenticate.
func Subject(c echo.Context) string {
	s, _ := c.Get(ctxSubject).(string)
	return s
}

func Role(c echo.Context) string {
	r, _ := c.Get(ctxRole).(string)
	return r
}

// Authenticate verifies an HS256 bearer token and stores sub and role on the context.
func Authenticate(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := strings.CutPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
			}
			claims, err := parseToken(secret, strings.TrimSpace(raw))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			}
			c.Set(ctxSubject, claims.Subject)
			c.Set(ctxRole, claims.Role)
			return next(c)
		}
	}
}

// RequireRole rejects requests whose token role differs from role.
func RequireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if Role(c) != role {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "insufficient role"})
			}
			return next(c)
		}
	}
}

func parseToken(secret []byte, raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if !id.Valid(claims.Subject) {
		return nil, errors.New("subject must be a 32-char hex user id")
	}
	return claims, nil
}

// IssueToken signs a token for userID. Used by the token subcommand and tests.
func IssueToken(secret []byte, userID, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
