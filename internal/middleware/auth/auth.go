// Package auth resolves bearer credentials to user identities. Account
// management lives in a separate service; this middleware only validates the
// token and extracts the authenticated user id.
package auth

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/gravadigital/encuentro-api/internal/response"
)

// userIDKey is the gin context key carrying the authenticated user id
const userIDKey = "user_id"

// RequireUser returns a middleware that rejects requests without a valid
// bearer token and stores the authenticated user id in the context
func RequireUser(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.UnauthorizedError(c, "missing authorization header")
			c.Abort()
			return
		}

		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found {
			response.UnauthorizedError(c, "authorization header must use the Bearer scheme")
			c.Abort()
			return
		}

		userID, err := parseSubject(raw, jwtSecret)
		if err != nil {
			response.UnauthorizedError(c, "invalid token")
			c.Abort()
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

// parseSubject validates the token and extracts the subject claim
func parseSubject(raw, jwtSecret string) (uuid.UUID, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	subject, err := token.Claims.GetSubject()
	if err != nil {
		return uuid.Nil, fmt.Errorf("token has no subject: %w", err)
	}

	userID, err := uuid.Parse(subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("token subject is not a valid user id: %w", err)
	}

	return userID, nil
}

// UserID returns the authenticated user id stored by RequireUser
func UserID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get(userIDKey)
	if !exists {
		return uuid.Nil, false
	}

	userID, ok := value.(uuid.UUID)
	return userID, ok
}

// IssueToken creates a signed token for the given user id. Used by tests and
// local tooling; production tokens come from the identity provider.
func IssueToken(userID uuid.UUID, jwtSecret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID.String(),
	})
	return token.SignedString([]byte(jwtSecret))
}
