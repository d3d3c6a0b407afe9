package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/domain"
)

// TokenVerifier turns a bearer token into the principal it was issued to.
type TokenVerifier interface {
	Authenticate(token string) (domain.Principal, error)
}

var (
	ErrMissingToken   = errors.New("missing bearer token")
	ErrMalformedToken = errors.New("malformed Authorization header")
)

// Auth verifies the bearer token and stores "user_id" and "username" in the
// gin context. Browsers cannot set headers on a websocket upgrade, so the
// token may also come in the "token" query parameter.
func Auth(verifier TokenVerifier) gin.HandlerFunc {
	if verifier == nil {
		panic("TokenVerifier cannot be nil for Auth middleware")
	}

	return func(c *gin.Context) {
		tokenStr, err := extractToken(c)
		if err != nil {
			logrus.WithError(err).WithField("path", c.Request.URL.Path).Warn("Auth middleware: no usable token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token is required"})
			return
		}

		principal, err := verifier.Authenticate(tokenStr)
		if err != nil {
			logrus.WithError(err).Warn("Auth middleware: invalid token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set("user_id", principal.UserID)
		c.Set("username", principal.DisplayName)
		logrus.WithField("user_id", principal.UserID).Debug("Auth middleware: user authenticated via JWT")
		c.Next()
	}
}

// PrincipalFrom rebuilds the principal Auth stored in the context.
func PrincipalFrom(c *gin.Context) (domain.Principal, bool) {
	id, ok := c.Get("user_id")
	if !ok {
		return domain.Principal{}, false
	}
	userID, ok := id.(uint)
	if !ok {
		return domain.Principal{}, false
	}
	return domain.Principal{UserID: userID, DisplayName: c.GetString("username")}, true
}

func extractToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if q := c.Query("token"); q != "" {
			return q, nil
		}
		return "", ErrMissingToken
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", ErrMalformedToken
	}
	return parts[1], nil
}
