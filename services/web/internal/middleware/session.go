package middleware

import (
	"context"
	"strings"

	"knowhow/pkg/logger"
	"knowhow/services/web/internal/domain"
	"knowhow/services/web/internal/session"

	"github.com/gin-gonic/gin"
)

// TokenValidator is satisfied by *session.Service.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (*domain.User, error)
}

// Session resolves the bearer token, if any, to the signed-in user and puts it on
// the request context. A missing or invalid token means nobody is signed in;
// routes that need a user fail later with an authorization error.
func Session(validator TokenValidator, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearer(c.GetHeader("Authorization"))
		if token == "" {
			c.Next()
			return
		}

		user, err := validator.Validate(c.Request.Context(), token)
		if err != nil {
			log.Debug("ignoring invalid session", "error", err)
			c.Next()
			return
		}

		c.Set("userId", user.ID)
		c.Request = c.Request.WithContext(session.WithUser(c.Request.Context(), user))
		c.Next()
	}
}

func bearer(header string) string {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}
