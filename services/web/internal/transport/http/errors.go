package handlers

import (
	"context"
	"errors"
	"net/http"

	"knowhow/services/web/internal/invalidation"
	"knowhow/services/web/internal/remote"
	"knowhow/services/web/internal/views"

	"github.com/gin-gonic/gin"
)

var errBadRequest = errors.New("bad request")

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, envelope(msg, "invalid_request"))
}

func envelope(msg, code string) gin.H {
	return gin.H{"error": gin.H{"message": msg, "code": code}}
}

func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, remote.ErrAuthorizationRequired):
		return http.StatusUnauthorized, "authorization_required"
	case errors.Is(err, remote.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, remote.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, remote.ErrIntegrityViolation):
		return http.StatusInternalServerError, "integrity_violation"
	case errors.Is(err, remote.ErrConstraintViolation):
		return http.StatusUnprocessableEntity, "constraint_violation"
	case errors.Is(err, views.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, invalidation.ErrEmptyPrompt), errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, remote.ErrNetwork):
		return http.StatusBadGateway, "network"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func respondError(c *gin.Context, err error) {
	code, name := statusOf(err)
	msg := err.Error()
	if code == http.StatusInternalServerError && name == "internal" {
		_ = c.Error(err)
		msg = "internal error"
	}
	c.AbortWithStatusJSON(code, envelope(msg, name))
}
