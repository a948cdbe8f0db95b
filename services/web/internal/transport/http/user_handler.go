package handlers

import (
	"net/http"

	"knowhow/services/web/internal/session"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	pages Pages
}

func NewUserHandler(pages Pages) *UserHandler {
	return &UserHandler{pages: pages}
}

// GET /api/v1/library
func (h *UserHandler) Library(c *gin.Context) {
	ctx := c.Request.Context()
	lib, err := h.pages.Library(ctx, session.UserFrom(ctx))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lib)
}

// GET /api/v1/me
func (h *UserHandler) Me(c *gin.Context) {
	ctx := c.Request.Context()
	me, err := h.pages.Me(ctx, session.UserFrom(ctx))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, me)
}
