package handlers

import (
	"net/http"
	"strings"

	"knowhow/pkg/logger"
	"knowhow/services/web/internal/session"

	"github.com/gin-gonic/gin"
)

type GenerationHandler struct {
	mutations Mutations
	log       *logger.Logger
}

func NewGenerationHandler(mutations Mutations, log *logger.Logger) *GenerationHandler {
	return &GenerationHandler{mutations: mutations, log: log}
}

// POST /api/v1/generate
func (h *GenerationHandler) Generate(c *gin.Context) {
	var req struct {
		Prompt string `json:"prompt" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "field 'prompt' is required")
		return
	}

	ctx := c.Request.Context()
	user := session.UserFrom(ctx)
	if err := h.mutations.RequestGeneration(ctx, user, strings.TrimSpace(req.Prompt)); err != nil {
		h.log.Warn("generation request failed", "error", err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Generation request queued",
	})
}
