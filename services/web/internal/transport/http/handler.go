package handlers

import (
	"context"
	"net/http"

	"knowhow/pkg/logger"
	"knowhow/services/web/internal/domain"
	"knowhow/services/web/internal/session"

	"github.com/gin-gonic/gin"
)

// Sessions is satisfied by *session.Service.
type Sessions interface {
	SignUp(ctx context.Context, email, password, username string) (string, error)
	SignIn(ctx context.Context, email, password string) (session.Session, error)
	SignOut(ctx context.Context, u *domain.User) error
}

type AuthHandler struct {
	sessions Sessions
	log      *logger.Logger
}

func NewAuthHandler(sessions Sessions, log *logger.Logger) *AuthHandler {
	return &AuthHandler{sessions: sessions, log: log}
}

type signUpReq struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username"`
	Password string `json:"password" binding:"required,min=6"`
}

type signInReq struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// POST /api/v1/auth/sign-up
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req signUpReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	id, err := h.sessions.SignUp(c.Request.Context(), req.Email, req.Password, req.Username)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user_id": id})
}

// POST /api/v1/auth/sign-in
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req signInReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	s, err := h.sessions.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": s.User.Token,
		"user_id":      s.User.ID,
		"expires_at":   s.ExpiresAt.Unix(),
	})
}

// POST /api/v1/auth/sign-out
func (h *AuthHandler) SignOut(c *gin.Context) {
	user := session.UserFrom(c.Request.Context())
	if user == nil {
		c.JSON(http.StatusOK, gin.H{"message": "Signed out"})
		return
	}

	if err := h.sessions.SignOut(c.Request.Context(), user); err != nil {
		h.log.Warn("sign-out failed", "user_id", user.ID, "error", err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Signed out"})
}
