package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hammerfall-games/hammerfall/internal/users"
	"github.com/hammerfall-games/hammerfall/pkg/auth"
)

// AuthHandler issues access tokens for the dashboard.
type AuthHandler struct {
	users  *users.Service
	signer *auth.Signer
	logger *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(userSvc *users.Service, signer *auth.Signer, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{users: userSvc, signer: signer, logger: logger}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing username or password"})
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
			return
		}
		h.logger.Error("login failed", "username", req.Username, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	token, err := h.signer.GenerateToken(user.ID, user.Username)
	if err != nil {
		h.logger.Error("failed to issue token", "user_id", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":    token,
		"userId":   user.ID,
		"username": user.Username,
		"balance":  user.Balance,
	})
}
