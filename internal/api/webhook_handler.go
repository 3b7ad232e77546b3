package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hammerfall-games/hammerfall/internal/commands"
)

// CommandProcessor runs one comment-channel command.
type CommandProcessor interface {
	Process(ctx context.Context, username, text string, auctionID *uuid.UUID) commands.CommandResult
}

// WebhookHandler receives simulated comment webhooks from the social
// platform and feeds them through the command processor.
type WebhookHandler struct {
	processor CommandProcessor
	logger    *slog.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(processor CommandProcessor, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{processor: processor, logger: logger}
}

type commentRequest struct {
	Username  string `json:"username" binding:"required"`
	Text      string `json:"text" binding:"required"`
	AuctionID string `json:"auctionId"`
}

// HandleComment handles POST /webhooks/comments
func (h *WebhookHandler) HandleComment(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing username or text"})
		return
	}

	var auctionID *uuid.UUID
	if req.AuctionID != "" {
		id, err := uuid.Parse(req.AuctionID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid auctionId"})
			return
		}
		auctionID = &id
	}

	h.logger.Info("received comment", "username", req.Username, "text", req.Text)

	result := h.processor.Process(c.Request.Context(), req.Username, req.Text, auctionID)
	c.JSON(http.StatusOK, result)
}
