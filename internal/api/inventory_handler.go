package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hammerfall-games/hammerfall/internal/inventory"
	"github.com/hammerfall-games/hammerfall/pkg/auth"
)

// InventoryHandler exposes a user's collected items.
type InventoryHandler struct {
	inventory *inventory.Service
	logger    *slog.Logger
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(inventorySvc *inventory.Service, logger *slog.Logger) *InventoryHandler {
	return &InventoryHandler{inventory: inventorySvc, logger: logger}
}

// List handles GET /inventory
func (h *InventoryHandler) List(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	items, err := h.inventory.List(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list inventory", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch inventory"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type equipRequest struct {
	UserItemID string `json:"userItemId" binding:"required"`
	Location   string `json:"location" binding:"required"`
	SlotID     int    `json:"slotId"`
}

// Equip handles POST /inventory/equip
func (h *InventoryHandler) Equip(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req equipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userItemID, err := uuid.Parse(req.UserItemID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid userItemId"})
		return
	}

	if err := h.inventory.Equip(c.Request.Context(), userID, userItemID, req.Location, req.SlotID); err != nil {
		if errors.Is(err, inventory.ErrItemNotOwned) {
			c.JSON(http.StatusNotFound, gin.H{"error": "item not found in inventory"})
			return
		}
		h.logger.Error("failed to equip item", "user_item_id", userItemID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to equip item"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type unequipRequest struct {
	UserItemID string `json:"userItemId" binding:"required"`
}

// Unequip handles POST /inventory/unequip
func (h *InventoryHandler) Unequip(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req unequipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userItemID, err := uuid.Parse(req.UserItemID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid userItemId"})
		return
	}

	if err := h.inventory.Unequip(c.Request.Context(), userID, userItemID); err != nil {
		if errors.Is(err, inventory.ErrItemNotOwned) {
			c.JSON(http.StatusNotFound, gin.H{"error": "item not found in inventory"})
			return
		}
		h.logger.Error("failed to unequip item", "user_item_id", userItemID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to unequip item"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
