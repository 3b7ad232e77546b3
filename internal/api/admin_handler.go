package api

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hammerfall-games/hammerfall/internal/auction"
	"github.com/hammerfall-games/hammerfall/internal/items"
)

const adminSecretHeader = "X-Admin-Secret"

// AdminHandler exposes the operator tooling: catalog management and
// auction lifecycle control.
type AdminHandler struct {
	auctions *auction.Service
	items    *items.Service
	secret   string
	logger   *slog.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(auctions *auction.Service, itemSvc *items.Service, secret string, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		auctions: auctions,
		items:    itemSvc,
		secret:   secret,
		logger:   logger,
	}
}

// RequireAdmin validates the shared admin secret.
func (h *AdminHandler) RequireAdmin(c *gin.Context) {
	got := c.GetHeader(adminSecretHeader)
	if subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	c.Next()
}

type createItemRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	Rarity      string `json:"rarity"`
	BasePrice   int64  `json:"base_price"`
	Category    string `json:"category"`
	SlotType    string `json:"slot_type"`
}

// CreateItem handles POST /admin/items
func (h *AdminHandler) CreateItem(c *gin.Context) {
	var req createItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.items.CreateItem(c.Request.Context(), items.CreateItemCommand{
		Name:        req.Name,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Rarity:      req.Rarity,
		BasePrice:   req.BasePrice,
		Category:    req.Category,
		SlotType:    req.SlotType,
	})
	if err != nil {
		h.logger.Error("failed to create item", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create item"})
		return
	}
	c.JSON(http.StatusOK, item)
}

// ListItems handles GET /admin/items
func (h *AdminHandler) ListItems(c *gin.Context) {
	list, err := h.items.ListWithActiveAuctions(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list items", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch items"})
		return
	}
	c.JSON(http.StatusOK, list)
}

type startAuctionRequest struct {
	ItemID          string `json:"itemId" binding:"required"`
	DurationMinutes int    `json:"durationMinutes" binding:"required"`
	StartingPrice   int64  `json:"startingPrice"`
}

// StartAuction handles POST /admin/auctions
func (h *AdminHandler) StartAuction(c *gin.Context) {
	var req startAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	itemID, err := uuid.Parse(req.ItemID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid itemId"})
		return
	}

	au, err := h.auctions.StartAuction(c.Request.Context(), auction.StartAuctionCommand{
		ItemID:        itemID,
		Duration:      time.Duration(req.DurationMinutes) * time.Minute,
		StartingPrice: req.StartingPrice,
	})
	if err != nil {
		h.logger.Error("failed to start auction", "item_id", itemID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start auction"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "auctionId": au.ID})
}

// EndAuction handles POST /admin/auctions/:id/end
func (h *AdminHandler) EndAuction(c *gin.Context) {
	auctionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid auction id"})
		return
	}

	settlement, err := h.auctions.ResolveAuction(c.Request.Context(), auctionID)
	if err != nil {
		h.logger.Error("failed to end auction", "auction_id", auctionID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to end auction"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "outcome": settlement.Outcome})
}

// GetHighestBid handles GET /admin/auctions/:id/highest-bid
func (h *AdminHandler) GetHighestBid(c *gin.Context) {
	auctionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid auction id"})
		return
	}

	top, err := h.auctions.GetHighestBid(c.Request.Context(), auctionID)
	if err != nil {
		h.logger.Error("failed to read highest bid", "auction_id", auctionID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read highest bid"})
		return
	}
	if top == nil {
		c.JSON(http.StatusOK, gin.H{"bid": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bid": gin.H{"userId": top.UserID, "amount": top.Amount}})
}
