package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hammerfall-games/hammerfall/pkg/auth"
)

// Handlers groups the route handlers mounted by the router.
type Handlers struct {
	Webhook   *WebhookHandler
	Admin     *AdminHandler
	Auth      *AuthHandler
	Inventory *InventoryHandler
}

// NewRouter configures all gin routes for the application
func NewRouter(h Handlers, signer *auth.Signer, logger *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().Format(time.RFC3339)})
	})

	webhooks := router.Group("/webhooks")
	{
		webhooks.POST("/comments", h.Webhook.HandleComment)
	}

	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/login", h.Auth.Login)
	}

	// Admin endpoints are protected by a shared secret header rather
	// than user tokens; they are operator tooling, not a user surface.
	admin := router.Group("/admin", h.Admin.RequireAdmin)
	{
		admin.POST("/items", h.Admin.CreateItem)
		admin.GET("/items", h.Admin.ListItems)
		admin.POST("/auctions", h.Admin.StartAuction)
		admin.POST("/auctions/:id/end", h.Admin.EndAuction)
		admin.GET("/auctions/:id/highest-bid", h.Admin.GetHighestBid)
	}

	inventory := router.Group("/inventory", auth.RequireAuth(signer))
	{
		inventory.GET("", h.Inventory.List)
		inventory.POST("/equip", h.Inventory.Equip)
		inventory.POST("/unequip", h.Inventory.Unequip)
	}

	return router
}

// requestLogger logs every request with method, path, status and latency.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
