package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammerfall-games/hammerfall/internal/commands"
)

type stubProcessor struct {
	lastUsername  string
	lastText      string
	lastAuctionID *uuid.UUID
	result        commands.CommandResult
}

func (p *stubProcessor) Process(_ context.Context, username, text string, auctionID *uuid.UUID) commands.CommandResult {
	p.lastUsername = username
	p.lastText = text
	p.lastAuctionID = auctionID
	return p.result
}

func newWebhookRouter(processor *stubProcessor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := gin.New()
	handler := NewWebhookHandler(processor, logger)
	router.POST("/webhooks/comments", handler.HandleComment)
	return router
}

func postJSON(t *testing.T, router *gin.Engine, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestWebhookHandler_HandleComment(t *testing.T) {
	t.Run("dispatches the comment to the processor", func(t *testing.T) {
		processor := &stubProcessor{result: commands.CommandResult{Success: true, Message: "Bid placed"}}
		router := newWebhookRouter(processor)
		auctionID := uuid.New()

		rec := postJSON(t, router, "/webhooks/comments", gin.H{
			"username":  "viewer42",
			"text":      "bid 500",
			"auctionId": auctionID.String(),
		})

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "viewer42", processor.lastUsername)
		assert.Equal(t, "bid 500", processor.lastText)
		require.NotNil(t, processor.lastAuctionID)
		assert.Equal(t, auctionID, *processor.lastAuctionID)

		var result commands.CommandResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.True(t, result.Success)
		assert.Equal(t, "Bid placed", result.Message)
	})

	t.Run("auction context is optional", func(t *testing.T) {
		processor := &stubProcessor{result: commands.CommandResult{Success: true, Message: "ok"}}
		router := newWebhookRouter(processor)

		rec := postJSON(t, router, "/webhooks/comments", gin.H{
			"username": "viewer42",
			"text":     "balance",
		})

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, processor.lastAuctionID)
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		router := newWebhookRouter(&stubProcessor{})
		rec := postJSON(t, router, "/webhooks/comments", gin.H{"username": "viewer42"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects a malformed auction id", func(t *testing.T) {
		router := newWebhookRouter(&stubProcessor{})
		rec := postJSON(t, router, "/webhooks/comments", gin.H{
			"username":  "viewer42",
			"text":      "bid 500",
			"auctionId": "not-a-uuid",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAdminHandler_RequireAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewAdminHandler(nil, nil, "top-secret", logger)

	router := gin.New()
	router.GET("/admin/ping", handler.RequireAdmin, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	t.Run("missing secret", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("wrong secret", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
		req.Header.Set("X-Admin-Secret", "guess")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("valid secret", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
		req.Header.Set("X-Admin-Secret", "top-secret")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
