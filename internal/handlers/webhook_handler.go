package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"childcare-reconciliation-backend/internal/services/notifications"
	"childcare-reconciliation-backend/internal/workers"

	"github.com/gin-gonic/gin"
)

// WebhookHandler receives bank alert notifications forwarded by the
// external pipeline. The handler only validates the envelope; the
// payload is processed on the worker pool.
type WebhookHandler struct {
	service *notifications.Service
	senders *notifications.SenderValidator
	apiKey  string
}

func NewWebhookHandler(s *notifications.Service, senders *notifications.SenderValidator, apiKey string) *WebhookHandler {
	return &WebhookHandler{service: s, senders: senders, apiKey: apiKey}
}

func (h *WebhookHandler) HandleNotification(c *gin.Context) {
	var payload notifications.Payload
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "invalid payload"})
		return
	}

	if !h.validKey(c, payload.APIKey) {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "error": "invalid API key"})
		return
	}
	if !h.senders.IsTrustedSender(payload.Sender) {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "sender not on the allowed bank domain list"})
		return
	}
	if strings.TrimSpace(payload.Body) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "notification body is required"})
		return
	}

	if err := h.service.Enqueue(payload); err != nil {
		if errors.Is(err, workers.ErrQueueFull) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "error": "queue full, retry later"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":   "accepted",
		"message":  "notification queued for processing",
		"email_id": payload.EmailID,
	})
}

func (h *WebhookHandler) Stats(c *gin.Context) {
	if !h.validKey(c, c.Query("apiKey")) {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "error": "invalid API key"})
		return
	}
	stats, err := h.service.Stats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *WebhookHandler) RetryFailed(c *gin.Context) {
	if !h.validKey(c, c.Query("apiKey")) {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "error": "invalid API key"})
		return
	}
	count, err := h.service.RetryFailed()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "requeued": count})
}

func (h *WebhookHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "webhook-receiver",
		"timestamp": time.Now().UnixMilli(),
	})
}

func (h *WebhookHandler) validKey(c *gin.Context, bodyKey string) bool {
	key := c.GetHeader("X-API-Key")
	if key == "" {
		key = bodyKey
	}
	return strings.TrimSpace(key) != "" && strings.TrimSpace(key) == h.apiKey
}
