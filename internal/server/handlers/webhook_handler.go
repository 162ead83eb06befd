package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/tally/internal/domain/models"
	service "github.com/mamadbah2/tally/internal/service/whatsapp"
	client "github.com/mamadbah2/tally/pkg/clients/whatsapp"
)

// WebhookHandler is the chat intake for inventory lists. A nil service means
// the integration is off and every route answers 503.
type WebhookHandler struct {
	svc    service.MessagingService
	logger *zap.Logger
}

// NewWebhookHandler constructs the handler.
func NewWebhookHandler(svc service.MessagingService, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{svc: svc, logger: logger}
}

func (h *WebhookHandler) disabled(c *gin.Context) bool {
	if h.svc != nil {
		return false
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": "whatsapp integration disabled"})
	return true
}

// Verify answers the subscription handshake.
func (h *WebhookHandler) Verify(c *gin.Context) {
	if h.disabled(c) {
		return
	}
	resp, err := h.svc.VerifyWebhookToken(c.Query("hub.mode"), c.Query("hub.verify_token"), c.Query("hub.challenge"))
	if err != nil {
		h.logger.Warn("webhook verification failed", zap.Error(err))
		c.String(http.StatusForbidden, "verification failed")
		return
	}
	c.String(http.StatusOK, resp)
}

// Receive records the inventory lists carried by a delivery. The delivery is
// acknowledged even when one list fails: its message id is already claimed,
// so a redelivery would be skipped and only repeat the other lists' replies.
func (h *WebhookHandler) Receive(c *gin.Context) {
	if h.disabled(c) {
		return
	}
	var payload models.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.logger.Warn("invalid webhook payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if err := h.svc.HandleWebhook(c.Request.Context(), payload); err != nil {
		h.logger.Error("inventory list not fully handled", zap.Error(err))
	}
	c.Status(http.StatusOK)
}

// SendMessage pushes a manual chat message, for example a corrected list
// summary.
func (h *WebhookHandler) SendMessage(c *gin.Context) {
	if h.disabled(c) {
		return
	}
	var req models.OutboundMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid outbound payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	err := h.svc.SendOutbound(c.Request.Context(), req)
	switch {
	case errors.Is(err, client.ErrEmptyBody):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		h.logger.Error("failed sending outbound", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "unable to send message"})
	default:
		c.Status(http.StatusAccepted)
	}
}
