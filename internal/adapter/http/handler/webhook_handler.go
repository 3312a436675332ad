package handler

import (
	"jvc-ledger/internal/adapter/http/dto"
	"jvc-ledger/internal/core/ports"
	"jvc-ledger/pkg/apperror"
	"jvc-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// WebhookHandler receives payment processor events.
type WebhookHandler struct {
	depositSvc ports.DepositService
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(depositSvc ports.DepositService) *WebhookHandler {
	return &WebhookHandler{depositSvc: depositSvc}
}

// PaymentEvent handles POST /api/v1/webhooks/payments. Replayed events
// return 200 without side effects so the processor stops retrying.
func (h *WebhookHandler) PaymentEvent(c *gin.Context) {
	var event dto.WebhookEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	// Only successful-payment events mint. Everything else is acknowledged
	// and dropped.
	if event.Type != "payment_intent.succeeded" {
		response.OK(c, gin.H{"received": true, "ignored": true})
		return
	}

	if err := h.depositSvc.ConfirmPayment(c.Request.Context(), event.EventID, event.PaymentIntentID); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"received": true})
}
