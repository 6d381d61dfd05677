package handler

import (
	"io"
	"net/http"

	"go-gin-bus-booking/internal/cache"
	"go-gin-bus-booking/internal/payment"
	"go-gin-bus-booking/internal/queue"
	"go-gin-bus-booking/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxWebhookBytes = 64 << 10

type WebhookHandler struct {
	gateway payment.Gateway
	deduper cache.EventDeduper
	queue   queue.PaymentEventQueue
}

func NewWebhookHandler(gateway payment.Gateway, deduper cache.EventDeduper, queue queue.PaymentEventQueue) *WebhookHandler {
	return &WebhookHandler{
		gateway: gateway,
		deduper: deduper,
		queue:   queue,
	}
}

func (h *WebhookHandler) RegisterRoutes(g Groups) {
	g.Public.POST("webhooks/payment", h.Payment)
}

// Payment verifies a processor notification and hands it to the payment worker. The
// processor retries anything that is not a 2xx.
func (h *WebhookHandler) Payment(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}

	event, err := h.gateway.ParseWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		handleError(c, err, "PaymentWebhook")
		return
	}

	log := logger.WithComponent("webhook").With(
		zap.String("event_id", event.ID),
		zap.String("type", event.Type),
	)

	if event.Kind == payment.EventIgnored {
		log.Debug("Ignoring payment event")
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	first, err := h.deduper.FirstSeen(c, event.ID)
	if err != nil {
		handleError(c, err, "PaymentWebhook")
		return
	}
	if !first {
		log.Info("Duplicate payment event")
		c.JSON(http.StatusOK, gin.H{"received": true, "duplicate": true})
		return
	}

	if err := h.queue.Publish(c, event); err != nil {
		// let the processor redeliver it
		if forgetErr := h.deduper.Forget(c, event.ID); forgetErr != nil {
			log.Warn("Failed to forget payment event", zap.Error(forgetErr))
		}
		handleError(c, err, "PaymentWebhook")
		return
	}

	log.Info("Payment event queued", zap.String("session_id", event.SessionID))
	c.JSON(http.StatusOK, gin.H{"received": true})
}
