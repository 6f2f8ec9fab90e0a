package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kursio/kursio/internal/domain/billing"
	"github.com/kursio/kursio/internal/shared/constants"
	"github.com/kursio/kursio/internal/shared/logger"
)

type webhookReceivedResponse struct {
	Received bool `json:"received"`
}

type webhookErrorResponse struct {
	Error string `json:"error"`
}

// WebhookHandler receives Stripe deliveries. Only a signature failure is
// answered with an error; once verified, every delivery is acknowledged
// so local failures never trigger provider retries.
type WebhookHandler struct {
	verifier  billing.EventVerifier
	processor webhookProcessor
	logger    logger.Interface
}

func NewWebhookHandler(verifier billing.EventVerifier, processor webhookProcessor, logger logger.Interface) *WebhookHandler {
	return &WebhookHandler{
		verifier:  verifier,
		processor: processor,
		logger:    logger,
	}
}

func (h *WebhookHandler) Handle(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, constants.MaxWebhookBodyBytes)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.logger.Errorw("webhook body exceeds limit, delivery needs manual remediation",
				"limit_bytes", tooLarge.Limit,
				"content_length", c.Request.ContentLength,
				"signed", c.GetHeader(constants.HeaderStripeSignature) != "",
				"client_ip", c.ClientIP(),
			)
		}
		c.JSON(http.StatusBadRequest, webhookErrorResponse{Error: "failed to read request body"})
		return
	}

	event, err := h.verifier.Verify(payload, c.GetHeader(constants.HeaderStripeSignature))
	if err != nil {
		h.logger.Warnw("webhook rejected", "client_ip", c.ClientIP(), "error", err)
		c.JSON(http.StatusBadRequest, webhookErrorResponse{Error: "invalid Stripe signature"})
		return
	}

	result := h.processor.Process(c.Request.Context(), event)
	if result.Err != nil {
		h.logger.Errorw("webhook processing failed, acknowledging anyway",
			"event_id", result.EventID,
			"event_type", result.EventType,
			"user_id", result.UserID,
			"outcome", result.Outcome,
			"error", result.Err,
		)
	} else {
		h.logger.Infow("webhook processed",
			"event_id", result.EventID,
			"event_type", result.EventType,
			"outcome", result.Outcome,
			"detail", result.Detail,
		)
	}

	c.JSON(http.StatusOK, webhookReceivedResponse{Received: true})
}
