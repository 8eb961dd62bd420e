package handlers

import (
	"errors"

	domainerrors "bazaar/internal/errors"
	"bazaar/internal/services/settlement"
	"bazaar/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

type WebhookHandler struct {
	processor *settlement.Processor
}

func NewWebhookHandler(processor *settlement.Processor) *WebhookHandler {
	return &WebhookHandler{processor: processor}
}

// HandlePaymentWebhook receives raw processor notifications. A malformed
// or unverifiable payload is a 400 so the processor stops retrying it;
// dead-lettered and ignored events answer 200 because redelivery cannot
// fix them. Anything else is a 500 and the processor retries.
func (h *WebhookHandler) HandlePaymentWebhook(c *fiber.Ctx) error {
	result, err := h.processor.ProcessEvent(c.Context(), c.Body(), c.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, domainerrors.ErrMalformedEvent) {
			return response.BadRequest(c, err.Error())
		}
		return response.ServerError(c, err.Error())
	}

	return response.Success(c, "Event processed", result)
}
