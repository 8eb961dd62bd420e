package handlers

import (
	"bazaar/internal/models"
	"bazaar/internal/services/checkout"
	"bazaar/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

type CheckoutHandler struct {
	checkoutService checkout.Service
}

func NewCheckoutHandler(checkoutService checkout.Service) *CheckoutHandler {
	return &CheckoutHandler{checkoutService: checkoutService}
}

// InitiatePurchase opens a payment intent for a listing and returns the
// client secret the buyer's client confirms against the processor.
func (h *CheckoutHandler) InitiatePurchase(c *fiber.Ctx) error {
	var input struct {
		ListingID uint `json:"listing_id"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}
	if input.ListingID == 0 {
		return response.BadRequest(c, "listing_id is required")
	}

	claims := c.Locals("claims").(*models.UserClaims)
	result, err := h.checkoutService.InitiatePurchase(c.Context(), claims.UserID, input.ListingID)
	if err != nil {
		return respondError(c, err)
	}

	return response.Success(c, "Purchase initiated", result)
}
