package handlers

import (
	"strconv"

	"bazaar/internal/models"
	"bazaar/internal/services/dispute"
	"bazaar/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

type DisputeHandler struct {
	disputeService dispute.Service
}

func NewDisputeHandler(disputeService dispute.Service) *DisputeHandler {
	return &DisputeHandler{disputeService: disputeService}
}

// ResolveDispute closes the open dispute on a transaction with the given
// outcome. Admin only; the route group enforces that.
func (h *DisputeHandler) ResolveDispute(c *fiber.Ctx) error {
	claims := c.Locals("claims").(*models.UserClaims)

	txID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid transaction ID")
	}

	var input struct {
		Outcome    string `json:"outcome"`
		Resolution string `json:"resolution"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}

	tx, err := h.disputeService.Resolve(c.Context(), uint(txID), input.Outcome, input.Resolution, claims.UserID)
	if err != nil {
		return respondError(c, err)
	}

	return response.Success(c, "Dispute resolved", tx)
}

// GetDisputes lists the disputes recorded against a transaction.
func (h *DisputeHandler) GetDisputes(c *fiber.Ctx) error {
	txID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid transaction ID")
	}

	disputes, err := h.disputeService.ListByTransaction(c.Context(), uint(txID))
	if err != nil {
		return respondError(c, err)
	}

	return response.Success(c, "Disputes retrieved", disputes)
}
