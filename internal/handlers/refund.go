package handlers

import (
	"strconv"

	"bazaar/internal/models"
	"bazaar/internal/services/ledger"
	"bazaar/internal/services/refund"
	"bazaar/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

type RefundHandler struct {
	refundService refund.Service
	ledgerService ledger.Service
}

func NewRefundHandler(refundService refund.Service, ledgerService ledger.Service) *RefundHandler {
	return &RefundHandler{
		refundService: refundService,
		ledgerService: ledgerService,
	}
}

// RequestRefund reverses a transaction, fully or partially. Buyers can
// only refund their own purchases; admins can refund any. An omitted or
// zero amount refunds everything not yet returned.
func (h *RefundHandler) RequestRefund(c *fiber.Ctx) error {
	claims := c.Locals("claims").(*models.UserClaims)

	txID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid transaction ID")
	}

	var input struct {
		Amount int64  `json:"amount"`
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}

	if !claims.IsAdmin() {
		tx, err := h.ledgerService.FindByID(c.Context(), uint(txID))
		if err != nil {
			return respondError(c, err)
		}
		if tx.BuyerID != claims.UserID {
			return response.Forbidden(c, "You can only refund your own purchases")
		}
	}

	r, err := h.refundService.Refund(c.Context(), uint(txID), input.Amount, input.Reason, claims.UserID)
	if err != nil {
		return respondError(c, err)
	}

	return response.Success(c, "Refund processed", r)
}

// GetRefunds lists the refunds recorded against a transaction.
func (h *RefundHandler) GetRefunds(c *fiber.Ctx) error {
	claims := c.Locals("claims").(*models.UserClaims)

	txID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid transaction ID")
	}

	tx, err := h.ledgerService.FindByID(c.Context(), uint(txID))
	if err != nil {
		return respondError(c, err)
	}
	if tx.BuyerID != claims.UserID && tx.CreatorID != claims.UserID && !claims.IsAdmin() {
		return response.Forbidden(c, "You do not have access to this transaction")
	}

	refunds, err := h.refundService.ListByTransaction(c.Context(), tx.ID)
	if err != nil {
		return respondError(c, err)
	}

	return response.Success(c, "Refunds retrieved", refunds)
}
