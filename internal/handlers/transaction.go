package handlers

import (
	"strconv"

	"bazaar/internal/models"
	"bazaar/internal/services/ledger"
	"bazaar/internal/services/receipt"
	"bazaar/internal/utils/pagination"
	"bazaar/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

type TransactionHandler struct {
	ledgerService  ledger.Service
	receiptService receipt.Service
}

func NewTransactionHandler(ledgerService ledger.Service, receiptService receipt.Service) *TransactionHandler {
	return &TransactionHandler{
		ledgerService:  ledgerService,
		receiptService: receiptService,
	}
}

// GetCreatorTransactions lists the authenticated creator's sales.
func (h *TransactionHandler) GetCreatorTransactions(c *fiber.Ctx) error {
	claims := c.Locals("claims").(*models.UserClaims)
	p := pagination.ParseFromRequest(c)

	txs, total, err := h.ledgerService.ListForCreator(c.Context(), claims.UserID, p.Limit, p.Offset)
	if err != nil {
		return respondError(c, err)
	}

	p.Total = total
	return c.JSON(pagination.Response(p, txs))
}

// GetPurchases lists the authenticated buyer's purchases.
func (h *TransactionHandler) GetPurchases(c *fiber.Ctx) error {
	claims := c.Locals("claims").(*models.UserClaims)
	p := pagination.ParseFromRequest(c)

	txs, total, err := h.ledgerService.ListForBuyer(c.Context(), claims.UserID, p.Limit, p.Offset)
	if err != nil {
		return respondError(c, err)
	}

	p.Total = total
	return c.JSON(pagination.Response(p, txs))
}

// GetReceipt returns the receipt for a transaction the caller took part
// in, either as the buyer or the creator.
func (h *TransactionHandler) GetReceipt(c *fiber.Ctx) error {
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
		return response.Forbidden(c, "You do not have access to this receipt")
	}

	rc, err := h.receiptService.GetByTransaction(c.Context(), tx.ID)
	if err != nil {
		return respondError(c, err)
	}

	return response.Success(c, "Receipt retrieved", rc)
}
