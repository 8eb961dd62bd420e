package handlers

import (
	"errors"

	domainerrors "bazaar/internal/errors"
	"bazaar/internal/services/earnings"
	"bazaar/internal/services/ledger"
	"bazaar/internal/services/receipt"
	"bazaar/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

// respondError maps domain errors to HTTP statuses so every handler
// answers consistently.
func respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domainerrors.ErrValidation),
		errors.Is(err, domainerrors.ErrInvalidAmount),
		errors.Is(err, domainerrors.ErrMalformedEvent):
		return response.BadRequest(c, err.Error())
	case errors.Is(err, domainerrors.ErrInvalidTransition),
		errors.Is(err, domainerrors.ErrConcurrentModification):
		return response.Conflict(c, err.Error())
	case errors.Is(err, domainerrors.ErrNoActiveDispute),
		errors.Is(err, domainerrors.ErrNotFound),
		errors.Is(err, ledger.ErrNotFound),
		errors.Is(err, earnings.ErrNotFound),
		errors.Is(err, receipt.ErrNotFound):
		return response.NotFound(c, err.Error())
	case errors.Is(err, domainerrors.ErrExternalProcessor):
		return response.Error(c, fiber.StatusBadGateway, err.Error())
	default:
		return response.ServerError(c, err.Error())
	}
}
