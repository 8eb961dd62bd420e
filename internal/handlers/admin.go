package handlers

import (
	"bazaar/internal/repositories"
	"bazaar/internal/utils/pagination"

	"github.com/gofiber/fiber/v2"
)

type AdminHandler struct {
	events repositories.EventRepository
}

func NewAdminHandler(events repositories.EventRepository) *AdminHandler {
	return &AdminHandler{events: events}
}

// GetDeadLetters lists settlement events that referenced no transaction,
// for operator inspection and manual replay.
func (h *AdminHandler) GetDeadLetters(c *fiber.Ctx) error {
	p := pagination.ParseFromRequest(c)

	events, err := h.events.ListDeadLetters(p.Limit, p.Offset)
	if err != nil {
		return respondError(c, err)
	}

	p.Total = int64(len(events))
	return c.JSON(pagination.Response(p, events))
}
