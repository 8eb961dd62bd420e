package handlers

import (
	"log"
	"strconv"

	"bazaar/internal/models"
	"bazaar/internal/repositories/cache"
	"bazaar/internal/services/earnings"
	"bazaar/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

type EarningsHandler struct {
	earningsService earnings.Service
	cache           *cache.CacheService
}

func NewEarningsHandler(earningsService earnings.Service, cacheService *cache.CacheService) *EarningsHandler {
	return &EarningsHandler{
		earningsService: earningsService,
		cache:           cacheService,
	}
}

type earningsSummary struct {
	Period      string                `json:"period"`
	Totals      *models.EarningTotals `json:"totals"`
	TopListings []models.ListingSales `json:"top_listings"`
}

// GetSummary returns a creator's earnings totals and top sellers for a
// period. Summaries are cached per creator and period; mutations drop
// the keys through the earnings service.
func (h *EarningsHandler) GetSummary(c *fiber.Ctx) error {
	claims := c.Locals("claims").(*models.UserClaims)
	period := c.Query("period", earnings.PeriodMonth)

	key := cache.EarningsSummaryKey(claims.UserID, period)
	if h.cache != nil {
		var cached earningsSummary
		if hit, err := h.cache.Get(c.Context(), key, &cached); err == nil && hit {
			return response.Success(c, "Earnings summary", cached)
		}
	}

	totals, err := h.earningsService.TotalsForCreator(c.Context(), claims.UserID, period)
	if err != nil {
		return respondError(c, err)
	}

	limit, _ := strconv.Atoi(c.Query("top", "5"))
	top, err := h.earningsService.TopListings(c.Context(), claims.UserID, period, limit)
	if err != nil {
		return respondError(c, err)
	}

	summary := earningsSummary{Period: period, Totals: totals, TopListings: top}
	if h.cache != nil {
		if err := h.cache.Set(c.Context(), key, summary); err != nil {
			log.Printf("Failed to cache earnings summary: %v", err)
		}
	}

	return response.Success(c, "Earnings summary", summary)
}
