package handlers

import (
	"bazaar/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// Handlers bundles every HTTP handler for route registration.
type Handlers struct {
	Checkout    *CheckoutHandler
	Webhook     *WebhookHandler
	Earnings    *EarningsHandler
	Transaction *TransactionHandler
	Refund      *RefundHandler
	Dispute     *DisputeHandler
	Admin       *AdminHandler
}

func SetupRoutes(app *fiber.App, h *Handlers) {
	// Public routes
	app.Get("/health", HealthCheck)
	app.Post("/webhooks/payment", h.Webhook.HandlePaymentWebhook)

	// Authenticated routes
	api := app.Group("/api", middleware.Auth)

	api.Post("/purchase", h.Checkout.InitiatePurchase)
	api.Get("/purchases", h.Transaction.GetPurchases)

	creator := api.Group("/creator")
	creator.Get("/earnings", h.Earnings.GetSummary)
	creator.Get("/transactions", h.Transaction.GetCreatorTransactions)

	transactions := api.Group("/transactions")
	transactions.Post("/:id/refund", h.Refund.RequestRefund)
	transactions.Get("/:id/refunds", h.Refund.GetRefunds)
	transactions.Get("/:id/receipt", h.Transaction.GetReceipt)

	// Admin routes
	admin := api.Group("/admin", middleware.RequireAdmin)
	admin.Post("/transactions/:id/dispute/resolve", h.Dispute.ResolveDispute)
	admin.Get("/transactions/:id/disputes", h.Dispute.GetDisputes)
	admin.Get("/dead-letters", h.Admin.GetDeadLetters)
}
