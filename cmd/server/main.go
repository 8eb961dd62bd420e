// Package main is the entry point for the settlement API server.
// It wires the payment gateway, repositories, services and HTTP
// handlers, then starts the Fiber app.
package main

import (
	"context"
	"log"
	"time"

	"bazaar/internal/config"
	"bazaar/internal/handlers"
	"bazaar/internal/provider"
	"bazaar/internal/repositories"
	"bazaar/internal/services/checkout"
	"bazaar/internal/services/dispute"
	"bazaar/internal/services/earnings"
	"bazaar/internal/services/ledger"
	"bazaar/internal/services/receipt"
	"bazaar/internal/services/refund"
	"bazaar/internal/services/settlement"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func main() {
	// Load environment variables
	config.LoadEnv()

	// Initialize databases (PostgreSQL + Redis)
	if err := repositories.InitDB(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	sqlDB, err := repositories.DB.DB()
	if err != nil {
		log.Fatalf("Failed to get database instance: %v", err)
	}
	if err := sqlDB.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("✅ Successfully connected to database")

	// Clear cached summaries so a deploy never serves stale balances.
	if repositories.CacheService != nil {
		if err := repositories.CacheService.FlushAll(context.Background()); err != nil {
			log.Printf("⚠️ Failed to flush Redis cache: %v", err)
		}
	}

	defer func() {
		if err := sqlDB.Close(); err != nil {
			log.Printf("⚠️ Failed to close database connection: %v", err)
		}
		if repositories.CacheService != nil {
			if err := repositories.CacheService.Close(); err != nil {
				log.Printf("⚠️ Failed to close Redis connection: %v", err)
			}
		}
	}()

	// Payment processor gateway
	gateway := provider.NewStripeGateway(
		config.GetEnv("STRIPE_SECRET_KEY", ""),
		config.GetEnv("STRIPE_WEBHOOK_SECRET", ""),
	)

	// Repositories
	txRepo := repositories.NewTransactionRepository(repositories.DB)
	earningRepo := repositories.NewEarningRepository(repositories.DB)
	refundRepo := repositories.NewRefundRepository(repositories.DB)
	disputeRepo := repositories.NewDisputeRepository(repositories.DB)
	receiptRepo := repositories.NewReceiptRepository(repositories.DB)
	eventRepo := repositories.NewEventRepository(repositories.DB)
	userRepo := repositories.NewUserRepository(repositories.DB)
	listingRepo := repositories.NewListingRepository(repositories.DB)

	// Services
	ledgerSvc := ledger.NewService(txRepo)
	earningsSvc := earnings.NewService(earningRepo, repositories.CacheService)
	receiptSvc := receipt.NewService(receiptRepo)
	disputeSvc := dispute.NewService(disputeRepo, ledgerSvc, earningsSvc)

	checkoutSvc := checkout.NewService(userRepo, listingRepo, ledgerSvc, gateway, checkout.Config{
		CommissionRate: config.GetFloatEnv("COMMISSION_RATE", 0.15),
		CallTimeout:    config.GetDurationEnv("PROCESSOR_CALL_TIMEOUT", 10*time.Second),
	})

	refundSvc := refund.NewService(refundRepo, ledgerSvc, earningsSvc, gateway, refund.Config{
		CallTimeout: config.GetDurationEnv("PROCESSOR_CALL_TIMEOUT", 10*time.Second),
	})

	processor := settlement.NewProcessor(
		gateway, ledgerSvc, earningsSvc, receiptSvc, disputeSvc, eventRepo,
		repositories.CacheService,
		settlement.Config{
			MaxOrphanRetries: config.GetIntEnv("EVENT_ORPHAN_RETRIES", 3),
			OrphanRetryDelay: config.GetDurationEnv("EVENT_ORPHAN_RETRY_DELAY", 200*time.Millisecond),
		},
	)

	h := &handlers.Handlers{
		Checkout:    handlers.NewCheckoutHandler(checkoutSvc),
		Webhook:     handlers.NewWebhookHandler(processor),
		Earnings:    handlers.NewEarningsHandler(earningsSvc, repositories.CacheService),
		Transaction: handlers.NewTransactionHandler(ledgerSvc, receiptSvc),
		Refund:      handlers.NewRefundHandler(refundSvc, ledgerSvc),
		Dispute:     handlers.NewDisputeHandler(disputeSvc),
		Admin:       handlers.NewAdminHandler(eventRepo),
	}

	// Create Fiber app
	app := fiber.New()

	// CORS middleware
	app.Use(cors.New(cors.Config{
		AllowOrigins:     config.GetEnv("CORS_ORIGINS", "http://localhost:5173"),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Stripe-Signature",
		AllowMethods:     "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowCredentials: true,
	}))

	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Purchases hit the payment processor; keep abusive clients off it.
	app.Use("/api/purchase", limiter.New(limiter.Config{
		Max:        20,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(429).JSON(fiber.Map{
				"error": "Too many requests. Please try again later.",
			})
		},
	}))

	// Routes
	handlers.SetupRoutes(app, h)

	// Start server
	log.Fatal(app.Listen(":" + config.GetEnv("PORT", "3000")))
}
