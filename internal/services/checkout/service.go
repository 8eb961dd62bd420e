// Package checkout initiates purchases: it prices the listing, computes
// the commission split, opens the payment intent with the processor and
// records the pending transaction.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	domainerrors "bazaar/internal/errors"
	"bazaar/internal/provider"
	"bazaar/internal/repositories"
	"bazaar/internal/services/commission"
	"bazaar/internal/services/ledger"

	"github.com/google/uuid"
)

// Config carries the commission rate and the outbound call bounds.
type Config struct {
	CommissionRate float64
	CallTimeout    time.Duration
	MaxAttempts    int
	RetryDelay     time.Duration
}

// PurchaseResult is returned to the buyer's client: the local transaction
// id plus the client secret used to confirm the payment browser-side.
type PurchaseResult struct {
	TransactionID uint   `json:"transaction_id"`
	ClientSecret  string `json:"client_secret"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	PlatformFee   int64  `json:"platform_fee"`
}

// Service is the purchase initiation contract.
type Service interface {
	InitiatePurchase(ctx context.Context, buyerID, listingID uint) (*PurchaseResult, error)
}

type service struct {
	users    repositories.UserRepository
	listings repositories.ListingRepository
	ledger   ledger.Service
	gateway  provider.Gateway
	cfg      Config
}

// NewService creates a checkout service.
func NewService(
	users repositories.UserRepository,
	listings repositories.ListingRepository,
	ledgerSvc ledger.Service,
	gateway provider.Gateway,
	cfg Config,
) Service {
	if users == nil {
		panic("user repository is required")
	}
	if listings == nil {
		panic("listing repository is required")
	}
	if ledgerSvc == nil {
		panic("ledger service is required")
	}
	if gateway == nil {
		panic("payment gateway is required")
	}
	if cfg.CommissionRate <= 0 {
		cfg.CommissionRate = commission.DefaultRate
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 10 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	return &service{
		users:    users,
		listings: listings,
		ledger:   ledgerSvc,
		gateway:  gateway,
		cfg:      cfg,
	}
}

// InitiatePurchase opens a payment intent for a listing and records the
// pending transaction keyed on the intent id. The settlement processor
// finishes the purchase when the processor's notification arrives.
func (s *service) InitiatePurchase(ctx context.Context, buyerID, listingID uint) (*PurchaseResult, error) {
	buyer, err := s.users.FindByID(buyerID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: unknown buyer", domainerrors.ErrValidation)
		}
		return nil, err
	}

	listing, err := s.listings.FindByID(listingID)
	if err != nil {
		if errors.Is(err, repositories.ErrListingNotFound) {
			return nil, fmt.Errorf("%w: unknown listing", domainerrors.ErrValidation)
		}
		return nil, err
	}
	if !listing.Active {
		return nil, fmt.Errorf("%w: listing is not for sale", domainerrors.ErrValidation)
	}
	if listing.CreatorID == buyer.ID {
		return nil, fmt.Errorf("%w: creators cannot buy their own listings", domainerrors.ErrValidation)
	}
	if listing.Price <= 0 {
		return nil, domainerrors.ErrInvalidAmount
	}

	fee, revenue, err := commission.Split(listing.Price, s.cfg.CommissionRate)
	if err != nil {
		return nil, err
	}

	metadata := map[string]string{
		"buyer_id":   strconv.FormatUint(uint64(buyer.ID), 10),
		"listing_id": strconv.FormatUint(uint64(listing.ID), 10),
		"creator_id": strconv.FormatUint(uint64(listing.CreatorID), 10),
	}

	// A fresh key per call: retries inside createIntent reuse it, so the
	// processor opens at most one intent for this attempt.
	idempotencyKey := uuid.NewString()

	intent, err := s.createIntent(ctx, listing.Price, listing.Currency, idempotencyKey, metadata)
	if err != nil {
		return nil, err
	}

	tx, err := s.ledger.Create(ctx, ledger.CreateRequest{
		BuyerID:        buyer.ID,
		ListingID:      listing.ID,
		CreatorID:      listing.CreatorID,
		Amount:         listing.Price,
		Currency:       listing.Currency,
		PlatformFee:    fee,
		CreatorRevenue: revenue,
		ExternalRef:    intent.ID,
		PaymentMethod:  "card",
		Metadata: map[string]interface{}{
			"listing_title": listing.Title,
		},
	})
	if err != nil {
		// The intent exists processor-side with no local transaction. Its
		// settlement event will dead-letter, where an operator can see it.
		log.Printf("checkout: intent %s created but transaction insert failed: %v", intent.ID, err)
		return nil, err
	}

	log.Printf("checkout: transaction %d pending on intent %s for buyer %d", tx.ID, intent.ID, buyer.ID)
	return &PurchaseResult{
		TransactionID: tx.ID,
		ClientSecret:  intent.ClientSecret,
		Amount:        tx.Amount,
		Currency:      tx.Currency,
		PlatformFee:   tx.PlatformFee,
	}, nil
}

func (s *service) createIntent(ctx context.Context, amount int64, currency, idempotencyKey string, metadata map[string]string) (*provider.PaymentIntent, error) {
	var lastErr error
	for attempt := 0; attempt < s.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.cfg.RetryDelay):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
		intent, err := s.gateway.CreatePaymentIntent(callCtx, amount, currency, idempotencyKey, metadata)
		cancel()
		if err == nil {
			return intent, nil
		}
		lastErr = err
		log.Printf("checkout: intent creation attempt %d failed: %v", attempt+1, err)
	}
	return nil, fmt.Errorf("%w: %v", domainerrors.ErrExternalProcessor, lastErr)
}
