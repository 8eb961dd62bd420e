// Package earnings owns the creator earnings ledger: the payable share of
// each succeeded transaction and its hold/release/forfeit lifecycle.
package earnings

import (
	"context"
	"errors"
	"fmt"
	"time"

	domainerrors "bazaar/internal/errors"
	"bazaar/internal/models"
	"bazaar/internal/repositories"
)

// Service errors
var (
	ErrNotFound      = errors.New("earning not found")
	ErrAlreadyExists = errors.New("earning already exists for transaction")
	ErrInvalidStatus = errors.New("operation not allowed for current earning status")
)

// Summary periods accepted by TotalsForCreator.
const (
	PeriodDay   = "day"
	PeriodWeek  = "week"
	PeriodMonth = "month"
	PeriodYear  = "year"
	PeriodAll   = "all"
)

// CacheInvalidator drops cached summaries after an earning mutation.
type CacheInvalidator interface {
	InvalidateEarnings(ctx context.Context, creatorID uint) error
}

type noopInvalidator struct{}

func (noopInvalidator) InvalidateEarnings(context.Context, uint) error { return nil }

// Service is the earnings ledger contract. Every mutation is an atomic
// compare-and-set keyed on the expected prior status; a concurrent change
// surfaces as ErrConcurrentModification.
type Service interface {
	Open(ctx context.Context, txID, creatorID, listingID uint, amount, platformFee int64) (*models.Earning, error)
	Hold(ctx context.Context, id uint) error
	Release(ctx context.Context, id uint) error
	Zero(ctx context.Context, id uint) error
	MarkPaid(ctx context.Context, id uint, payoutDate time.Time) error
	FindByTransaction(ctx context.Context, txID uint) (*models.Earning, error)
	HoldByTransaction(ctx context.Context, txID uint) error
	ReleaseByTransaction(ctx context.Context, txID uint) error
	ZeroByTransaction(ctx context.Context, txID uint) error
	TotalsForCreator(ctx context.Context, creatorID uint, period string) (*models.EarningTotals, error)
	TopListings(ctx context.Context, creatorID uint, period string, limit int) ([]models.ListingSales, error)
}

type service struct {
	repo  repositories.EarningRepository
	cache CacheInvalidator
	now   func() time.Time
}

// NewService creates an earnings ledger service. The cache invalidator is
// optional.
func NewService(repo repositories.EarningRepository, cache CacheInvalidator) Service {
	if repo == nil {
		panic("earning repository is required")
	}
	if cache == nil {
		cache = noopInvalidator{}
	}
	return &service{
		repo:  repo,
		cache: cache,
		now:   time.Now,
	}
}

// Open creates the single earning for a succeeded transaction. The unique
// transaction index enforces the 1:1 invariant; a duplicate returns
// ErrAlreadyExists so retries after a partial failure stay safe.
func (s *service) Open(ctx context.Context, txID, creatorID, listingID uint, amount, platformFee int64) (*models.Earning, error) {
	if amount <= 0 || platformFee < 0 || platformFee > amount {
		return nil, fmt.Errorf("%w: bad earning split", domainerrors.ErrValidation)
	}

	e := &models.Earning{
		TransactionID: txID,
		CreatorID:     creatorID,
		ListingID:     listingID,
		Amount:        amount,
		PlatformFee:   platformFee,
		NetAmount:     amount - platformFee,
		Status:        models.EarningStatusAvailable,
	}

	if err := s.repo.Create(e); err != nil {
		if errors.Is(err, repositories.ErrEarningExists) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to open earning: %w", err)
	}

	s.invalidate(ctx, creatorID)
	return e, nil
}

// Hold parks an earning while a dispute is open. Holding an already held
// earning is a no-op.
func (s *service) Hold(ctx context.Context, id uint) error {
	e, err := s.find(id)
	if err != nil {
		return err
	}

	switch e.Status {
	case models.EarningStatusPending:
		return nil
	case models.EarningStatusPaid:
		return ErrInvalidStatus
	}

	if err := s.cas(e.ID, models.EarningStatusAvailable, models.EarningStatusPending, nil); err != nil {
		return err
	}
	s.invalidate(ctx, e.CreatorID)
	return nil
}

// Release returns a held earning to the payable pool. Only legal from
// pending, and never for a forfeited (zeroed) earning.
func (s *service) Release(ctx context.Context, id uint) error {
	e, err := s.find(id)
	if err != nil {
		return err
	}

	if e.Status != models.EarningStatusPending {
		return ErrInvalidStatus
	}
	if e.NetAmount == 0 {
		// Forfeited earnings stay forfeited.
		return ErrInvalidStatus
	}

	if err := s.cas(e.ID, models.EarningStatusPending, models.EarningStatusAvailable, nil); err != nil {
		return err
	}
	s.invalidate(ctx, e.CreatorID)
	return nil
}

// Zero permanently forfeits the payout: net amount drops to zero and the
// earning stays pending forever. Used on full refunds and lost disputes.
// Zeroing an already zeroed earning is a no-op.
func (s *service) Zero(ctx context.Context, id uint) error {
	e, err := s.find(id)
	if err != nil {
		return err
	}

	if e.Status == models.EarningStatusPaid {
		return ErrInvalidStatus
	}
	if e.NetAmount == 0 && e.Status == models.EarningStatusPending {
		return nil
	}

	extra := map[string]interface{}{"net_amount": 0}
	if err := s.cas(e.ID, e.Status, models.EarningStatusPending, extra); err != nil {
		return err
	}
	s.invalidate(ctx, e.CreatorID)
	return nil
}

// MarkPaid settles an available earning to the creator.
func (s *service) MarkPaid(ctx context.Context, id uint, payoutDate time.Time) error {
	e, err := s.find(id)
	if err != nil {
		return err
	}

	if e.Status != models.EarningStatusAvailable {
		return ErrInvalidStatus
	}

	extra := map[string]interface{}{"payout_date": payoutDate}
	if err := s.cas(e.ID, models.EarningStatusAvailable, models.EarningStatusPaid, extra); err != nil {
		return err
	}
	s.invalidate(ctx, e.CreatorID)
	return nil
}

func (s *service) FindByTransaction(ctx context.Context, txID uint) (*models.Earning, error) {
	e, err := s.repo.FindByTransactionID(txID)
	if err != nil {
		if errors.Is(err, repositories.ErrEarningNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (s *service) HoldByTransaction(ctx context.Context, txID uint) error {
	e, err := s.FindByTransaction(ctx, txID)
	if err != nil {
		return err
	}
	return s.Hold(ctx, e.ID)
}

func (s *service) ReleaseByTransaction(ctx context.Context, txID uint) error {
	e, err := s.FindByTransaction(ctx, txID)
	if err != nil {
		return err
	}
	return s.Release(ctx, e.ID)
}

func (s *service) ZeroByTransaction(ctx context.Context, txID uint) error {
	e, err := s.FindByTransaction(ctx, txID)
	if err != nil {
		return err
	}
	return s.Zero(ctx, e.ID)
}

func (s *service) TotalsForCreator(ctx context.Context, creatorID uint, period string) (*models.EarningTotals, error) {
	since, err := s.periodStart(period)
	if err != nil {
		return nil, err
	}
	return s.repo.TotalsForCreator(creatorID, since)
}

func (s *service) TopListings(ctx context.Context, creatorID uint, period string, limit int) ([]models.ListingSales, error) {
	since, err := s.periodStart(period)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 5
	}
	return s.repo.TopListings(creatorID, since, limit)
}

func (s *service) periodStart(period string) (time.Time, error) {
	now := s.now()
	switch period {
	case PeriodDay:
		return now.AddDate(0, 0, -1), nil
	case PeriodWeek:
		return now.AddDate(0, 0, -7), nil
	case PeriodMonth:
		return now.AddDate(0, -1, 0), nil
	case PeriodYear:
		return now.AddDate(-1, 0, 0), nil
	case PeriodAll, "":
		return time.Time{}, nil
	default:
		return time.Time{}, fmt.Errorf("%w: unknown period %q", domainerrors.ErrValidation, period)
	}
}

func (s *service) find(id uint) (*models.Earning, error) {
	e, err := s.repo.FindByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrEarningNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (s *service) cas(id uint, expected, next string, extra map[string]interface{}) error {
	if err := s.repo.CompareAndSetStatus(id, expected, next, extra); err != nil {
		if errors.Is(err, repositories.ErrStatusConflict) {
			return domainerrors.ErrConcurrentModification
		}
		return err
	}
	return nil
}

func (s *service) invalidate(ctx context.Context, creatorID uint) {
	// Cache invalidation is best effort; a stale summary expires on TTL.
	_ = s.cache.InvalidateEarnings(ctx, creatorID)
}
