package refund

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	domainerrors "bazaar/internal/errors"
	"bazaar/internal/models"
	"bazaar/internal/provider"
	"bazaar/internal/services/ledger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRefundRepo struct {
	mock.Mock
}

func (m *MockRefundRepo) Create(r *models.Refund) error {
	args := m.Called(r)
	if args.Error(0) == nil {
		r.ID = 7
	}
	return args.Error(0)
}

func (m *MockRefundRepo) Save(r *models.Refund) error {
	return m.Called(r).Error(0)
}

func (m *MockRefundRepo) FindByID(id uint) (*models.Refund, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Refund), args.Error(1)
}

func (m *MockRefundRepo) ListByTransaction(txID uint) ([]models.Refund, error) {
	args := m.Called(txID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Refund), args.Error(1)
}

func (m *MockRefundRepo) SumSucceededByTransaction(txID uint) (int64, error) {
	args := m.Called(txID)
	return args.Get(0).(int64), args.Error(1)
}

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) Create(ctx context.Context, req ledger.CreateRequest) (*models.Transaction, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockLedger) FindByID(ctx context.Context, id uint) (*models.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockLedger) FindByExternalRef(ctx context.Context, ref string) (*models.Transaction, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockLedger) Transition(ctx context.Context, id uint, next string) (*models.Transaction, error) {
	args := m.Called(ctx, id, next)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockLedger) ListForCreator(ctx context.Context, creatorID uint, limit, offset int) ([]models.Transaction, int64, error) {
	args := m.Called(ctx, creatorID, limit, offset)
	return nil, 0, args.Error(2)
}

func (m *MockLedger) ListForBuyer(ctx context.Context, buyerID uint, limit, offset int) ([]models.Transaction, int64, error) {
	args := m.Called(ctx, buyerID, limit, offset)
	return nil, 0, args.Error(2)
}

type MockEarnings struct {
	mock.Mock
}

func (m *MockEarnings) Open(ctx context.Context, txID, creatorID, listingID uint, amount, fee int64) (*models.Earning, error) {
	args := m.Called(ctx, txID, creatorID, listingID, amount, fee)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Earning), args.Error(1)
}

func (m *MockEarnings) Hold(ctx context.Context, id uint) error     { return m.Called(ctx, id).Error(0) }
func (m *MockEarnings) Release(ctx context.Context, id uint) error  { return m.Called(ctx, id).Error(0) }
func (m *MockEarnings) Zero(ctx context.Context, id uint) error     { return m.Called(ctx, id).Error(0) }
func (m *MockEarnings) MarkPaid(ctx context.Context, id uint, payoutDate time.Time) error {
	return m.Called(ctx, id, payoutDate).Error(0)
}

func (m *MockEarnings) FindByTransaction(ctx context.Context, txID uint) (*models.Earning, error) {
	args := m.Called(ctx, txID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Earning), args.Error(1)
}

func (m *MockEarnings) HoldByTransaction(ctx context.Context, txID uint) error {
	return m.Called(ctx, txID).Error(0)
}

func (m *MockEarnings) ReleaseByTransaction(ctx context.Context, txID uint) error {
	return m.Called(ctx, txID).Error(0)
}

func (m *MockEarnings) ZeroByTransaction(ctx context.Context, txID uint) error {
	return m.Called(ctx, txID).Error(0)
}

func (m *MockEarnings) TotalsForCreator(ctx context.Context, creatorID uint, period string) (*models.EarningTotals, error) {
	args := m.Called(ctx, creatorID, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EarningTotals), args.Error(1)
}

func (m *MockEarnings) TopListings(ctx context.Context, creatorID uint, period string, limit int) ([]models.ListingSales, error) {
	args := m.Called(ctx, creatorID, period, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ListingSales), args.Error(1)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreatePaymentIntent(ctx context.Context, amount int64, currency, idempotencyKey string, metadata map[string]string) (*provider.PaymentIntent, error) {
	args := m.Called(ctx, amount, currency, idempotencyKey, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.PaymentIntent), args.Error(1)
}

func (m *MockGateway) GetPaymentIntent(ctx context.Context, id string) (*provider.PaymentIntent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.PaymentIntent), args.Error(1)
}

func (m *MockGateway) CreateRefund(ctx context.Context, intentID string, amount int64, reason, idempotencyKey string) (*provider.RefundResult, error) {
	args := m.Called(ctx, intentID, amount, reason, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.RefundResult), args.Error(1)
}

func (m *MockGateway) VerifyAndParseEvent(payload []byte, signature string) (*provider.Event, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Event), args.Error(1)
}

func succeededTx() *models.Transaction {
	return &models.Transaction{
		ID: 1, ExternalRef: "pi_1", BuyerID: 10, ListingID: 20, CreatorID: 30,
		Amount: 1000, Currency: "usd", PlatformFee: 150, CreatorRevenue: 850,
		Status: models.TransactionStatusSucceeded,
	}
}

func newTestService(repo *MockRefundRepo, l *MockLedger, e *MockEarnings, g *MockGateway) Service {
	return NewService(repo, l, e, g, Config{
		CallTimeout: time.Second,
		MaxAttempts: 2,
		RetryDelay:  time.Millisecond,
	})
}

func TestFullRefund(t *testing.T) {
	repo := new(MockRefundRepo)
	l := new(MockLedger)
	e := new(MockEarnings)
	g := new(MockGateway)

	tx := succeededTx()
	l.On("FindByID", mock.Anything, uint(1)).Return(tx, nil)
	repo.On("SumSucceededByTransaction", uint(1)).Return(int64(0), nil)
	repo.On("Create", mock.AnythingOfType("*models.Refund")).Return(nil)
	g.On("CreateRefund", mock.Anything, "pi_1", int64(1000), "requested_by_customer", "refund-1-7").
		Return(&provider.RefundResult{ID: "re_1", Status: "succeeded"}, nil)
	repo.On("Save", mock.AnythingOfType("*models.Refund")).Return(nil)
	l.On("Transition", mock.Anything, uint(1), models.TransactionStatusRefunded).Return(tx, nil)
	e.On("ZeroByTransaction", mock.Anything, uint(1)).Return(nil)

	refund, err := newTestService(repo, l, e, g).Refund(context.Background(), 1, 0, "requested_by_customer", 99)

	require.NoError(t, err)
	assert.Equal(t, int64(1000), refund.Amount)
	assert.Equal(t, models.RefundStatusSucceeded, refund.Status)
	assert.Equal(t, "re_1", refund.ExternalRef)
	e.AssertCalled(t, "ZeroByTransaction", mock.Anything, uint(1))
	repo.AssertExpectations(t)
	l.AssertExpectations(t)
}

func TestPartialRefundLeavesEarning(t *testing.T) {
	repo := new(MockRefundRepo)
	l := new(MockLedger)
	e := new(MockEarnings)
	g := new(MockGateway)

	tx := succeededTx()
	l.On("FindByID", mock.Anything, uint(1)).Return(tx, nil)
	repo.On("SumSucceededByTransaction", uint(1)).Return(int64(0), nil)
	repo.On("Create", mock.AnythingOfType("*models.Refund")).Return(nil)
	g.On("CreateRefund", mock.Anything, "pi_1", int64(400), "duplicate", "refund-1-7").
		Return(&provider.RefundResult{ID: "re_2", Status: "succeeded"}, nil)
	repo.On("Save", mock.AnythingOfType("*models.Refund")).Return(nil)
	l.On("Transition", mock.Anything, uint(1), models.TransactionStatusPartiallyRefunded).Return(tx, nil)

	refund, err := newTestService(repo, l, e, g).Refund(context.Background(), 1, 400, "duplicate", 99)

	require.NoError(t, err)
	assert.Equal(t, int64(400), refund.Amount)
	e.AssertNotCalled(t, "ZeroByTransaction", mock.Anything, mock.Anything)
}

func TestSecondPartialRefundCompletesTheGross(t *testing.T) {
	repo := new(MockRefundRepo)
	l := new(MockLedger)
	e := new(MockEarnings)
	g := new(MockGateway)

	tx := succeededTx()
	tx.Status = models.TransactionStatusPartiallyRefunded
	l.On("FindByID", mock.Anything, uint(1)).Return(tx, nil)
	repo.On("SumSucceededByTransaction", uint(1)).Return(int64(400), nil)
	repo.On("Create", mock.AnythingOfType("*models.Refund")).Return(nil)
	g.On("CreateRefund", mock.Anything, "pi_1", int64(600), "", "refund-1-7").
		Return(&provider.RefundResult{ID: "re_3", Status: "succeeded"}, nil)
	repo.On("Save", mock.AnythingOfType("*models.Refund")).Return(nil)
	l.On("Transition", mock.Anything, uint(1), models.TransactionStatusRefunded).Return(tx, nil)
	e.On("ZeroByTransaction", mock.Anything, uint(1)).Return(nil)

	refund, err := newTestService(repo, l, e, g).Refund(context.Background(), 1, 0, "", 99)

	require.NoError(t, err)
	assert.Equal(t, int64(600), refund.Amount, "default amount is the unrefunded remainder")
	e.AssertExpectations(t)
}

func TestRefundValidation(t *testing.T) {
	tests := []struct {
		name    string
		status  string
		prior   int64
		amount  int64
		wantErr error
	}{
		{"pending transaction", models.TransactionStatusPending, 0, 100, domainerrors.ErrInvalidTransition},
		{"already refunded", models.TransactionStatusRefunded, 1000, 100, domainerrors.ErrInvalidTransition},
		{"disputed transaction", models.TransactionStatusDisputed, 0, 100, domainerrors.ErrInvalidTransition},
		{"negative amount", models.TransactionStatusSucceeded, 0, -5, domainerrors.ErrInvalidAmount},
		{"over the gross", models.TransactionStatusSucceeded, 0, 1001, domainerrors.ErrInvalidAmount},
		{"over the remainder", models.TransactionStatusPartiallyRefunded, 400, 700, domainerrors.ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRefundRepo)
			l := new(MockLedger)
			e := new(MockEarnings)
			g := new(MockGateway)

			tx := succeededTx()
			tx.Status = tt.status
			l.On("FindByID", mock.Anything, uint(1)).Return(tx, nil)
			repo.On("SumSucceededByTransaction", uint(1)).Return(tt.prior, nil)

			_, err := newTestService(repo, l, e, g).Refund(context.Background(), 1, tt.amount, "", 99)

			assert.ErrorIs(t, err, tt.wantErr)
			g.AssertNotCalled(t, "CreateRefund", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestProcessorFailureMarksRefundFailed(t *testing.T) {
	repo := new(MockRefundRepo)
	l := new(MockLedger)
	e := new(MockEarnings)
	g := new(MockGateway)

	l.On("FindByID", mock.Anything, uint(1)).Return(succeededTx(), nil)
	repo.On("SumSucceededByTransaction", uint(1)).Return(int64(0), nil)
	repo.On("Create", mock.AnythingOfType("*models.Refund")).Return(nil)
	g.On("CreateRefund", mock.Anything, "pi_1", int64(1000), "", "refund-1-7").
		Return(nil, errors.New("stripe: connection reset"))
	repo.On("Save", mock.MatchedBy(func(r *models.Refund) bool {
		return r.Status == models.RefundStatusFailed
	})).Return(nil)

	_, err := newTestService(repo, l, e, g).Refund(context.Background(), 1, 0, "", 99)

	assert.ErrorIs(t, err, domainerrors.ErrExternalProcessor)
	g.AssertNumberOfCalls(t, "CreateRefund", 2)
	l.AssertNotCalled(t, "Transition", mock.Anything, mock.Anything, mock.Anything)
	repo.AssertExpectations(t)
}

// The concurrency property needs real interleaving, so this test runs
// against small stateful fakes instead of testify mocks.

type fakeLedger struct {
	mu sync.Mutex
	tx *models.Transaction
}

func (l *fakeLedger) Create(ctx context.Context, req ledger.CreateRequest) (*models.Transaction, error) {
	return nil, errors.New("not implemented")
}

func (l *fakeLedger) FindByID(_ context.Context, id uint) (*models.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.tx == nil || l.tx.ID != id {
		return nil, ledger.ErrNotFound
	}
	cp := *l.tx
	return &cp, nil
}

func (l *fakeLedger) FindByExternalRef(_ context.Context, ref string) (*models.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.tx == nil || l.tx.ExternalRef != ref {
		return nil, ledger.ErrNotFound
	}
	cp := *l.tx
	return &cp, nil
}

func (l *fakeLedger) Transition(_ context.Context, id uint, next string) (*models.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.tx == nil || l.tx.ID != id {
		return nil, ledger.ErrNotFound
	}
	if !ledger.CanTransition(l.tx.Status, next) {
		return nil, fmt.Errorf("%w: %s -> %s", domainerrors.ErrInvalidTransition, l.tx.Status, next)
	}
	l.tx.Status = next
	cp := *l.tx
	return &cp, nil
}

func (l *fakeLedger) ListForCreator(_ context.Context, _ uint, _, _ int) ([]models.Transaction, int64, error) {
	return nil, 0, nil
}

func (l *fakeLedger) ListForBuyer(_ context.Context, _ uint, _, _ int) ([]models.Transaction, int64, error) {
	return nil, 0, nil
}

type fakeRefundRepo struct {
	mu      sync.Mutex
	refunds []*models.Refund
}

func (r *fakeRefundRepo) Create(refund *models.Refund) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	refund.ID = uint(len(r.refunds) + 1)
	r.refunds = append(r.refunds, refund)
	return nil
}

func (r *fakeRefundRepo) Save(*models.Refund) error { return nil }

func (r *fakeRefundRepo) FindByID(id uint) (*models.Refund, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, refund := range r.refunds {
		if refund.ID == id {
			return refund, nil
		}
	}
	return nil, errors.New("refund not found")
}

func (r *fakeRefundRepo) ListByTransaction(txID uint) ([]models.Refund, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Refund
	for _, refund := range r.refunds {
		if refund.TransactionID == txID {
			out = append(out, *refund)
		}
	}
	return out, nil
}

func (r *fakeRefundRepo) SumSucceededByTransaction(txID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum int64
	for _, refund := range r.refunds {
		if refund.TransactionID == txID && refund.Status == models.RefundStatusSucceeded {
			sum += refund.Amount
		}
	}
	return sum, nil
}

type fakeGateway struct {
	mu       sync.Mutex
	returned int64
	calls    int
}

func (g *fakeGateway) CreateRefund(_ context.Context, _ string, amount int64, _, _ string) (*provider.RefundResult, error) {
	// Latency widens the window between balance check and record.
	time.Sleep(10 * time.Millisecond)
	g.mu.Lock()
	defer g.mu.Unlock()
	g.returned += amount
	g.calls++
	return &provider.RefundResult{ID: fmt.Sprintf("re_%d", g.calls), Status: "succeeded"}, nil
}

func (g *fakeGateway) CreatePaymentIntent(context.Context, int64, string, string, map[string]string) (*provider.PaymentIntent, error) {
	return nil, errors.New("not implemented")
}

func (g *fakeGateway) GetPaymentIntent(context.Context, string) (*provider.PaymentIntent, error) {
	return nil, errors.New("not implemented")
}

func (g *fakeGateway) VerifyAndParseEvent([]byte, string) (*provider.Event, error) {
	return nil, errors.New("not implemented")
}

func TestConcurrentFullRefunds(t *testing.T) {
	l := &fakeLedger{tx: succeededTx()}
	repo := &fakeRefundRepo{}
	g := &fakeGateway{}
	e := new(MockEarnings)
	e.On("ZeroByTransaction", mock.Anything, uint(1)).Return(nil)

	svc := NewService(repo, l, e, g, Config{
		CallTimeout: time.Second,
		MaxAttempts: 1,
		RetryDelay:  time.Millisecond,
	})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Refund(context.Background(), 1, 0, "requested_by_customer", 99)
		}(i)
	}
	wg.Wait()

	var succeeded int
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			// The loser observes the already-refunded transaction and is
			// rejected before reaching the processor.
			assert.ErrorIs(t, err, domainerrors.ErrInvalidTransition)
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one of the concurrent refunds may win")
	assert.Equal(t, 1, g.calls, "the processor must be charged at most once")
	assert.Equal(t, int64(1000), g.returned, "returned money must not exceed the gross")

	sum, err := repo.SumSucceededByTransaction(1)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), sum, "succeeded refund rows must not exceed the gross")
}

func TestProcessorRetrySucceeds(t *testing.T) {
	repo := new(MockRefundRepo)
	l := new(MockLedger)
	e := new(MockEarnings)
	g := new(MockGateway)

	tx := succeededTx()
	l.On("FindByID", mock.Anything, uint(1)).Return(tx, nil)
	repo.On("SumSucceededByTransaction", uint(1)).Return(int64(0), nil)
	repo.On("Create", mock.AnythingOfType("*models.Refund")).Return(nil)
	g.On("CreateRefund", mock.Anything, "pi_1", int64(1000), "", "refund-1-7").
		Return(nil, errors.New("timeout")).Once()
	g.On("CreateRefund", mock.Anything, "pi_1", int64(1000), "", "refund-1-7").
		Return(&provider.RefundResult{ID: "re_4", Status: "succeeded"}, nil).Once()
	repo.On("Save", mock.AnythingOfType("*models.Refund")).Return(nil)
	l.On("Transition", mock.Anything, uint(1), models.TransactionStatusRefunded).Return(tx, nil)
	e.On("ZeroByTransaction", mock.Anything, uint(1)).Return(nil)

	refund, err := newTestService(repo, l, e, g).Refund(context.Background(), 1, 0, "", 99)

	require.NoError(t, err)
	assert.Equal(t, "re_4", refund.ExternalRef)
	g.AssertExpectations(t)
}
