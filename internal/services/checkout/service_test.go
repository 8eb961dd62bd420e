package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	domainerrors "bazaar/internal/errors"
	"bazaar/internal/models"
	"bazaar/internal/provider"
	"bazaar/internal/repositories"
	"bazaar/internal/services/ledger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) FindByID(id uint) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type MockListingRepo struct {
	mock.Mock
}

func (m *MockListingRepo) FindByID(id uint) (*models.Listing, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
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

func testBuyer() *models.User {
	u := &models.User{Email: "buyer@example.com", Role: models.RoleBuyer}
	u.ID = 10
	return u
}

func testListing() *models.Listing {
	l := &models.Listing{CreatorID: 30, Title: "Icon pack", Price: 1000, Currency: "usd", Active: true}
	l.ID = 20
	return l
}

func newTestService(u *MockUserRepo, li *MockListingRepo, le *MockLedger, g *MockGateway) Service {
	return NewService(u, li, le, g, Config{
		CommissionRate: 0.15,
		CallTimeout:    time.Second,
		MaxAttempts:    2,
		RetryDelay:     time.Millisecond,
	})
}

func TestInitiatePurchase(t *testing.T) {
	users := new(MockUserRepo)
	listings := new(MockListingRepo)
	l := new(MockLedger)
	g := new(MockGateway)

	users.On("FindByID", uint(10)).Return(testBuyer(), nil)
	listings.On("FindByID", uint(20)).Return(testListing(), nil)
	g.On("CreatePaymentIntent", mock.Anything, int64(1000), "usd", mock.AnythingOfType("string"), mock.Anything).
		Return(&provider.PaymentIntent{ID: "pi_1", ClientSecret: "pi_1_secret", Status: "requires_payment_method"}, nil)
	l.On("Create", mock.Anything, mock.MatchedBy(func(req ledger.CreateRequest) bool {
		return req.ExternalRef == "pi_1" &&
			req.Amount == 1000 &&
			req.PlatformFee == 150 &&
			req.CreatorRevenue == 850 &&
			req.CreatorID == 30
	})).Return(&models.Transaction{
		ID: 1, ExternalRef: "pi_1", Amount: 1000, Currency: "usd",
		PlatformFee: 150, CreatorRevenue: 850, Status: models.TransactionStatusPending,
	}, nil)

	result, err := newTestService(users, listings, l, g).InitiatePurchase(context.Background(), 10, 20)

	require.NoError(t, err)
	assert.Equal(t, uint(1), result.TransactionID)
	assert.Equal(t, "pi_1_secret", result.ClientSecret)
	assert.Equal(t, int64(150), result.PlatformFee)
	l.AssertExpectations(t)
}

func TestInitiatePurchaseValidation(t *testing.T) {
	inactive := testListing()
	inactive.Active = false

	ownListing := testListing()
	ownListing.CreatorID = 10

	tests := []struct {
		name       string
		setupMocks func(u *MockUserRepo, li *MockListingRepo)
		wantErr    error
	}{
		{
			name: "unknown buyer",
			setupMocks: func(u *MockUserRepo, li *MockListingRepo) {
				u.On("FindByID", uint(10)).Return(nil, repositories.ErrUserNotFound)
			},
			wantErr: domainerrors.ErrValidation,
		},
		{
			name: "unknown listing",
			setupMocks: func(u *MockUserRepo, li *MockListingRepo) {
				u.On("FindByID", uint(10)).Return(testBuyer(), nil)
				li.On("FindByID", uint(20)).Return(nil, repositories.ErrListingNotFound)
			},
			wantErr: domainerrors.ErrValidation,
		},
		{
			name: "inactive listing",
			setupMocks: func(u *MockUserRepo, li *MockListingRepo) {
				u.On("FindByID", uint(10)).Return(testBuyer(), nil)
				li.On("FindByID", uint(20)).Return(inactive, nil)
			},
			wantErr: domainerrors.ErrValidation,
		},
		{
			name: "buying own listing",
			setupMocks: func(u *MockUserRepo, li *MockListingRepo) {
				u.On("FindByID", uint(10)).Return(testBuyer(), nil)
				li.On("FindByID", uint(20)).Return(ownListing, nil)
			},
			wantErr: domainerrors.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(MockUserRepo)
			listings := new(MockListingRepo)
			l := new(MockLedger)
			g := new(MockGateway)
			tt.setupMocks(users, listings)

			_, err := newTestService(users, listings, l, g).InitiatePurchase(context.Background(), 10, 20)

			assert.ErrorIs(t, err, tt.wantErr)
			g.AssertNotCalled(t, "CreatePaymentIntent", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestInitiatePurchaseProcessorDown(t *testing.T) {
	users := new(MockUserRepo)
	listings := new(MockListingRepo)
	l := new(MockLedger)
	g := new(MockGateway)

	users.On("FindByID", uint(10)).Return(testBuyer(), nil)
	listings.On("FindByID", uint(20)).Return(testListing(), nil)
	g.On("CreatePaymentIntent", mock.Anything, int64(1000), "usd", mock.AnythingOfType("string"), mock.Anything).
		Return(nil, errors.New("stripe: 503"))

	_, err := newTestService(users, listings, l, g).InitiatePurchase(context.Background(), 10, 20)

	assert.ErrorIs(t, err, domainerrors.ErrExternalProcessor)
	g.AssertNumberOfCalls(t, "CreatePaymentIntent", 2)
	l.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestInitiatePurchaseRetryReusesIdempotencyKey(t *testing.T) {
	users := new(MockUserRepo)
	listings := new(MockListingRepo)
	l := new(MockLedger)
	g := new(MockGateway)

	users.On("FindByID", uint(10)).Return(testBuyer(), nil)
	listings.On("FindByID", uint(20)).Return(testListing(), nil)

	var keys []string
	g.On("CreatePaymentIntent", mock.Anything, int64(1000), "usd", mock.AnythingOfType("string"), mock.Anything).
		Run(func(args mock.Arguments) {
			keys = append(keys, args.String(3))
		}).
		Return(nil, errors.New("timeout")).Once()
	g.On("CreatePaymentIntent", mock.Anything, int64(1000), "usd", mock.AnythingOfType("string"), mock.Anything).
		Run(func(args mock.Arguments) {
			keys = append(keys, args.String(3))
		}).
		Return(&provider.PaymentIntent{ID: "pi_1", ClientSecret: "pi_1_secret"}, nil).Once()
	l.On("Create", mock.Anything, mock.Anything).Return(&models.Transaction{ID: 1}, nil)

	_, err := newTestService(users, listings, l, g).InitiatePurchase(context.Background(), 10, 20)

	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Equal(t, keys[0], keys[1], "retry must reuse the idempotency key")
}
