package reconciler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dinkup/dinkup-backend/internal/domain"
)

// MockTransactionRepository is a mock implementation of TransactionRepository for testing
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) List(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) Count(ctx context.Context, filter domain.TransactionFilter) (int, error) {
	args := m.Called(ctx, filter)
	return args.Int(0), args.Error(1)
}

func (m *MockTransactionRepository) AttachMatch(ctx context.Context, txID, obligationID uuid.UUID, method domain.MatchMethod, reviewRequired bool) error {
	args := m.Called(ctx, txID, obligationID, method, reviewRequired)
	return args.Error(0)
}

// MockObligationRepository is a mock implementation of ObligationRepository for testing
type MockObligationRepository struct {
	mock.Mock
}

func (m *MockObligationRepository) GetByCorrelationTag(ctx context.Context, tag string) (*domain.Obligation, error) {
	args := m.Called(ctx, tag)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Obligation), args.Error(1)
}

func (m *MockObligationRepository) ListPendingByAmount(ctx context.Context, amount, epsilon decimal.Decimal) ([]*domain.Obligation, error) {
	args := m.Called(ctx, amount, epsilon)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Obligation), args.Error(1)
}

func (m *MockObligationRepository) SettlePending(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockObligationRepository) Annotate(ctx context.Context, id uuid.UUID, note string) error {
	args := m.Called(ctx, id, note)
	return args.Error(0)
}

func newTestTransaction(amount string, tag *string, senderName string) *domain.Transaction {
	return &domain.Transaction{
		ID:             uuid.New(),
		Type:           domain.TransactionTypePaymentReceived,
		Amount:         decimal.RequireFromString(amount),
		SenderName:     senderName,
		RecipientName:  domain.AccountHolderName,
		CorrelationTag: tag,
		EmailSubject:   senderName + " paid you $" + amount,
		EmailFrom:      "venmo@venmo.com",
		CreatedAt:      time.Now(),
	}
}

func TestReconcile_TagMatch_AutoSettles(t *testing.T) {
	ctx := context.Background()
	mockTxRepo := new(MockTransactionRepository)
	mockObligationRepo := new(MockObligationRepository)

	service := NewService(mockTxRepo, mockObligationRepo)

	tag := "#dinkup-abc123"
	obligation := &domain.Obligation{
		ID:             uuid.New(),
		Amount:         decimal.RequireFromString("16.00"),
		OwingParty:     "Mike Berkman",
		CorrelationTag: &tag,
		Status:         domain.ObligationStatusPending,
	}
	tx := newTestTransaction("16.00", &tag, "Mike Berkman")

	mockObligationRepo.On("GetByCorrelationTag", ctx, tag).Return(obligation, nil)
	mockObligationRepo.On("SettlePending", ctx, obligation.ID).Return(true, nil)
	mockTxRepo.On("AttachMatch", ctx, tx.ID, obligation.ID, domain.MatchMethodTag, false).Return(nil)

	outcome, err := service.Reconcile(ctx, tx)

	require.NoError(t, err)
	assert.Equal(t, OutcomeAutoSettled, outcome)
	require.NotNil(t, tx.MatchedObligationID)
	assert.Equal(t, obligation.ID, *tx.MatchedObligationID)
	require.NotNil(t, tx.MatchMethod)
	assert.Equal(t, domain.MatchMethodTag, *tx.MatchMethod)
	assert.False(t, tx.ReviewRequired)
	mockTxRepo.AssertExpectations(t)
	mockObligationRepo.AssertExpectations(t)
}

func TestReconcile_TagMatch_AmountMismatchStaysPending(t *testing.T) {
	ctx := context.Background()
	mockTxRepo := new(MockTransactionRepository)
	mockObligationRepo := new(MockObligationRepository)

	service := NewService(mockTxRepo, mockObligationRepo)

	tag := "#dinkup-abc123"
	obligation := &domain.Obligation{
		ID:             uuid.New(),
		Amount:         decimal.RequireFromString("16.00"),
		OwingParty:     "Mike Berkman",
		CorrelationTag: &tag,
		Status:         domain.ObligationStatusPending,
	}
	tx := newTestTransaction("20.00", &tag, "Mike Berkman")

	mockObligationRepo.On("GetByCorrelationTag", ctx, tag).Return(obligation, nil)

	outcome, err := service.Reconcile(ctx, tx)

	require.NoError(t, err)
	assert.Equal(t, OutcomeUnmatched, outcome)
	assert.Nil(t, tx.MatchedObligationID)
	mockObligationRepo.AssertNotCalled(t, "SettlePending", mock.Anything, mock.Anything)
	mockTxRepo.AssertNotCalled(t, "AttachMatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReconcile_TagMatch_LostRaceFallsBackToUnmatched(t *testing.T) {
	ctx := context.Background()
	mockTxRepo := new(MockTransactionRepository)
	mockObligationRepo := new(MockObligationRepository)

	service := NewService(mockTxRepo, mockObligationRepo)

	tag := "#dinkup-abc123"
	obligation := &domain.Obligation{
		ID:             uuid.New(),
		Amount:         decimal.RequireFromString("16.00"),
		OwingParty:     "Mike Berkman",
		CorrelationTag: &tag,
		Status:         domain.ObligationStatusPending,
	}
	tx := newTestTransaction("16.00", &tag, "Mike Berkman")

	mockObligationRepo.On("GetByCorrelationTag", ctx, tag).Return(obligation, nil)
	// Concurrent settlement already transitioned the obligation to paid
	mockObligationRepo.On("SettlePending", ctx, obligation.ID).Return(false, nil)

	outcome, err := service.Reconcile(ctx, tx)

	require.NoError(t, err)
	assert.Equal(t, OutcomeUnmatched, outcome)
	assert.Nil(t, tx.MatchedObligationID)
	mockTxRepo.AssertNotCalled(t, "AttachMatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReconcile_TagMatch_SettleFailureSurfaced(t *testing.T) {
	ctx := context.Background()
	mockTxRepo := new(MockTransactionRepository)
	mockObligationRepo := new(MockObligationRepository)

	service := NewService(mockTxRepo, mockObligationRepo)

	tag := "#dinkup-abc123"
	obligation := &domain.Obligation{
		ID:             uuid.New(),
		Amount:         decimal.RequireFromString("16.00"),
		OwingParty:     "Mike Berkman",
		CorrelationTag: &tag,
		Status:         domain.ObligationStatusPending,
	}
	tx := newTestTransaction("16.00", &tag, "Mike Berkman")

	mockObligationRepo.On("GetByCorrelationTag", ctx, tag).Return(obligation, nil)
	mockObligationRepo.On("SettlePending", ctx, obligation.ID).Return(false, errors.New("connection reset"))

	outcome, err := service.Reconcile(ctx, tx)

	require.Error(t, err)
	assert.Equal(t, OutcomeUnmatched, outcome)
	assert.Nil(t, tx.MatchedObligationID)
}

func TestReconcile_UnresolvedTagFallsThroughToAmountNameSearch(t *testing.T) {
	ctx := context.Background()
	mockTxRepo := new(MockTransactionRepository)
	mockObligationRepo := new(MockObligationRepository)

	service := NewService(mockTxRepo, mockObligationRepo)

	tag := "#dinkup-unknown"
	tx := newTestTransaction("16.00", &tag, "Michael Berkman")

	obligation := &domain.Obligation{
		ID:         uuid.New(),
		Amount:     decimal.RequireFromString("16.00"),
		OwingParty: "Mike Berkman",
		Status:     domain.ObligationStatusPending,
	}

	mockObligationRepo.On("GetByCorrelationTag", ctx, tag).Return(nil, domain.ErrNotFound)
	mockObligationRepo.On("ListPendingByAmount", ctx, tx.Amount, mock.Anything).Return([]*domain.Obligation{obligation}, nil)
	mockTxRepo.On("AttachMatch", ctx, tx.ID, obligation.ID, domain.MatchMethodAmountName, true).Return(nil)
	mockObligationRepo.On("Annotate", ctx, obligation.ID, mock.AnythingOfType("string")).Return(nil)

	outcome, err := service.Reconcile(ctx, tx)

	require.NoError(t, err)
	assert.Equal(t, OutcomeFlaggedForReview, outcome)
	assert.True(t, tx.ReviewRequired)
}

func TestReconcile_AmountNameMatch_FlagsForReview(t *testing.T) {
	ctx := context.Background()
	mockTxRepo := new(MockTransactionRepository)
	mockObligationRepo := new(MockObligationRepository)

	service := NewService(mockTxRepo, mockObligationRepo)

	tx := newTestTransaction("16.00", nil, "Michael Berkman")

	obligation := &domain.Obligation{
		ID:         uuid.New(),
		Amount:     decimal.RequireFromString("16.00"),
		OwingParty: "Mike Berkman",
		Status:     domain.ObligationStatusPending,
	}

	mockObligationRepo.On("ListPendingByAmount", ctx, tx.Amount, mock.Anything).Return([]*domain.Obligation{obligation}, nil)
	mockTxRepo.On("AttachMatch", ctx, tx.ID, obligation.ID, domain.MatchMethodAmountName, true).Return(nil)
	mockObligationRepo.On("Annotate", ctx, obligation.ID, mock.AnythingOfType("string")).Return(nil)

	outcome, err := service.Reconcile(ctx, tx)

	require.NoError(t, err)
	assert.Equal(t, OutcomeFlaggedForReview, outcome)
	require.NotNil(t, tx.MatchMethod)
	assert.Equal(t, domain.MatchMethodAmountName, *tx.MatchMethod)
	assert.True(t, tx.ReviewRequired)
	// Obligation status is never mutated on this path
	mockObligationRepo.AssertNotCalled(t, "SettlePending", mock.Anything, mock.Anything)
}

func TestReconcile_AmountNameMatch_FirstCandidateWins(t *testing.T) {
	ctx := context.Background()
	mockTxRepo := new(MockTransactionRepository)
	mockObligationRepo := new(MockObligationRepository)

	service := NewService(mockTxRepo, mockObligationRepo)

	tx := newTestTransaction("16.00", nil, "Mike Berkman")

	first := &domain.Obligation{
		ID:         uuid.New(),
		Amount:     decimal.RequireFromString("16.00"),
		OwingParty: "Michael Berkman",
		Status:     domain.ObligationStatusPending,
	}
	second := &domain.Obligation{
		ID:         uuid.New(),
		Amount:     decimal.RequireFromString("16.00"),
		OwingParty: "Mikey Berkman",
		Status:     domain.ObligationStatusPending,
	}

	mockObligationRepo.On("ListPendingByAmount", ctx, tx.Amount, mock.Anything).Return([]*domain.Obligation{first, second}, nil)
	mockTxRepo.On("AttachMatch", ctx, tx.ID, first.ID, domain.MatchMethodAmountName, true).Return(nil)
	mockObligationRepo.On("Annotate", ctx, first.ID, mock.AnythingOfType("string")).Return(nil)

	outcome, err := service.Reconcile(ctx, tx)

	require.NoError(t, err)
	assert.Equal(t, OutcomeFlaggedForReview, outcome)
	assert.Equal(t, first.ID, *tx.MatchedObligationID)
}

func TestReconcile_AmountNameMatch_SkipsNonMatchingNames(t *testing.T) {
	ctx := context.Background()
	mockTxRepo := new(MockTransactionRepository)
	mockObligationRepo := new(MockObligationRepository)

	service := NewService(mockTxRepo, mockObligationRepo)

	tx := newTestTransaction("16.00", nil, "Sarah Jones")

	obligation := &domain.Obligation{
		ID:         uuid.New(),
		Amount:     decimal.RequireFromString("16.00"),
		OwingParty: "Mike Berkman",
		Status:     domain.ObligationStatusPending,
	}

	mockObligationRepo.On("ListPendingByAmount", ctx, tx.Amount, mock.Anything).Return([]*domain.Obligation{obligation}, nil)

	outcome, err := service.Reconcile(ctx, tx)

	require.NoError(t, err)
	assert.Equal(t, OutcomeUnmatched, outcome)
	assert.Nil(t, tx.MatchedObligationID)
	mockTxRepo.AssertNotCalled(t, "AttachMatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReconcile_NoCandidates_Unmatched(t *testing.T) {
	ctx := context.Background()
	mockTxRepo := new(MockTransactionRepository)
	mockObligationRepo := new(MockObligationRepository)

	service := NewService(mockTxRepo, mockObligationRepo)

	tx := newTestTransaction("999.99", nil, "Unknown Person")

	mockObligationRepo.On("ListPendingByAmount", ctx, tx.Amount, mock.Anything).Return([]*domain.Obligation{}, nil)

	outcome, err := service.Reconcile(ctx, tx)

	require.NoError(t, err)
	assert.Equal(t, OutcomeUnmatched, outcome)
	assert.Nil(t, tx.MatchedObligationID)
	assert.Nil(t, tx.MatchMethod)
}

func TestReconcile_CounterpartyUsedForSentPayments(t *testing.T) {
	ctx := context.Background()
	mockTxRepo := new(MockTransactionRepository)
	mockObligationRepo := new(MockObligationRepository)

	service := NewService(mockTxRepo, mockObligationRepo)

	// Account holder paid Mike; the counterparty is the recipient
	tx := &domain.Transaction{
		ID:            uuid.New(),
		Type:          domain.TransactionTypePaymentSent,
		Amount:        decimal.RequireFromString("16.00"),
		SenderName:    domain.AccountHolderName,
		RecipientName: "Michael Berkman",
		EmailSubject:  "You paid Michael Berkman $16.00",
		EmailFrom:     "venmo@venmo.com",
		CreatedAt:     time.Now(),
	}

	obligation := &domain.Obligation{
		ID:         uuid.New(),
		Amount:     decimal.RequireFromString("16.00"),
		OwingParty: "Mike Berkman",
		Status:     domain.ObligationStatusPending,
	}

	mockObligationRepo.On("ListPendingByAmount", ctx, tx.Amount, mock.Anything).Return([]*domain.Obligation{obligation}, nil)
	mockTxRepo.On("AttachMatch", ctx, tx.ID, obligation.ID, domain.MatchMethodAmountName, true).Return(nil)
	mockObligationRepo.On("Annotate", ctx, obligation.ID, mock.AnythingOfType("string")).Return(nil)

	outcome, err := service.Reconcile(ctx, tx)

	require.NoError(t, err)
	assert.Equal(t, OutcomeFlaggedForReview, outcome)
}
