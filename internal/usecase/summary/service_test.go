package summary

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
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

func TestGetMatchSummary(t *testing.T) {
	ctx := context.Background()
	mockTxRepo := new(MockTransactionRepository)

	service := NewService(mockTxRepo)

	mockTxRepo.On("Count", ctx, domain.TransactionFilter{}).Return(10, nil)
	mockTxRepo.On("Count", ctx, domain.TransactionFilter{MatchState: domain.MatchStateMatched}).Return(4, nil)
	mockTxRepo.On("Count", ctx, domain.TransactionFilter{MatchState: domain.MatchStateReview}).Return(2, nil)
	mockTxRepo.On("Count", ctx, domain.TransactionFilter{MatchState: domain.MatchStateUnmatched}).Return(4, nil)

	result, err := service.GetMatchSummary(ctx)

	require.NoError(t, err)
	assert.Equal(t, 10, result.Total)
	assert.Equal(t, 4, result.AutoSettled)
	assert.Equal(t, 2, result.InReview)
	assert.Equal(t, 4, result.Unmatched)
	mockTxRepo.AssertExpectations(t)
}

func TestGetMatchSummary_CountFailure(t *testing.T) {
	ctx := context.Background()
	mockTxRepo := new(MockTransactionRepository)

	service := NewService(mockTxRepo)

	mockTxRepo.On("Count", ctx, domain.TransactionFilter{}).Return(0, errors.New("connection reset"))

	result, err := service.GetMatchSummary(ctx)

	require.Error(t, err)
	assert.Nil(t, result)
}
