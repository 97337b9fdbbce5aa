package summary

import (
	"context"
	"fmt"

	"github.com/dinkup/dinkup-backend/internal/domain"
)

// MatchSummary represents transaction counts by reconciliation state
type MatchSummary struct {
	Total       int
	AutoSettled int
	InReview    int
	Unmatched   int
}

// Service aggregates stored transactions for inspection by the
// session-management UI
type Service struct {
	TransactionRepo domain.TransactionRepository
}

// NewService creates a new summary Service instance
func NewService(transactionRepo domain.TransactionRepository) *Service {
	return &Service{TransactionRepo: transactionRepo}
}

// GetMatchSummary counts transactions in each reconciliation state
func (s *Service) GetMatchSummary(ctx context.Context) (*MatchSummary, error) {
	total, err := s.TransactionRepo.Count(ctx, domain.TransactionFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to count transactions: %w", err)
	}

	settled, err := s.TransactionRepo.Count(ctx, domain.TransactionFilter{MatchState: domain.MatchStateMatched})
	if err != nil {
		return nil, fmt.Errorf("failed to count settled transactions: %w", err)
	}

	review, err := s.TransactionRepo.Count(ctx, domain.TransactionFilter{MatchState: domain.MatchStateReview})
	if err != nil {
		return nil, fmt.Errorf("failed to count review transactions: %w", err)
	}

	unmatched, err := s.TransactionRepo.Count(ctx, domain.TransactionFilter{MatchState: domain.MatchStateUnmatched})
	if err != nil {
		return nil, fmt.Errorf("failed to count unmatched transactions: %w", err)
	}

	return &MatchSummary{
		Total:       total,
		AutoSettled: settled,
		InReview:    review,
		Unmatched:   unmatched,
	}, nil
}
