package reconciler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dinkup/dinkup-backend/internal/domain"
	"github.com/dinkup/dinkup-backend/internal/usecase/namematch"
)

// Outcome is the terminal state a transaction reaches during reconciliation
type Outcome string

const (
	OutcomeAutoSettled      Outcome = "auto_settled"
	OutcomeFlaggedForReview Outcome = "flagged_for_review"
	OutcomeUnmatched        Outcome = "unmatched"
)

// amountEpsilon is the tolerance for amount agreement, in currency units
var amountEpsilon = decimal.NewFromFloat(0.01)

// Service decides which outstanding obligation, if any, a recorded
// transaction satisfies
type Service struct {
	TransactionRepo domain.TransactionRepository
	ObligationRepo  domain.ObligationRepository
}

// NewService creates a new reconciler Service instance
func NewService(transactionRepo domain.TransactionRepository, obligationRepo domain.ObligationRepository) *Service {
	return &Service{
		TransactionRepo: transactionRepo,
		ObligationRepo:  obligationRepo,
	}
}

// Reconcile runs the matching state machine for one recorded transaction.
// Logic:
//  1. Correlation tag present: look up the obligation carrying that exact
//     tag. Settle it only when the amounts also agree; the tag alone is
//     never enough. The pending->paid transition is conditional, so a
//     transaction losing the race to another settlement falls back to
//     unmatched instead of double-settling.
//  2. No tag (or tag unresolved): scan pending obligations with the same
//     amount for an owing party that fuzzy-matches the counterparty name.
//     The first candidate is flagged for manual review; obligation status
//     is left pending.
//  3. Otherwise the transaction stays unmatched.
//
// The transaction itself is already persisted by the caller; this method
// only attaches match state.
func (s *Service) Reconcile(ctx context.Context, tx *domain.Transaction) (Outcome, error) {
	if tx.CorrelationTag != nil {
		outcome, resolved, err := s.settleByTag(ctx, tx)
		if err != nil {
			return OutcomeUnmatched, err
		}
		if resolved {
			return outcome, nil
		}
	}

	return s.flagByAmountAndName(ctx, tx)
}

// settleByTag attempts the tag_match path. resolved=false means the tag did
// not resolve to an obligation and the amount/name path should be tried.
func (s *Service) settleByTag(ctx context.Context, tx *domain.Transaction) (Outcome, bool, error) {
	obligation, err := s.ObligationRepo.GetByCorrelationTag(ctx, *tx.CorrelationTag)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return OutcomeUnmatched, false, nil
		}
		return OutcomeUnmatched, true, fmt.Errorf("failed to resolve correlation tag: %w", err)
	}

	// Amount must agree even when the identifier matches; a tag with the
	// wrong amount is recorded unmatched for manual inspection
	if !amountsAgree(obligation.Amount, tx.Amount) {
		return OutcomeUnmatched, true, nil
	}

	settled, err := s.ObligationRepo.SettlePending(ctx, obligation.ID)
	if err != nil {
		return OutcomeUnmatched, true, fmt.Errorf("failed to settle obligation %s: %w", obligation.ID, err)
	}
	if !settled {
		// Already paid: a concurrent settlement won
		return OutcomeUnmatched, true, nil
	}

	if err := s.TransactionRepo.AttachMatch(ctx, tx.ID, obligation.ID, domain.MatchMethodTag, false); err != nil {
		return OutcomeUnmatched, true, fmt.Errorf("failed to attach tag match: %w", err)
	}

	obligationID := obligation.ID
	method := domain.MatchMethodTag
	tx.MatchedObligationID = &obligationID
	tx.MatchMethod = &method
	tx.ReviewRequired = false

	return OutcomeAutoSettled, true, nil
}

// flagByAmountAndName attempts the amount_name_match path. The first
// pending obligation found with an agreeing amount and a fuzzy-matching
// owing party is flagged; no ranking beyond discovery order.
func (s *Service) flagByAmountAndName(ctx context.Context, tx *domain.Transaction) (Outcome, error) {
	pending, err := s.ObligationRepo.ListPendingByAmount(ctx, tx.Amount, amountEpsilon)
	if err != nil {
		return OutcomeUnmatched, fmt.Errorf("failed to list pending obligations: %w", err)
	}

	counterparty := strings.ToLower(tx.CounterpartyName())

	for _, obligation := range pending {
		if !namematch.Match(strings.ToLower(obligation.OwingParty), counterparty) {
			continue
		}

		if err := s.TransactionRepo.AttachMatch(ctx, tx.ID, obligation.ID, domain.MatchMethodAmountName, true); err != nil {
			return OutcomeUnmatched, fmt.Errorf("failed to attach candidate match: %w", err)
		}

		// Advisory only: the obligation stays pending until a human confirms
		note := fmt.Sprintf("possible match: transaction %s from %q", tx.ID, tx.CounterpartyName())
		if err := s.ObligationRepo.Annotate(ctx, obligation.ID, note); err != nil {
			return OutcomeUnmatched, fmt.Errorf("failed to annotate obligation %s: %w", obligation.ID, err)
		}

		obligationID := obligation.ID
		method := domain.MatchMethodAmountName
		tx.MatchedObligationID = &obligationID
		tx.MatchMethod = &method
		tx.ReviewRequired = true

		return OutcomeFlaggedForReview, nil
	}

	return OutcomeUnmatched, nil
}

func amountsAgree(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(amountEpsilon)
}
