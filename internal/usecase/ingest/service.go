package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dinkup/dinkup-backend/internal/domain"
	"github.com/dinkup/dinkup-backend/internal/usecase/parser"
	"github.com/dinkup/dinkup-backend/internal/usecase/reconciler"
)

// Result is the outcome of ingesting one email payload. Transaction is nil
// when the email did not classify as a transaction.
type Result struct {
	Transaction *domain.Transaction
	Outcome     reconciler.Outcome
	Ignored     bool
}

// Service turns inbound email payloads into persisted, reconciled
// transaction records
type Service struct {
	TransactionRepo domain.TransactionRepository
	Reconciler      *reconciler.Service
}

// NewService creates a new ingest Service instance
func NewService(transactionRepo domain.TransactionRepository, rec *reconciler.Service) *Service {
	return &Service{
		TransactionRepo: transactionRepo,
		Reconciler:      rec,
	}
}

// IngestEmail parses one email payload, persists the transaction record and
// reconciles it against outstanding obligations.
// Logic:
//  1. Parse. Emails matching none of the subject shapes are discarded
//     without a record; that is a filter, not an error.
//  2. Persist unconditionally, before any matching, so a downstream failure
//     never loses the raw transaction. A persistence failure is fatal for
//     the invocation.
//  3. Reconcile. An obligation-update failure is surfaced alongside the
//     already-recorded transaction rather than silently swallowed.
//
// Invocations for different emails may run concurrently; the pending->paid
// transition guard lives in the obligation repository.
func (s *Service) IngestEmail(ctx context.Context, payload parser.EmailPayload) (*Result, error) {
	parsed, ok := parser.Parse(payload)
	if !ok {
		return &Result{Ignored: true}, nil
	}

	rawSource, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize raw payload: %w", err)
	}

	tx := &domain.Transaction{
		ID:              uuid.New(),
		Type:            parsed.Type,
		Amount:          parsed.Amount,
		SenderName:      parsed.SenderName,
		RecipientName:   parsed.RecipientName,
		Note:            parsed.Note,
		CorrelationTag:  parsed.CorrelationTag,
		EmailSubject:    parsed.EmailSubject,
		EmailFrom:       parsed.EmailFrom,
		TransactionDate: parsed.TransactionDate,
		RawSource:       rawSource,
		CreatedAt:       time.Now(),
	}

	if err := tx.Validate(); err != nil {
		return nil, err
	}

	if err := s.TransactionRepo.Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to persist transaction: %w", err)
	}

	outcome, err := s.Reconciler.Reconcile(ctx, tx)
	if err != nil {
		// The record survives; only the match state is lost
		return &Result{Transaction: tx, Outcome: reconciler.OutcomeUnmatched}, err
	}

	return &Result{Transaction: tx, Outcome: outcome}, nil
}
