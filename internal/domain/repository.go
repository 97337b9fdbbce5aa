package domain

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by repositories when no row matches the lookup
var ErrNotFound = errors.New("not found")

// MatchState is a query-side view of a transaction's reconciliation outcome
type MatchState string

const (
	MatchStateUnmatched MatchState = "unmatched"
	MatchStateMatched   MatchState = "matched"
	MatchStateReview    MatchState = "review"
)

// TransactionFilter narrows transaction queries. Zero-valued fields are
// ignored.
type TransactionFilter struct {
	CorrelationTag string
	Amount         *decimal.Decimal
	SenderName     string
	MatchState     MatchState
}

// TransactionRepository defines the interface for transaction persistence operations
type TransactionRepository interface {
	// Create persists a new transaction record
	Create(ctx context.Context, tx *Transaction) error

	// GetByID retrieves a transaction by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)

	// List retrieves transactions matching the filter, newest first
	List(ctx context.Context, filter TransactionFilter) ([]*Transaction, error)

	// Count returns the number of transactions matching the filter
	Count(ctx context.Context, filter TransactionFilter) (int, error)

	// AttachMatch records the reconciliation outcome on a transaction.
	// Called at most once per transaction.
	AttachMatch(ctx context.Context, txID, obligationID uuid.UUID, method MatchMethod, reviewRequired bool) error
}

// ObligationRepository defines the interface for obligation lookups and the
// status transitions this core is allowed to perform
type ObligationRepository interface {
	// GetByCorrelationTag retrieves the obligation carrying the exact tag.
	// Returns ErrNotFound when no obligation carries it.
	GetByCorrelationTag(ctx context.Context, tag string) (*Obligation, error)

	// ListPendingByAmount retrieves pending obligations whose amount is
	// within epsilon of the given amount, in creation order
	ListPendingByAmount(ctx context.Context, amount, epsilon decimal.Decimal) ([]*Obligation, error)

	// SettlePending transitions an obligation from pending to paid.
	// Returns false when the obligation was not pending anymore; the
	// transition must be atomic so two racing settlements cannot both
	// succeed.
	SettlePending(ctx context.Context, id uuid.UUID) (bool, error)

	// Annotate appends a note to an obligation without touching its status
	Annotate(ctx context.Context, id uuid.UUID, note string) error
}
