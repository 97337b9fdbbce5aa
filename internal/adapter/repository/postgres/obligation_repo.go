package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dinkup/dinkup-backend/internal/domain"
)

// obligationRepository implements domain.ObligationRepository
type obligationRepository struct {
	db *DB
}

// NewObligationRepository creates a new obligation repository
func NewObligationRepository(db *DB) domain.ObligationRepository {
	return &obligationRepository{db: db}
}

const obligationColumns = `
	id, amount, owing_party, correlation_tag, status, notes, paid_at, created_at
`

// GetByCorrelationTag retrieves the obligation carrying the exact tag
func (r *obligationRepository) GetByCorrelationTag(ctx context.Context, tag string) (*domain.Obligation, error) {
	query := `SELECT ` + obligationColumns + ` FROM obligations WHERE correlation_tag = $1`

	obligation, err := scanObligation(r.db.QueryRowContext(ctx, query, tag))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get obligation by correlation tag: %w", err)
	}

	return obligation, nil
}

// ListPendingByAmount retrieves pending obligations whose amount is within
// epsilon of the given amount, in creation order
func (r *obligationRepository) ListPendingByAmount(ctx context.Context, amount, epsilon decimal.Decimal) ([]*domain.Obligation, error) {
	query := `
		SELECT ` + obligationColumns + `
		FROM obligations
		WHERE status = 'pending' AND ABS(amount - $1::numeric) < $2::numeric
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, amount.String(), epsilon.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list pending obligations: %w", err)
	}
	defer rows.Close()

	obligations := make([]*domain.Obligation, 0)
	for rows.Next() {
		obligation, err := scanObligation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan obligation: %w", err)
		}
		obligations = append(obligations, obligation)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate obligations: %w", err)
	}

	return obligations, nil
}

// SettlePending transitions an obligation from pending to paid.
// The status check is part of the UPDATE itself, so two transactions racing
// to settle the same obligation cannot both succeed; the loser observes
// zero affected rows.
func (r *obligationRepository) SettlePending(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE obligations
		SET status = 'paid', paid_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to settle obligation: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read settle result: %w", err)
	}

	return affected > 0, nil
}

// Annotate appends a note to an obligation without touching its status
func (r *obligationRepository) Annotate(ctx context.Context, id uuid.UUID, note string) error {
	query := `
		UPDATE obligations
		SET notes = CASE WHEN notes IS NULL OR notes = '' THEN $2 ELSE notes || E'\n' || $2 END
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, note)
	if err != nil {
		return fmt.Errorf("failed to annotate obligation: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read annotate result: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}

	return nil
}

func scanObligation(row rowScanner) (*domain.Obligation, error) {
	var (
		obligation domain.Obligation
		amountStr  string
		tag        sql.NullString
		status     string
		notes      sql.NullString
		paidAt     sql.NullTime
	)

	err := row.Scan(
		&obligation.ID,
		&amountStr,
		&obligation.OwingParty,
		&tag,
		&status,
		&notes,
		&paidAt,
		&obligation.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse amount: %w", err)
	}
	obligation.Amount = amount
	obligation.Status = domain.ObligationStatus(status)

	if tag.Valid {
		obligation.CorrelationTag = &tag.String
	}
	if notes.Valid {
		obligation.Notes = &notes.String
	}
	if paidAt.Valid {
		obligation.PaidAt = &paidAt.Time
	}

	return &obligation, nil
}
