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

// transactionRepository implements domain.TransactionRepository
type transactionRepository struct {
	db *DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *DB) domain.TransactionRepository {
	return &transactionRepository{db: db}
}

const transactionColumns = `
	id, type, amount, sender_name, recipient_name, note, correlation_tag,
	email_subject, email_from, transaction_date, raw_source,
	matched_obligation_id, match_method, review_required, created_at
`

// Create persists a new transaction record
func (r *transactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	var matchMethod interface{}
	if tx.MatchMethod != nil {
		matchMethod = string(*tx.MatchMethod)
	}

	_, err := r.db.ExecContext(ctx, query,
		tx.ID,
		string(tx.Type),
		tx.Amount.String(),
		tx.SenderName,
		tx.RecipientName,
		tx.Note,
		tx.CorrelationTag,
		tx.EmailSubject,
		tx.EmailFrom,
		tx.TransactionDate,
		tx.RawSource,
		tx.MatchedObligationID,
		matchMethod,
		tx.ReviewRequired,
		tx.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a transaction by its ID
func (r *transactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get transaction by ID: %w", err)
	}

	return tx, nil
}

// List retrieves transactions matching the filter, newest first
func (r *transactionRepository) List(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	where, args := buildTransactionFilter(filter)
	query := `SELECT ` + transactionColumns + ` FROM transactions` + where + ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	transactions := make([]*domain.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return transactions, nil
}

// Count returns the number of transactions matching the filter
func (r *transactionRepository) Count(ctx context.Context, filter domain.TransactionFilter) (int, error) {
	where, args := buildTransactionFilter(filter)
	query := `SELECT COUNT(*) FROM transactions` + where

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	return count, nil
}

// AttachMatch records the reconciliation outcome on a transaction
func (r *transactionRepository) AttachMatch(ctx context.Context, txID, obligationID uuid.UUID, method domain.MatchMethod, reviewRequired bool) error {
	query := `
		UPDATE transactions
		SET matched_obligation_id = $2, match_method = $3, review_required = $4
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, txID, obligationID, string(method), reviewRequired)
	if err != nil {
		return fmt.Errorf("failed to attach match: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read attach match result: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}

	return nil
}

func buildTransactionFilter(filter domain.TransactionFilter) (string, []interface{}) {
	conditions := make([]string, 0)
	args := make([]interface{}, 0)

	addCondition := func(condition string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if filter.CorrelationTag != "" {
		addCondition("correlation_tag = $%d", filter.CorrelationTag)
	}
	if filter.Amount != nil {
		addCondition("amount = $%d", filter.Amount.String())
	}
	if filter.SenderName != "" {
		addCondition("sender_name = $%d", filter.SenderName)
	}

	switch filter.MatchState {
	case domain.MatchStateUnmatched:
		conditions = append(conditions, "matched_obligation_id IS NULL")
	case domain.MatchStateMatched:
		conditions = append(conditions, "matched_obligation_id IS NOT NULL AND review_required = FALSE")
	case domain.MatchStateReview:
		conditions = append(conditions, "review_required = TRUE")
	}

	if len(conditions) == 0 {
		return "", args
	}

	where := " WHERE " + conditions[0]
	for _, condition := range conditions[1:] {
		where += " AND " + condition
	}
	return where, args
}

// rowScanner covers both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var (
		tx           domain.Transaction
		txType       string
		amountStr    string
		note         sql.NullString
		tag          sql.NullString
		txDate       sql.NullTime
		obligationID sql.NullString
		matchMethod  sql.NullString
	)

	err := row.Scan(
		&tx.ID,
		&txType,
		&amountStr,
		&tx.SenderName,
		&tx.RecipientName,
		&note,
		&tag,
		&tx.EmailSubject,
		&tx.EmailFrom,
		&txDate,
		&tx.RawSource,
		&obligationID,
		&matchMethod,
		&tx.ReviewRequired,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	tx.Type = domain.TransactionType(txType)

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse amount: %w", err)
	}
	tx.Amount = amount

	if note.Valid {
		tx.Note = &note.String
	}
	if tag.Valid {
		tx.CorrelationTag = &tag.String
	}
	if txDate.Valid {
		tx.TransactionDate = &txDate.Time
	}
	if obligationID.Valid {
		parsed, err := uuid.Parse(obligationID.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse matched_obligation_id: %w", err)
		}
		tx.MatchedObligationID = &parsed
	}
	if matchMethod.Valid {
		method := domain.MatchMethod(matchMethod.String)
		tx.MatchMethod = &method
	}

	return &tx, nil
}
