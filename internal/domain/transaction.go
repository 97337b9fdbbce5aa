package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType classifies the shape of a parsed payment email
type TransactionType string

const (
	TransactionTypePaymentSent     TransactionType = "payment_sent"
	TransactionTypePaymentReceived TransactionType = "payment_received"
	TransactionTypeRequestSent     TransactionType = "request_sent"
	TransactionTypeRequestReceived TransactionType = "request_received"
)

// MatchMethod records how a transaction was linked to an obligation
type MatchMethod string

const (
	MatchMethodTag        MatchMethod = "tag_match"
	MatchMethodAmountName MatchMethod = "amount_name_match"
)

// AccountHolderName is the sentinel display name used for the account holder
// receiving the forwarded emails.
const AccountHolderName = "You"

// Transaction represents a payment transaction parsed from a forwarded
// notification email. Immutable once recorded; the match fields are set at
// most once by the reconciler.
type Transaction struct {
	ID              uuid.UUID
	Type            TransactionType
	Amount          decimal.Decimal
	SenderName      string
	RecipientName   string
	Note            *string
	CorrelationTag  *string
	EmailSubject    string
	EmailFrom       string
	TransactionDate *time.Time
	RawSource       []byte

	MatchedObligationID *uuid.UUID
	MatchMethod         *MatchMethod
	ReviewRequired      bool

	CreatedAt time.Time
}

// CounterpartyName returns the display name of the party that is not the
// account holder.
func (t *Transaction) CounterpartyName() string {
	if t.SenderName == AccountHolderName {
		return t.RecipientName
	}
	return t.SenderName
}

// Validate ensures the transaction adheres to domain rules
// Returns an error if validation fails
func (t *Transaction) Validate() error {
	switch t.Type {
	case TransactionTypePaymentSent,
		TransactionTypePaymentReceived,
		TransactionTypeRequestSent,
		TransactionTypeRequestReceived:
	default:
		return errors.New("transaction type must be payment_sent, payment_received, request_sent or request_received")
	}

	if t.Amount.IsNegative() {
		return errors.New("transaction amount must not be negative")
	}

	if t.SenderName == "" || t.RecipientName == "" {
		return errors.New("transaction must have sender and recipient names")
	}

	if t.MatchMethod != nil {
		if *t.MatchMethod != MatchMethodTag && *t.MatchMethod != MatchMethodAmountName {
			return errors.New("match method must be tag_match or amount_name_match")
		}
		if t.MatchedObligationID == nil {
			return errors.New("matched transaction must reference an obligation ID")
		}
	}

	return nil
}
