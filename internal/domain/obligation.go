package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ObligationStatus represents the settlement state of an obligation
type ObligationStatus string

const (
	ObligationStatusPending ObligationStatus = "pending"
	ObligationStatusPaid    ObligationStatus = "paid"
)

// Obligation represents money owed by a participant for a session. Owned by
// the session-management system; this core only reads pending obligations
// and transitions one to paid, or annotates it. It never creates or removes
// obligations.
type Obligation struct {
	ID             uuid.UUID
	Amount         decimal.Decimal
	OwingParty     string
	CorrelationTag *string
	Status         ObligationStatus
	Notes          *string
	PaidAt         *time.Time
	CreatedAt      time.Time
}

// Validate ensures the obligation adheres to domain rules
func (o *Obligation) Validate() error {
	if o.OwingParty == "" {
		return errors.New("obligation must have an owing party")
	}

	if o.Amount.IsNegative() {
		return errors.New("obligation amount must not be negative")
	}

	if o.Status != ObligationStatusPending && o.Status != ObligationStatusPaid {
		return errors.New("obligation status must be pending or paid")
	}

	return nil
}
