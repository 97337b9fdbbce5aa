package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestObligationValidate_Valid(t *testing.T) {
	obligation := &Obligation{
		ID:         uuid.New(),
		Amount:     decimal.RequireFromString("16.00"),
		OwingParty: "Mike Berkman",
		Status:     ObligationStatusPending,
	}
	assert.NoError(t, obligation.Validate())
}

func TestObligationValidate_MissingOwingParty(t *testing.T) {
	obligation := &Obligation{
		ID:     uuid.New(),
		Amount: decimal.RequireFromString("16.00"),
		Status: ObligationStatusPending,
	}
	assert.Error(t, obligation.Validate())
}

func TestObligationValidate_InvalidStatus(t *testing.T) {
	obligation := &Obligation{
		ID:         uuid.New(),
		Amount:     decimal.RequireFromString("16.00"),
		OwingParty: "Mike Berkman",
		Status:     "cancelled",
	}
	assert.Error(t, obligation.Validate())
}
