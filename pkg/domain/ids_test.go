package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "losflow/pkg/domain-errors"
)

// TestParseApplicationID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs".
func TestParseApplicationID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseApplicationID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseApplicationID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseApplicationID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseApplicationID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, ApplicationID(validUUID), id)
	})
}

// TestParseLosID validates trust-boundary rules for externally supplied LOS IDs.
func TestParseLosID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"empty string", "", true},
		{"whitespace only", "   ", true},
		{"oversized input", strings.Repeat("a", 65), true},
		{"typical los id", "LOS-1a2b3c4d", false},
		{"trims surrounding whitespace", " LOS-1a2b3c4d ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLosID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, strings.TrimSpace(tt.input), got.String())
		})
	}
}

// TestClosedEnums verifies the enum allowlists reject values outside the closed sets.
func TestClosedEnums(t *testing.T) {
	t.Run("department", func(t *testing.T) {
		for _, valid := range []string{"pb", "SPU", "cops", "eamvu", "ciu", "risk", "compliance"} {
			_, err := ParseDepartment(valid)
			require.NoError(t, err, valid)
		}
		_, err := ParseDepartment("frontdesk")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("action", func(t *testing.T) {
		for _, valid := range []string{"submit", "approve", "reject", "assign", "return", "escalate"} {
			_, err := ParseAction(valid)
			require.NoError(t, err, valid)
		}
		_, err := ParseAction("complete")
		require.Error(t, err)
	})

	t.Run("product type", func(t *testing.T) {
		for _, valid := range []string{
			"cashplus", "autoloan", "creditcard_classic", "creditcard_platinum",
			"sme_asaan", "commercial_vehicle", "ameendrive",
		} {
			_, err := ParseProductType(valid)
			require.NoError(t, err, valid)
		}
		_, err := ParseProductType("mortgage")
		require.Error(t, err)
	})

	// Fixtures and callers pass the constants' wire values; every constant
	// must parse back to itself.
	t.Run("product constants round-trip", func(t *testing.T) {
		for _, p := range []ProductType{
			ProductCashPlus, ProductAutoLoan, ProductCreditCardClassic,
			ProductCreditCardPlatinum, ProductSmeAsaan,
			ProductCommercialVehicle, ProductAmeenDrive,
		} {
			parsed, err := ParseProductType(p.String())
			require.NoError(t, err, p)
			assert.Equal(t, p, parsed)
		}
	})

	t.Run("escalation target", func(t *testing.T) {
		_, err := ParseEscalationTarget("risk")
		require.NoError(t, err)
		_, err = ParseEscalationTarget("risk_and_compliance")
		require.NoError(t, err)
		_, err = ParseEscalationTarget("legal")
		require.Error(t, err)
	})
}
