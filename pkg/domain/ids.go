// Package domain holds value types shared across the workflow core: typed
// identifiers and the closed enums parsed at trust boundaries.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "losflow/pkg/domain-errors"
)

// ApplicationID is the opaque, stable primary key of an application row.
// Distinct from the LOS ID, which is the external-facing identifier used on
// department dashboards.
type ApplicationID uuid.UUID

// NewApplicationID generates a fresh application ID.
func NewApplicationID() ApplicationID {
	return ApplicationID(uuid.New())
}

// ParseApplicationID constructs an ApplicationID from external input.
// IDs must be valid, non-nil UUIDs; anything else is rejected at the boundary.
func ParseApplicationID(s string) (ApplicationID, error) {
	if strings.TrimSpace(s) == "" {
		return ApplicationID{}, dErrors.New(dErrors.CodeInvalidInput, "application id cannot be empty")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return ApplicationID{}, dErrors.New(dErrors.CodeInvalidInput, "application id must be a valid UUID")
	}
	if parsed == uuid.Nil {
		return ApplicationID{}, dErrors.New(dErrors.CodeInvalidInput, "application id cannot be the nil UUID")
	}
	return ApplicationID(parsed), nil
}

// IsNil reports whether the ID is the zero UUID.
func (id ApplicationID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}

// String returns the canonical UUID string.
func (id ApplicationID) String() string {
	return uuid.UUID(id).String()
}

// LosID is the external loan-application identifier shared with dashboards and
// downstream reporting. Opaque here; only non-emptiness is enforced.
type LosID string

// ParseLosID validates an externally supplied LOS ID.
func ParseLosID(s string) (LosID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "los id cannot be empty")
	}
	if len(s) > 64 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "los id must be 64 characters or less")
	}
	return LosID(s), nil
}

func (l LosID) String() string {
	return string(l)
}
