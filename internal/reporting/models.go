// Package reporting mirrors committed status changes into the bank's
// analytics pipeline. The engine appends a StatusChanged row to the outbox
// inside the same transaction that commits the transition; a relay worker
// later publishes pending rows to Kafka. Kafka is read-only downstream — the
// applications table stays the single source of truth for current status.
package reporting

import (
	"context"
	"time"

	id "losflow/pkg/domain"
)

// StatusChanged is one committed workflow transition. Flag-only submissions
// (the "wait for the other track" case) are mirrored too, with From == To,
// because analytics tracks per-department turnaround.
type StatusChanged struct {
	EventID       string        `json:"event_id"`
	ApplicationID string        `json:"application_id"`
	LosID         string        `json:"los_id"`
	ProductType   string        `json:"product_type"`
	From          string        `json:"from"`
	To            string        `json:"to"`
	Department    id.Department `json:"department"`
	Action        string        `json:"action"`
	Actor         string        `json:"actor,omitempty"`
	OccurredAt    time.Time     `json:"occurred_at"`
}

// Store is the outbox. Append participates in the caller's transaction when
// the context carries one (pkg/platform/tx).
type Store interface {
	Append(ctx context.Context, event StatusChanged) error

	// PendingBatch returns up to limit unpublished events, oldest first.
	PendingBatch(ctx context.Context, limit int) ([]StatusChanged, error)

	// MarkPublished records that the relay delivered the events.
	MarkPublished(ctx context.Context, eventIDs []string) error
}

// Publisher delivers events to the external analytics stream.
type Publisher interface {
	Publish(ctx context.Context, events []StatusChanged) error
}
