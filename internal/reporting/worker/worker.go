// Package worker relays outbox rows to the analytics publisher.
package worker

import (
	"context"
	"log/slog"
	"time"

	"losflow/internal/reporting"
)

const (
	defaultInterval  = 2 * time.Second
	defaultBatchSize = 100
)

// Relay drains the outbox on a fixed interval. A failed publish leaves the
// batch pending; the next tick retries it, so delivery is at-least-once.
type Relay struct {
	store     reporting.Store
	publisher reporting.Publisher
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

type Option func(*Relay)

func WithInterval(d time.Duration) Option {
	return func(r *Relay) { r.interval = d }
}

func WithBatchSize(n int) Option {
	return func(r *Relay) { r.batchSize = n }
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) { r.logger = logger }
}

func NewRelay(store reporting.Store, publisher reporting.Publisher, opts ...Option) *Relay {
	r := &Relay{
		store:     store,
		publisher: publisher,
		interval:  defaultInterval,
		batchSize: defaultBatchSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run loops until the context is cancelled. Publish errors are logged and
// retried on the next tick rather than stopping the relay.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.Drain(ctx); err != nil {
				r.logger.ErrorContext(ctx, "outbox relay pass failed", "error", err)
			}
		}
	}
}

// Drain publishes pending batches until the outbox is empty.
func (r *Relay) Drain(ctx context.Context) error {
	for {
		events, err := r.store.PendingBatch(ctx, r.batchSize)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		if err := r.publisher.Publish(ctx, events); err != nil {
			return err
		}

		ids := make([]string, len(events))
		for i, e := range events {
			ids[i] = e.EventID
		}
		if err := r.store.MarkPublished(ctx, ids); err != nil {
			return err
		}
		r.logger.DebugContext(ctx, "outbox batch published", "count", len(events))
	}
}
