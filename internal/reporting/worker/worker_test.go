package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"losflow/internal/reporting"
	"losflow/internal/reporting/outbox"
)

type capturingPublisher struct {
	batches [][]reporting.StatusChanged
	fail    error
}

func (p *capturingPublisher) Publish(ctx context.Context, events []reporting.StatusChanged) error {
	if p.fail != nil {
		return p.fail
	}
	p.batches = append(p.batches, events)
	return nil
}

func newEvent(losID string) reporting.StatusChanged {
	return reporting.StatusChanged{
		EventID:    uuid.NewString(),
		LosID:      losID,
		From:       "draft",
		To:         "pb_submitted",
		OccurredAt: time.Now(),
	}
}

func TestDrainPublishesAndMarks(t *testing.T) {
	store := outbox.NewMemory()
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, newEvent("LOS-1")))
	require.NoError(t, store.Append(ctx, newEvent("LOS-2")))

	pub := &capturingPublisher{}
	relay := NewRelay(store, pub)

	require.NoError(t, relay.Drain(ctx))
	require.Len(t, pub.batches, 1)
	assert.Len(t, pub.batches[0], 2)

	pending, err := store.PendingBatch(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestDrainChunksByBatchSize(t *testing.T) {
	store := outbox.NewMemory()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(ctx, newEvent("LOS-1")))
	}

	pub := &capturingPublisher{}
	relay := NewRelay(store, pub, WithBatchSize(2))

	require.NoError(t, relay.Drain(ctx))
	require.Len(t, pub.batches, 3)
	assert.Len(t, pub.batches[2], 1)
}

func TestDrainLeavesBatchPendingOnPublishFailure(t *testing.T) {
	store := outbox.NewMemory()
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, newEvent("LOS-1")))

	pub := &capturingPublisher{fail: errors.New("broker down")}
	relay := NewRelay(store, pub)

	require.Error(t, relay.Drain(ctx))

	pending, err := store.PendingBatch(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1, "failed batch must stay pending for the next tick")
}

func TestRunStopsOnContextCancel(t *testing.T) {
	store := outbox.NewMemory()
	pub := &capturingPublisher{}
	relay := NewRelay(store, pub, WithInterval(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("relay did not stop after cancellation")
	}
}
