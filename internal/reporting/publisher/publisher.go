// Package publisher delivers status-change events to the analytics Kafka
// topic. Delivery is at-least-once: the relay worker only marks outbox rows
// published after ProduceSync succeeds, so consumers must dedupe on event_id.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"losflow/internal/reporting"
)

// DefaultTopic is the analytics stream for workflow status changes.
const DefaultTopic = "losflow.status-changes"

// Kafka publishes status changes via franz-go.
type Kafka struct {
	client *kgo.Client
	topic  string
}

// NewKafka builds a publisher over an existing client. The caller owns the
// client lifecycle.
func NewKafka(client *kgo.Client, topic string) *Kafka {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Kafka{client: client, topic: topic}
}

// Connect dials the brokers and returns a ready publisher.
func Connect(brokers []string, topic string) (*Kafka, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("connect kafka producer: %w", err)
	}
	return NewKafka(client, topic), nil
}

// Publish produces the batch synchronously, keyed by LOS ID so one
// application's history stays ordered within a partition.
func (k *Kafka) Publish(ctx context.Context, events []reporting.StatusChanged) error {
	records := make([]*kgo.Record, 0, len(events))
	for _, event := range events {
		value, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("marshal status change %s: %w", event.EventID, err)
		}
		records = append(records, &kgo.Record{
			Topic: k.topic,
			Key:   []byte(event.LosID),
			Value: value,
		})
	}
	if err := k.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce status changes: %w", err)
	}
	return nil
}

// Close flushes and releases the underlying client.
func (k *Kafka) Close() {
	k.client.Close()
}
