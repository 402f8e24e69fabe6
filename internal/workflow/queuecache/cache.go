// Package queuecache keeps department work queues in Redis for a short TTL.
// The cache is best-effort: a miss or a Redis outage falls through to the
// database, and every committed transition invalidates the queues it could
// have changed.
package queuecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"losflow/internal/workflow/models"
	id "losflow/pkg/domain"
)

// DefaultTTL bounds staleness when an invalidation is lost.
const DefaultTTL = 30 * time.Second

// ErrMiss reports that no cached queue exists for the department.
var ErrMiss = errors.New("queue cache miss")

type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

type Option func(*Cache)

func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) { c.logger = logger }
}

func New(client *redis.Client, opts ...Option) *Cache {
	c := &Cache{client: client, ttl: DefaultTTL, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func key(dept id.Department) string {
	return fmt.Sprintf("losflow:queue:%s", dept)
}

// Get returns the cached queue for the department, or ErrMiss.
func (c *Cache) Get(ctx context.Context, dept id.Department) ([]*models.Application, error) {
	payload, err := c.client.Get(ctx, key(dept)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("read queue cache: %w", err)
	}

	var apps []*models.Application
	if err := json.Unmarshal(payload, &apps); err != nil {
		// A stale or corrupted entry behaves like a miss.
		c.client.Del(ctx, key(dept))
		return nil, ErrMiss
	}
	return apps, nil
}

// Set stores the queue snapshot under the department key.
func (c *Cache) Set(ctx context.Context, dept id.Department, apps []*models.Application) error {
	payload, err := json.Marshal(apps)
	if err != nil {
		return fmt.Errorf("encode queue snapshot: %w", err)
	}
	if err := c.client.Set(ctx, key(dept), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("write queue cache: %w", err)
	}
	return nil
}

// Invalidate drops the cached queues for the given departments. Errors are
// logged, not returned: the TTL caps how long a stale queue can survive.
func (c *Cache) Invalidate(ctx context.Context, depts ...id.Department) {
	if len(depts) == 0 {
		return
	}
	keys := make([]string, len(depts))
	for i, d := range depts {
		keys[i] = key(d)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.WarnContext(ctx, "queue cache invalidation failed", "error", err)
	}
}
