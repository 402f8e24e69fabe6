package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"losflow/internal/reporting"
	txcontext "losflow/pkg/platform/tx"
)

// PostgresStore implements the reporting outbox over PostgreSQL. Append picks
// up the workflow submit transaction from context so the event commits or
// rolls back with the status change it mirrors.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed outbox store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Schema creates the outbox table.
const Schema = `
CREATE TABLE IF NOT EXISTS workflow_outbox (
	event_id UUID PRIMARY KEY,
	payload JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	published_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_workflow_outbox_pending ON workflow_outbox (created_at) WHERE published_at IS NULL;
`

// EnsureSchema applies the outbox DDL.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure outbox schema: %w", err)
	}
	return nil
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, event reporting.StatusChanged) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal status change: %w", err)
	}
	_, err = s.execer(ctx).ExecContext(ctx, `
		INSERT INTO workflow_outbox (event_id, payload, created_at)
		VALUES ($1, $2, $3)`,
		event.EventID, payload, event.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("append status change to outbox: %w", err)
	}
	return nil
}

func (s *PostgresStore) PendingBatch(ctx context.Context, limit int) ([]reporting.StatusChanged, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM workflow_outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("load pending outbox batch: %w", err)
	}
	defer rows.Close()

	var events []reporting.StatusChanged
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		var event reporting.StatusChanged
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, fmt.Errorf("unmarshal outbox payload: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox rows: %w", err)
	}
	return events, nil
}

func (s *PostgresStore) MarkPublished(ctx context.Context, eventIDs []string) error {
	if len(eventIDs) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE workflow_outbox SET published_at = $1
		WHERE event_id = ANY($2)`,
		time.Now(), pq.Array(eventIDs),
	)
	if err != nil {
		return fmt.Errorf("mark outbox events published: %w", err)
	}
	return nil
}
