package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"losflow/internal/workflow/models"
	"losflow/internal/workflow/visibility"
	id "losflow/pkg/domain"
	"losflow/pkg/platform/sentinel"
	txcontext "losflow/pkg/platform/tx"
)

// Postgres persists application records in PostgreSQL. One row per
// application; Execute wraps SELECT ... FOR UPDATE and the UPDATE in a single
// transaction so validate, mutate and any in-transaction side writes (the
// reporting outbox) commit or roll back together.
type Postgres struct {
	db          *sql.DB
	lockTimeout time.Duration
}

// NewPostgres constructs a PostgreSQL-backed application store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db, lockTimeout: DefaultLockTimeout}
}

// WithLockTimeout overrides the row lock timeout.
func (s *Postgres) WithLockTimeout(d time.Duration) *Postgres {
	s.lockTimeout = d
	return s
}

// Schema creates the applications table. Tests and dev bootstrap call this;
// production applies the same DDL through migrations.
const Schema = `
CREATE TABLE IF NOT EXISTS applications (
	id UUID PRIMARY KEY,
	los_id TEXT NOT NULL UNIQUE,
	product_type TEXT NOT NULL,
	status TEXT NOT NULL,
	cops_submitted BOOLEAN NOT NULL DEFAULT FALSE,
	eavmu_submitted BOOLEAN NOT NULL DEFAULT FALSE,
	risk_resolve_comment TEXT,
	compliance_resolve_comment TEXT,
	escalated_from TEXT,
	spu_checklist JSONB NOT NULL DEFAULT '{}'::jsonb,
	spu_checklist_completed_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_applications_status ON applications (status);
`

// EnsureSchema applies the table DDL.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure applications schema: %w", err)
	}
	return nil
}

const applicationColumns = `id, los_id, product_type, status,
	cops_submitted, eavmu_submitted,
	risk_resolve_comment, compliance_resolve_comment, escalated_from,
	spu_checklist, spu_checklist_completed_at, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, app *models.Application) error {
	checklist, err := json.Marshal(app.SpuChecklist)
	if err != nil {
		return fmt.Errorf("marshal checklist: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO applications (`+applicationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		app.ID.String(), app.LosID.String(), app.ProductType.String(), app.Status.String(),
		app.CopsSubmitted, app.EavmuSubmitted,
		app.RiskResolveComment, app.ComplianceResolveComment, nullStatus(app.EscalatedFrom),
		checklist, app.SpuChecklistCompletedAt, app.CreatedAt, app.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert application: %w", err)
	}
	return nil
}

func (s *Postgres) FindByLosID(ctx context.Context, losID id.LosID) (*models.Application, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE los_id = $1`, losID.String())
	app, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find application by los id: %w", err)
	}
	return app, nil
}

func (s *Postgres) List(ctx context.Context, pred visibility.Predicate) ([]*models.Application, error) {
	clause, args := pred.Where()
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE `+clause+` ORDER BY created_at`, args...)
	if err != nil {
		return nil, fmt.Errorf("list queue for %s: %w", pred.Department, err)
	}
	defer rows.Close()

	var apps []*models.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan queue row: %w", err)
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate queue rows: %w", err)
	}
	return apps, nil
}

func (s *Postgres) Execute(ctx context.Context, losID id.LosID, validate Validate, mutate Mutate, inTx InTx) (app *models.Application, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin submit transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Bound the FOR UPDATE wait so contention surfaces as a retryable Busy
	// instead of a hung request. SET LOCAL scopes it to this transaction.
	timeout := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
	if _, err = tx.ExecContext(ctx, timeout); err != nil {
		return nil, fmt.Errorf("set lock timeout: %w", err)
	}

	row := tx.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE los_id = $1 FOR UPDATE`, losID.String())
	app, err = scanApplication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "lock_not_available" {
			return nil, sentinel.ErrBusy
		}
		return nil, fmt.Errorf("lock application row: %w", err)
	}

	if validate != nil {
		if err = validate(app); err != nil {
			return nil, err
		}
	}
	if mutate != nil {
		mutate(app)
	}

	checklist, err := json.Marshal(app.SpuChecklist)
	if err != nil {
		return nil, fmt.Errorf("marshal checklist: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE applications SET
			status = $2,
			cops_submitted = $3,
			eavmu_submitted = $4,
			risk_resolve_comment = $5,
			compliance_resolve_comment = $6,
			escalated_from = $7,
			spu_checklist = $8,
			spu_checklist_completed_at = $9,
			updated_at = $10
		WHERE los_id = $1`,
		app.LosID.String(), app.Status.String(),
		app.CopsSubmitted, app.EavmuSubmitted,
		app.RiskResolveComment, app.ComplianceResolveComment, nullStatus(app.EscalatedFrom),
		checklist, app.SpuChecklistCompletedAt, app.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update application row: %w", err)
	}

	if inTx != nil {
		if err = inTx(txcontext.WithTx(ctx, tx), app); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit submit transaction: %w", err)
	}
	return app, nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(r rowScanner) (*models.Application, error) {
	var (
		rawID        string
		rawLos       string
		rawProduct   string
		rawStatus    string
		rawEscalated sql.NullString
		checklist    []byte
		app          models.Application
	)
	err := r.Scan(
		&rawID, &rawLos, &rawProduct, &rawStatus,
		&app.CopsSubmitted, &app.EavmuSubmitted,
		&app.RiskResolveComment, &app.ComplianceResolveComment, &rawEscalated,
		&checklist, &app.SpuChecklistCompletedAt, &app.CreatedAt, &app.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	appID, err := id.ParseApplicationID(rawID)
	if err != nil {
		return nil, err
	}
	app.ID = appID
	app.LosID = id.LosID(rawLos)
	app.ProductType = id.ProductType(rawProduct)

	status, err := models.ParseStatus(rawStatus)
	if err != nil {
		return nil, err
	}
	app.Status = status

	if rawEscalated.Valid {
		from, err := models.ParseStatus(rawEscalated.String)
		if err != nil {
			return nil, err
		}
		app.EscalatedFrom = &from
	}

	app.SpuChecklist = models.NewChecklist()
	if len(checklist) > 0 {
		if err := json.Unmarshal(checklist, &app.SpuChecklist); err != nil {
			return nil, fmt.Errorf("unmarshal checklist: %w", err)
		}
	}
	return &app, nil
}

func nullStatus(s *models.Status) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: s.String(), Valid: true}
}
