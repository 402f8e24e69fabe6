// Package store persists application workflow records.
//
// Both implementations honor the same contract: Execute holds exclusive access
// to a single row (a per-row lock in memory, SELECT ... FOR UPDATE in
// PostgreSQL) across validate and mutate, so two concurrent department actions
// against the same application serialize and the second observes the first's
// committed flags. Locks never span more than one application row; unrelated
// applications proceed concurrently.
//
// Stores return sentinel errors (pkg/platform/sentinel); the service layer
// translates them into coded domain errors.
package store

import (
	"context"
	"time"

	"losflow/internal/workflow/models"
	"losflow/internal/workflow/visibility"
	id "losflow/pkg/domain"
)

// DefaultLockTimeout bounds how long Execute waits for a contended row before
// surfacing sentinel.ErrBusy. Callers treat Busy as retryable.
const DefaultLockTimeout = 2 * time.Second

// Validate inspects the locked row and may veto the operation.
type Validate func(app *models.Application) error

// Mutate applies the approved changes to the locked row.
type Mutate func(app *models.Application)

// InTx runs inside the same transactional boundary as the row write, with a
// context carrying the transaction. Used for writes that must commit with the
// row, such as the reporting outbox append. May be nil.
type InTx func(ctx context.Context, app *models.Application) error

// ApplicationStore is the persistence contract the workflow engine depends on.
type ApplicationStore interface {
	// Create persists a new application record.
	// Returns sentinel.ErrConflict when the ID or LOS ID already exists.
	Create(ctx context.Context, app *models.Application) error

	// FindByLosID loads a record without locking it.
	// Returns sentinel.ErrNotFound for unknown LOS IDs.
	FindByLosID(ctx context.Context, losID id.LosID) (*models.Application, error)

	// List returns the records matching a queue predicate, oldest first.
	List(ctx context.Context, pred visibility.Predicate) ([]*models.Application, error)

	// Execute runs validate, then mutate, then inTx while holding exclusive
	// access to the row, and persists the result atomically. If validate or
	// inTx returns an error nothing is written. Returns sentinel.ErrBusy when
	// the row lock cannot be acquired within the lock timeout.
	Execute(ctx context.Context, losID id.LosID, validate Validate, mutate Mutate, inTx InTx) (*models.Application, error)
}
