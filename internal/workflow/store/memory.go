package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"losflow/internal/workflow/models"
	"losflow/internal/workflow/visibility"
	id "losflow/pkg/domain"
	"losflow/pkg/platform/sentinel"
)

// InMemory keeps application records in process memory. Used by unit tests and
// local development; production runs the PostgreSQL store.
//
// Concurrency: a global mutex guards the maps, and each row carries its own
// lock (a one-slot channel, so acquisition can time out). Execute holds the
// row lock across validate/mutate/inTx and writes the clone back only on
// success, giving the same at-most-one-commit-per-invocation guarantee as the
// SQL transaction.
type InMemory struct {
	mu          sync.RWMutex
	rows        map[id.LosID]*models.Application
	byID        map[id.ApplicationID]id.LosID
	locks       map[id.LosID]chan struct{}
	lockTimeout time.Duration
}

// NewInMemory creates an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{
		rows:        make(map[id.LosID]*models.Application),
		byID:        make(map[id.ApplicationID]id.LosID),
		locks:       make(map[id.LosID]chan struct{}),
		lockTimeout: DefaultLockTimeout,
	}
}

// WithLockTimeout overrides the row lock timeout; tests use short values to
// exercise Busy handling.
func (s *InMemory) WithLockTimeout(d time.Duration) *InMemory {
	s.lockTimeout = d
	return s
}

func (s *InMemory) Create(ctx context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rows[app.LosID]; exists {
		return sentinel.ErrConflict
	}
	if _, exists := s.byID[app.ID]; exists {
		return sentinel.ErrConflict
	}
	s.rows[app.LosID] = app.Clone()
	s.byID[app.ID] = app.LosID
	s.locks[app.LosID] = make(chan struct{}, 1)
	return nil
}

func (s *InMemory) FindByLosID(ctx context.Context, losID id.LosID) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	app, ok := s.rows[losID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return app.Clone(), nil
}

func (s *InMemory) List(ctx context.Context, pred visibility.Predicate) ([]*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.Application
	for _, app := range s.rows {
		if pred.Matches(app) {
			matched = append(matched, app.Clone())
		}
	}
	sortByCreatedAt(matched)
	return matched, nil
}

func (s *InMemory) Execute(ctx context.Context, losID id.LosID, validate Validate, mutate Mutate, inTx InTx) (*models.Application, error) {
	s.mu.RLock()
	lock, ok := s.locks[losID]
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	select {
	case lock <- struct{}{}:
		defer func() { <-lock }()
	case <-time.After(s.lockTimeout):
		return nil, sentinel.ErrBusy
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	s.mu.RLock()
	current, ok := s.rows[losID]
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	// Work on a clone so a failed validate/inTx leaves the stored row intact.
	working := current.Clone()
	if validate != nil {
		if err := validate(working); err != nil {
			return nil, err
		}
	}
	if mutate != nil {
		mutate(working)
	}
	if inTx != nil {
		if err := inTx(ctx, working); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	s.rows[losID] = working
	s.mu.Unlock()
	return working.Clone(), nil
}

// sortByCreatedAt orders oldest first so queues behave first-in, first-out.
func sortByCreatedAt(apps []*models.Application) {
	sort.Slice(apps, func(i, j int) bool {
		return apps[i].CreatedAt.Before(apps[j].CreatedAt)
	})
}
