//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"losflow/internal/reporting"
	"losflow/internal/reporting/outbox"
	"losflow/internal/workflow/models"
	"losflow/internal/workflow/store"
	"losflow/internal/workflow/visibility"
	id "losflow/pkg/domain"
	"losflow/pkg/platform/sentinel"
	"losflow/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
	outbox   *outbox.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	ctx := context.Background()
	s.Require().NoError(store.EnsureSchema(ctx, s.postgres.DB))
	s.Require().NoError(outbox.EnsureSchema(ctx, s.postgres.DB))
	s.store = store.NewPostgres(s.postgres.DB).WithLockTimeout(500 * time.Millisecond)
	s.outbox = outbox.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "applications", "workflow_outbox"))
}

func (s *PostgresStoreSuite) newApplication(losID string) *models.Application {
	app, err := models.NewApplication(id.NewApplicationID(), id.LosID(losID), id.ProductAutoLoan, time.Now().UTC())
	s.Require().NoError(err)
	return app
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	app := s.newApplication("LOS-1001")
	s.Require().NoError(s.store.Create(ctx, app))

	found, err := s.store.FindByLosID(ctx, "LOS-1001")
	s.Require().NoError(err)
	s.Equal(app.ID, found.ID)
	s.Equal(models.StatusDraft, found.Status)
	s.Len(found.SpuChecklist, len(models.AllCheckKinds))
}

func (s *PostgresStoreSuite) TestDuplicateLosIDConflicts() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.newApplication("LOS-1002")))
	err := s.store.Create(ctx, s.newApplication("LOS-1002"))
	s.Require().ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestExecutePersistsMutationAndOutboxAtomically() {
	ctx := context.Background()
	app := s.newApplication("LOS-2001")
	s.Require().NoError(s.store.Create(ctx, app))

	_, err := s.store.Execute(ctx, "LOS-2001", nil,
		func(a *models.Application) {
			a.ApplyStatus(models.StatusPBSubmitted, time.Now().UTC())
		},
		func(txCtx context.Context, a *models.Application) error {
			return s.outbox.Append(txCtx, reporting.StatusChanged{
				EventID:    "11111111-1111-1111-1111-111111111111",
				LosID:      a.LosID.String(),
				From:       "draft",
				To:         a.Status.String(),
				OccurredAt: time.Now().UTC(),
			})
		})
	s.Require().NoError(err)

	found, err := s.store.FindByLosID(ctx, "LOS-2001")
	s.Require().NoError(err)
	s.Equal(models.StatusPBSubmitted, found.Status)

	pending, err := s.outbox.PendingBatch(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal("LOS-2001", pending[0].LosID)
}

func (s *PostgresStoreSuite) TestExecuteRollsBackWhenOutboxWriteFails() {
	ctx := context.Background()
	app := s.newApplication("LOS-2002")
	s.Require().NoError(s.store.Create(ctx, app))

	_, err := s.store.Execute(ctx, "LOS-2002", nil,
		func(a *models.Application) {
			a.ApplyStatus(models.StatusRejected, time.Now().UTC())
		},
		func(txCtx context.Context, a *models.Application) error {
			return sentinel.ErrUnavailable
		})
	s.Require().ErrorIs(err, sentinel.ErrUnavailable)

	found, err := s.store.FindByLosID(ctx, "LOS-2002")
	s.Require().NoError(err)
	s.Equal(models.StatusDraft, found.Status, "row write must roll back with the outbox")

	pending, err := s.outbox.PendingBatch(ctx, 10)
	s.Require().NoError(err)
	s.Empty(pending)
}

// TestConcurrentDualTrackFlags drives COPS and EAMVU flag writes concurrently
// and verifies FOR UPDATE serializes them: both flags land, no lost update.
func (s *PostgresStoreSuite) TestConcurrentDualTrackFlags() {
	ctx := context.Background()
	app := s.newApplication("LOS-3001")
	app.Status = models.StatusSubmittedBySPU
	s.Require().NoError(s.store.Create(ctx, app))

	var wg sync.WaitGroup
	for _, dept := range []id.Department{id.DepartmentCOPS, id.DepartmentEAMVU} {
		wg.Add(1)
		go func(dept id.Department) {
			defer wg.Done()
			_, err := s.store.Execute(ctx, "LOS-3001", nil, func(a *models.Application) {
				a.ApplySubmissionFlag(dept, time.Now().UTC())
				if a.CopsSubmitted && a.EavmuSubmitted {
					a.ApplyStatus(models.StatusSubmittedToCIU, time.Now().UTC())
				}
			}, nil)
			s.NoError(err)
		}(dept)
	}
	wg.Wait()

	found, err := s.store.FindByLosID(ctx, "LOS-3001")
	s.Require().NoError(err)
	s.True(found.CopsSubmitted)
	s.True(found.EavmuSubmitted)
	s.Equal(models.StatusSubmittedToCIU, found.Status)
}

// TestContendedRowSurfacesBusy holds the row lock past the store's lock
// timeout and expects the second writer to observe Busy.
func (s *PostgresStoreSuite) TestContendedRowSurfacesBusy() {
	ctx := context.Background()
	app := s.newApplication("LOS-3002")
	s.Require().NoError(s.store.Create(ctx, app))

	hold := make(chan struct{})
	release := make(chan struct{})
	var busyCount atomic.Int32

	go func() {
		_, _ = s.store.Execute(ctx, "LOS-3002", nil, func(a *models.Application) {
			close(hold)
			<-release
		}, nil)
	}()
	<-hold

	_, err := s.store.Execute(ctx, "LOS-3002", nil, nil, nil)
	if err != nil && s.ErrorIs(err, sentinel.ErrBusy) {
		busyCount.Add(1)
	}
	close(release)

	s.Equal(int32(1), busyCount.Load())
}

func (s *PostgresStoreSuite) TestListByPredicate() {
	ctx := context.Background()

	screening := s.newApplication("LOS-4001")
	screening.Status = models.StatusSubmittedToSPU
	s.Require().NoError(s.store.Create(ctx, screening))

	dual := s.newApplication("LOS-4002")
	dual.Status = models.StatusSubmittedBySPU
	dual.CopsSubmitted = true
	s.Require().NoError(s.store.Create(ctx, dual))

	spuPred, err := visibility.ForDepartment(id.DepartmentSPU)
	s.Require().NoError(err)
	spuQueue, err := s.store.List(ctx, spuPred)
	s.Require().NoError(err)
	s.Require().Len(spuQueue, 1)
	s.Equal(id.LosID("LOS-4001"), spuQueue[0].LosID)

	copsPred, err := visibility.ForDepartment(id.DepartmentCOPS)
	s.Require().NoError(err)
	copsQueue, err := s.store.List(ctx, copsPred)
	s.Require().NoError(err)
	s.Empty(copsQueue, "cops already submitted, row must leave its queue")

	eavmuPred, err := visibility.ForDepartment(id.DepartmentEAMVU)
	s.Require().NoError(err)
	eavmuQueue, err := s.store.List(ctx, eavmuPred)
	s.Require().NoError(err)
	s.Len(eavmuQueue, 1)
}

func (s *PostgresStoreSuite) TestChecklistRoundTrip() {
	ctx := context.Background()
	app := s.newApplication("LOS-5001")
	s.Require().NoError(s.store.Create(ctx, app))

	now := time.Now().UTC().Truncate(time.Microsecond)
	comment := "clear on bureau"
	_, err := s.store.Execute(ctx, "LOS-5001", nil, func(a *models.Application) {
		_, _ = a.SetCheck(models.CheckECIB, true, &comment, now)
	}, nil)
	s.Require().NoError(err)

	found, err := s.store.FindByLosID(ctx, "LOS-5001")
	s.Require().NoError(err)
	result := found.SpuChecklist[models.CheckECIB]
	s.Require().NotNil(result.IsChecked)
	s.True(*result.IsChecked)
	s.Require().NotNil(result.Comment)
	s.Equal(comment, *result.Comment)
	s.Require().NotNil(found.SpuChecklistCompletedAt)
	s.True(found.SpuChecklistCompletedAt.Equal(now))
}
