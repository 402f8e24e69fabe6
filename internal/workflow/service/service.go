// Package service orchestrates the application workflow: it is the only
// component that commits status changes, and every change goes through the
// transition table inside the store's single-row transaction.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"losflow/internal/reporting"
	"losflow/internal/workflow/metrics"
	"losflow/internal/workflow/models"
	"losflow/internal/workflow/store"
	"losflow/internal/workflow/transition"
	"losflow/internal/workflow/visibility"
	id "losflow/pkg/domain"
	dErrors "losflow/pkg/domain-errors"
	"losflow/pkg/platform/sentinel"
	"losflow/pkg/requestcontext"
)

// QueueCache fronts ListQueue with a short-TTL department queue snapshot.
// Misses and outages fall through to the store.
type QueueCache interface {
	Get(ctx context.Context, dept id.Department) ([]*models.Application, error)
	Set(ctx context.Context, dept id.Department, apps []*models.Application) error
	Invalidate(ctx context.Context, depts ...id.Department)
}

// Engine drives every workflow state change. Callers name an action, never a
// destination status; destinations come from the transition table against the
// stored row under the row lock.
type Engine struct {
	store   store.ApplicationStore
	outbox  reporting.Store
	cache   QueueCache
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

type Option func(e *Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithReporting mirrors committed transitions into the outbox, inside the same
// transaction as the row write.
func WithReporting(outbox reporting.Store) Option {
	return func(e *Engine) {
		e.outbox = outbox
	}
}

func WithQueueCache(cache QueueCache) Option {
	return func(e *Engine) {
		e.cache = cache
	}
}

// New constructs an Engine.
func New(st store.ApplicationStore, opts ...Option) *Engine {
	e := &Engine{
		store:  st,
		logger: slog.Default(),
		tracer: otel.Tracer("losflow/workflow"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SubmitResult reports a committed (or idempotently skipped) action.
type SubmitResult struct {
	Application *models.Application `json:"application"`
	From        models.Status       `json:"from"`
	To          models.Status       `json:"to"`
	// StatusChanged is false when the action only recorded a dual-track flag.
	StatusChanged bool `json:"status_changed"`
	// AlreadyRecorded marks a repeat submission acknowledged without a write.
	AlreadyRecorded bool `json:"already_recorded"`
}

// Initialize registers a freshly persisted product application with the
// workflow. Called by the external product store; LOS IDs it does not supply
// are generated here.
//
// Errors: CodeConflict when the application or LOS ID is already registered.
func (e *Engine) Initialize(ctx context.Context, req *models.InitializeRequest) (*models.Application, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	appID := id.NewApplicationID()
	if req.ApplicationID != "" {
		parsed, err := id.ParseApplicationID(req.ApplicationID)
		if err != nil {
			return nil, err
		}
		appID = parsed
	}

	losID := id.LosID(req.LosID)
	if losID == "" {
		losID = newLosID()
	}

	productType, err := id.ParseProductType(req.ProductType)
	if err != nil {
		return nil, err
	}

	app, err := models.NewApplication(appID, losID, productType, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	if err := e.store.Create(ctx, app); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "application already initialized")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to initialize application")
	}

	e.logger.InfoContext(ctx, "application initialized",
		"los_id", app.LosID, "product_type", app.ProductType)
	return app, nil
}

// newLosID mints an external identifier for callers that did not bring one.
func newLosID() id.LosID {
	return id.LosID(fmt.Sprintf("LOS-%.8s", uuid.NewString()))
}

// Submit applies a department action to one application. The acting department
// comes from the authenticated context, the action from the request, and the
// destination status from the transition table alone.
//
// Repeat COPS/EAMVU submissions return a success-shaped result with
// AlreadyRecorded set instead of an error; the dashboards retry on flaky
// networks and a replay must not surface as a failure.
func (e *Engine) Submit(ctx context.Context, rawLosID string, req *models.ActionRequest) (*SubmitResult, error) {
	start := time.Now()
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	losID, err := id.ParseLosID(rawLosID)
	if err != nil {
		return nil, err
	}
	dept := requestcontext.Department(ctx)
	if !dept.IsValid() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "an authenticated department is required")
	}

	action, err := id.ParseAction(req.Action)
	if err != nil {
		return nil, err
	}
	var target id.EscalationTarget
	if action == id.ActionEscalate {
		if target, err = id.ParseEscalationTarget(req.Target); err != nil {
			return nil, err
		}
	}

	ctx, span := e.tracer.Start(ctx, "workflow.Submit", trace.WithAttributes(
		attribute.String("losflow.los_id", losID.String()),
		attribute.String("losflow.department", dept.String()),
		attribute.String("losflow.action", action.String()),
	))
	defer span.End()

	now := requestcontext.Now(ctx)
	var (
		from    models.Status
		outcome transition.Outcome
		repeat  *models.Application
	)

	app, err := e.store.Execute(ctx, losID,
		func(a *models.Application) error {
			from = a.Status
			if action == id.ActionApprove && a.HasSubmitted(dept) {
				repeat = a.Clone()
				return errAlreadyRecorded
			}
			out, err := transition.Next(transition.SnapshotOf(a), dept, action, target)
			if err != nil {
				return err
			}
			if out.RequiresChecklist {
				if missing := a.SpuChecklist.Missing(); len(missing) > 0 {
					return models.ChecklistIncompleteError(missing)
				}
			}
			outcome = out
			return nil
		},
		func(a *models.Application) {
			if outcome.SetFlag != "" {
				a.ApplySubmissionFlag(outcome.SetFlag, now)
			}
			switch {
			case outcome.Escalation:
				a.ApplyEscalation(outcome.Next, now)
			case outcome.StatusChanged:
				a.ApplyStatus(outcome.Next, now)
			}
		},
		func(txCtx context.Context, a *models.Application) error {
			return e.mirror(txCtx, a, from, dept, action.String(), now)
		},
	)
	if err != nil {
		if errors.Is(err, errAlreadyRecorded) {
			e.logger.InfoContext(ctx, "submission already recorded",
				"los_id", losID, "department", dept)
			e.incrementRepeatSubmission()
			return &SubmitResult{
				Application:     repeat,
				From:            repeat.Status,
				To:              repeat.Status,
				AlreadyRecorded: true,
			}, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.incrementRejected(string(dErrors.CodeOf(err)))
		return nil, e.translate(err, "failed to apply action")
	}

	e.invalidateQueues(ctx)
	e.incrementCommitted(app.Status.String())
	e.observeSubmit(start)
	e.logger.InfoContext(ctx, "action committed",
		"los_id", losID, "department", dept, "action", action,
		"from", from, "to", app.Status)

	return &SubmitResult{
		Application:   app,
		From:          from,
		To:            app.Status,
		StatusChanged: app.Status != from,
	}, nil
}

// Resolve records a Risk or Compliance resolution comment for an escalated
// application. When the lane's required comments are all present the
// application returns to the status it escalated from.
func (e *Engine) Resolve(ctx context.Context, rawLosID string, req *models.ResolveRequest) (*models.Application, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	losID, err := id.ParseLosID(rawLosID)
	if err != nil {
		return nil, err
	}
	dept := requestcontext.Department(ctx)
	if !dept.IsValid() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "an authenticated department is required")
	}

	ctx, span := e.tracer.Start(ctx, "workflow.Resolve", trace.WithAttributes(
		attribute.String("losflow.los_id", losID.String()),
		attribute.String("losflow.department", dept.String()),
	))
	defer span.End()

	now := requestcontext.Now(ctx)
	var from models.Status

	app, err := e.store.Execute(ctx, losID,
		func(a *models.Application) error {
			from = a.Status
			return a.CanResolve(dept)
		},
		func(a *models.Application) {
			a.ApplyResolution(dept, req.Comment, now)
		},
		func(txCtx context.Context, a *models.Application) error {
			return e.mirror(txCtx, a, from, dept, "resolve", now)
		},
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.incrementRejected(string(dErrors.CodeOf(err)))
		return nil, e.translate(err, "failed to resolve escalation")
	}

	e.invalidateQueues(ctx)
	e.incrementCommitted(app.Status.String())
	e.logger.InfoContext(ctx, "escalation resolution recorded",
		"los_id", losID, "department", dept, "from", from, "to", app.Status)
	return app, nil
}

// SetCheck records one screening check outcome on the application's checklist.
// Only SPU records checks, and only while the application is still in flight.
func (e *Engine) SetCheck(ctx context.Context, rawLosID, rawKind string, req *models.SetCheckRequest) (models.Completion, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return models.Completion{}, err
	}

	losID, err := id.ParseLosID(rawLosID)
	if err != nil {
		return models.Completion{}, err
	}
	kind, err := models.ParseCheckKind(rawKind)
	if err != nil {
		return models.Completion{}, err
	}
	if dept := requestcontext.Department(ctx); dept != id.DepartmentSPU {
		return models.Completion{}, dErrors.New(dErrors.CodeInvalidTransition, "only spu records screening checks")
	}

	now := requestcontext.Now(ctx)
	var (
		completion  models.Completion
		wasComplete bool
	)

	_, err = e.store.Execute(ctx, losID,
		func(a *models.Application) error {
			if a.Status.IsTerminal() {
				return dErrors.New(dErrors.CodeInvalidTransition, "cannot record checks on a settled application")
			}
			wasComplete = a.SpuChecklist.IsComplete()
			return nil
		},
		func(a *models.Application) {
			completion, _ = a.SetCheck(kind, *req.IsChecked, req.Comment, now)
		},
		nil,
	)
	if err != nil {
		e.incrementRejected(string(dErrors.CodeOf(err)))
		return models.Completion{}, e.translate(err, "failed to record check")
	}

	if completion.Complete && !wasComplete {
		e.incrementChecklistCompleted()
	}
	e.logger.InfoContext(ctx, "screening check recorded",
		"los_id", losID, "kind", kind, "complete", completion.Complete)
	return completion, nil
}

// ChecklistView is the full checklist read: always every fixed key, null
// entries included, plus the derived completion.
type ChecklistView struct {
	Entries     []models.ChecklistEntry `json:"entries"`
	Complete    bool                    `json:"complete"`
	Missing     []models.CheckKind      `json:"missing,omitempty"`
	CompletedAt *time.Time              `json:"completed_at"`
}

// GetChecklist returns the application's screening checklist.
func (e *Engine) GetChecklist(ctx context.Context, rawLosID string) (*ChecklistView, error) {
	app, err := e.Get(ctx, rawLosID)
	if err != nil {
		return nil, err
	}
	return &ChecklistView{
		Entries:     app.SpuChecklist.Entries(),
		Complete:    app.SpuChecklist.IsComplete(),
		Missing:     app.SpuChecklist.Missing(),
		CompletedAt: app.SpuChecklistCompletedAt,
	}, nil
}

// Get loads one application by LOS ID.
func (e *Engine) Get(ctx context.Context, rawLosID string) (*models.Application, error) {
	losID, err := id.ParseLosID(rawLosID)
	if err != nil {
		return nil, err
	}
	app, err := e.store.FindByLosID(ctx, losID)
	if err != nil {
		return nil, e.translate(err, "failed to load application")
	}
	return app, nil
}

// ListQueue returns the department's work queue, oldest first. Served from the
// cache when a fresh snapshot exists.
func (e *Engine) ListQueue(ctx context.Context, dept id.Department) ([]*models.Application, error) {
	start := time.Now()
	pred, err := visibility.ForDepartment(dept)
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		if apps, err := e.cache.Get(ctx, dept); err == nil {
			e.observeQueueList(start)
			return apps, nil
		}
	}

	apps, err := e.store.List(ctx, pred)
	if err != nil {
		return nil, e.translate(err, "failed to list queue")
	}

	if e.cache != nil {
		if err := e.cache.Set(ctx, dept, apps); err != nil {
			e.logger.WarnContext(ctx, "queue cache write failed", "department", dept, "error", err)
		}
	}
	e.observeQueueList(start)
	return apps, nil
}

// errAlreadyRecorded is an internal veto: the validate callback uses it to
// abort the write when the department's submission is already on file, and
// Submit converts it back into a success-shaped result.
var errAlreadyRecorded = dErrors.New(dErrors.CodeAlreadySubmitted, "submission already recorded")

// mirror appends the committed change to the reporting outbox inside the row
// transaction. Flag-only submissions are mirrored with From == To.
func (e *Engine) mirror(ctx context.Context, app *models.Application, from models.Status, dept id.Department, action string, now time.Time) error {
	if e.outbox == nil {
		return nil
	}
	return e.outbox.Append(ctx, reporting.StatusChanged{
		EventID:       uuid.NewString(),
		ApplicationID: app.ID.String(),
		LosID:         app.LosID.String(),
		ProductType:   app.ProductType.String(),
		From:          from.String(),
		To:            app.Status.String(),
		Department:    dept,
		Action:        action,
		Actor:         requestcontext.Actor(ctx),
		OccurredAt:    now,
	})
}

// translate maps store sentinels to coded domain errors; domain errors pass
// through untouched.
func (e *Engine) translate(err error, internalMsg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "application not found")
	case errors.Is(err, sentinel.ErrBusy):
		return dErrors.New(dErrors.CodeBusy, "application is being processed, retry shortly")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "application already exists")
	}
	var domainErr *dErrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, internalMsg)
}

// invalidateQueues drops every department queue snapshot. A committed
// transition can change up to three queues at once (the actor's, the other
// verification track's and the destination's), so a blanket invalidation is
// cheaper than computing the exact set.
func (e *Engine) invalidateQueues(ctx context.Context) {
	if e.cache == nil {
		return
	}
	e.cache.Invalidate(ctx, id.AllDepartments...)
}

func (e *Engine) incrementCommitted(to string) {
	if e.metrics != nil {
		e.metrics.IncrementCommitted(to)
	}
}

func (e *Engine) incrementRejected(reason string) {
	if e.metrics != nil {
		e.metrics.IncrementRejected(reason)
	}
}

func (e *Engine) incrementRepeatSubmission() {
	if e.metrics != nil {
		e.metrics.IncrementRepeatSubmission()
	}
}

func (e *Engine) incrementChecklistCompleted() {
	if e.metrics != nil {
		e.metrics.IncrementChecklistCompleted()
	}
}

func (e *Engine) observeSubmit(start time.Time) {
	if e.metrics != nil {
		e.metrics.ObserveSubmit(start)
	}
}

func (e *Engine) observeQueueList(start time.Time) {
	if e.metrics != nil {
		e.metrics.ObserveQueueList(start)
	}
}
