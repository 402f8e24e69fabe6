package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"losflow/internal/workflow/models"
	"losflow/internal/workflow/service"
	id "losflow/pkg/domain"
	dErrors "losflow/pkg/domain-errors"
	"losflow/pkg/platform/httputil"
	"losflow/pkg/requestcontext"
)

// Service defines the interface for workflow operations.
type Service interface {
	Initialize(ctx context.Context, req *models.InitializeRequest) (*models.Application, error)
	Submit(ctx context.Context, losID string, req *models.ActionRequest) (*service.SubmitResult, error)
	Resolve(ctx context.Context, losID string, req *models.ResolveRequest) (*models.Application, error)
	SetCheck(ctx context.Context, losID, kind string, req *models.SetCheckRequest) (models.Completion, error)
	GetChecklist(ctx context.Context, losID string) (*service.ChecklistView, error)
	Get(ctx context.Context, losID string) (*models.Application, error)
	ListQueue(ctx context.Context, dept id.Department) ([]*models.Application, error)
}

// Handler wires workflow endpoints to the engine.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a workflow handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts workflow endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/applications", h.HandleInitialize)
	r.Get("/applications/{losID}", h.HandleGet)
	r.Post("/applications/{losID}/actions", h.HandleAction)
	r.Post("/applications/{losID}/resolution", h.HandleResolve)
	r.Get("/applications/{losID}/checklist", h.HandleGetChecklist)
	r.Put("/applications/{losID}/checklist/{kind}", h.HandleSetCheck)
	r.Get("/queues/{department}", h.HandleListQueue)
}

// HandleInitialize handles POST /applications, the callback from the external
// product application store.
func (h *Handler) HandleInitialize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.InitializeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	app, err := h.service.Initialize(ctx, req)
	if err != nil {
		h.logger.ErrorContext(ctx, "application initialization failed",
			"request_id", requestID,
			"los_id", req.LosID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, app)
}

// HandleGet handles GET /applications/{losID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	app, err := h.service.Get(ctx, chi.URLParam(r, "losID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, app)
}

// HandleAction handles POST /applications/{losID}/actions. The acting
// department comes from the authenticated context; the body names an action,
// never a status.
func (h *Handler) HandleAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	losID := chi.URLParam(r, "losID")
	start := time.Now()

	dept := requestcontext.Department(ctx)
	if dept == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[models.ActionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Submit(ctx, losID, req)
	if err != nil {
		h.logger.ErrorContext(ctx, "workflow action failed",
			"request_id", requestID,
			"los_id", losID,
			"department", dept,
			"action", req.Action,
			"error", err,
		)
		if dErrors.HasCode(err, dErrors.CodeBusy) {
			w.Header().Set("Retry-After", "1")
		}
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "workflow action applied",
		"request_id", requestID,
		"los_id", losID,
		"department", dept,
		"action", req.Action,
		"from", result.From,
		"to", result.To,
		"already_recorded", result.AlreadyRecorded,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleResolve handles POST /applications/{losID}/resolution by Risk or
// Compliance.
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	losID := chi.URLParam(r, "losID")

	dept := requestcontext.Department(ctx)
	if dept == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[models.ResolveRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	app, err := h.service.Resolve(ctx, losID, req)
	if err != nil {
		h.logger.ErrorContext(ctx, "escalation resolution failed",
			"request_id", requestID,
			"los_id", losID,
			"department", dept,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, app)
}

// HandleSetCheck handles PUT /applications/{losID}/checklist/{kind}.
func (h *Handler) HandleSetCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	losID := chi.URLParam(r, "losID")
	kind := chi.URLParam(r, "kind")

	if requestcontext.Department(ctx) == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[models.SetCheckRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	completion, err := h.service.SetCheck(ctx, losID, kind, req)
	if err != nil {
		h.logger.ErrorContext(ctx, "screening check write failed",
			"request_id", requestID,
			"los_id", losID,
			"kind", kind,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, completion)
}

// HandleGetChecklist handles GET /applications/{losID}/checklist.
func (h *Handler) HandleGetChecklist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	view, err := h.service.GetChecklist(ctx, chi.URLParam(r, "losID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

// HandleListQueue handles GET /queues/{department}. The path department must
// match the authenticated one; a dashboard only sees its own queue.
func (h *Handler) HandleListQueue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	dept, err := id.ParseDepartment(chi.URLParam(r, "department"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	authed := requestcontext.Department(ctx)
	if authed == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	if authed != dept {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "queue belongs to another department"))
		return
	}

	apps, err := h.service.ListQueue(ctx, dept)
	if err != nil {
		h.logger.ErrorContext(ctx, "queue listing failed",
			"request_id", requestID,
			"department", dept,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"department":   dept,
		"applications": apps,
	})
}
