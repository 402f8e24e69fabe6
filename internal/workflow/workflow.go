package workflow

import (
	"log/slog"

	"losflow/internal/workflow/handler"
	"losflow/internal/workflow/service"
	"losflow/internal/workflow/store"
)

// Engine drives application status changes.
type Engine = service.Engine

// Handler wires HTTP endpoints to the workflow engine.
type Handler = handler.Handler

// NewEngine constructs the workflow engine over an application store.
func NewEngine(st store.ApplicationStore, opts ...service.Option) *Engine {
	return service.New(st, opts...)
}

// NewHandler constructs an HTTP handler for the workflow routes.
func NewHandler(e *Engine, logger *slog.Logger) *Handler {
	return handler.New(e, logger)
}
