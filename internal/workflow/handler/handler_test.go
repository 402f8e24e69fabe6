package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"losflow/internal/workflow/models"
	"losflow/internal/workflow/service"
	"losflow/internal/workflow/store"
	id "losflow/pkg/domain"
	"losflow/pkg/testutil"
)

func newWorkflowRouter(t *testing.T) chi.Router {
	t.Helper()
	engine := service.New(store.NewInMemory())
	h := New(engine, slog.New(slog.NewTextHandler(io.Discard, nil)))

	r := chi.NewRouter()
	h.Register(r)
	return r
}

func doJSON(t *testing.T, router chi.Router, method, path string, dept id.Department, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if dept != "" {
		req = testutil.AsDepartment(req, dept, "officer-1")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func initializeApplication(t *testing.T, router chi.Router, losID string) {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/applications", "", map[string]string{
		"los_id":       losID,
		"product_type": id.ProductAutoLoan.String(),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 initializing application, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestInitializeAndFetch(t *testing.T) {
	router := newWorkflowRouter(t)
	initializeApplication(t, router, "LOS-1001")

	rec := doJSON(t, router, http.MethodGet, "/applications/LOS-1001", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 fetching application, got %d", rec.Code)
	}

	var app struct {
		LosID  string `json:"los_id"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&app); err != nil {
		t.Fatalf("failed to decode application: %v", err)
	}
	if app.LosID != "LOS-1001" || app.Status != "draft" {
		t.Fatalf("unexpected application %+v", app)
	}
}

func TestInitializeDuplicateConflicts(t *testing.T) {
	router := newWorkflowRouter(t)
	initializeApplication(t, router, "LOS-1002")

	rec := doJSON(t, router, http.MethodPost, "/applications", "", map[string]string{
		"los_id":       "LOS-1002",
		"product_type": id.ProductAutoLoan.String(),
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate initialize, got %d", rec.Code)
	}
}

func TestActionRequiresAuthentication(t *testing.T) {
	router := newWorkflowRouter(t)
	initializeApplication(t, router, "LOS-2001")

	rec := doJSON(t, router, http.MethodPost, "/applications/LOS-2001/actions", "", map[string]string{
		"action": "submit",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a department, got %d", rec.Code)
	}
}

func TestActionAdvancesStatus(t *testing.T) {
	router := newWorkflowRouter(t)
	initializeApplication(t, router, "LOS-2002")

	rec := doJSON(t, router, http.MethodPost, "/applications/LOS-2002/actions", id.DepartmentPB, map[string]string{
		"action": "submit",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 applying action, got %d: %s", rec.Code, rec.Body.String())
	}

	var result struct {
		From          string `json:"from"`
		To            string `json:"to"`
		StatusChanged bool   `json:"status_changed"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if result.From != "draft" || result.To != "pb_submitted" || !result.StatusChanged {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestActionWithDestinationStatusFieldIsRejected(t *testing.T) {
	router := newWorkflowRouter(t)
	initializeApplication(t, router, "LOS-2003")

	// "status" is not a recognized field; the action body names an action only.
	// An illegal action for the current status must 409 without writing.
	rec := doJSON(t, router, http.MethodPost, "/applications/LOS-2003/actions", id.DepartmentCIU, map[string]string{
		"action": "approve",
		"status": "application_completed",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for illegal action, got %d", rec.Code)
	}

	fetch := doJSON(t, router, http.MethodGet, "/applications/LOS-2003", "", nil)
	var app struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(fetch.Body).Decode(&app); err != nil {
		t.Fatalf("failed to decode application: %v", err)
	}
	if app.Status != "draft" {
		t.Fatalf("status must be untouched, got %q", app.Status)
	}
}

func TestChecklistGateOverHTTP(t *testing.T) {
	router := newWorkflowRouter(t)
	initializeApplication(t, router, "LOS-3001")

	for i := 0; i < 2; i++ {
		rec := doJSON(t, router, http.MethodPost, "/applications/LOS-3001/actions", id.DepartmentPB, map[string]string{"action": "submit"})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 on pb submit %d, got %d", i, rec.Code)
		}
	}

	rec := doJSON(t, router, http.MethodPost, "/applications/LOS-3001/actions", id.DepartmentSPU, map[string]string{"action": "approve"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 with incomplete checklist, got %d", rec.Code)
	}
	var errBody struct {
		Error       string `json:"error"`
		Description string `json:"error_description"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&errBody); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	if errBody.Error != "checklist_incomplete" {
		t.Fatalf("expected checklist_incomplete, got %q", errBody.Error)
	}

	for _, kind := range models.AllCheckKinds {
		rec := doJSON(t, router, http.MethodPut, "/applications/LOS-3001/checklist/"+kind.String(), id.DepartmentSPU, map[string]any{
			"is_checked": true,
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 recording %s, got %d: %s", kind, rec.Code, rec.Body.String())
		}
	}

	rec = doJSON(t, router, http.MethodPost, "/applications/LOS-3001/actions", id.DepartmentSPU, map[string]string{"action": "approve"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 approving with complete checklist, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSetCheckUnknownKind(t *testing.T) {
	router := newWorkflowRouter(t)
	initializeApplication(t, router, "LOS-3002")

	rec := doJSON(t, router, http.MethodPut, "/applications/LOS-3002/checklist/horoscope", id.DepartmentSPU, map[string]any{
		"is_checked": true,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown check kind, got %d", rec.Code)
	}
}

func TestGetChecklistAlwaysReturnsAllKeys(t *testing.T) {
	router := newWorkflowRouter(t)
	initializeApplication(t, router, "LOS-3003")

	rec := doJSON(t, router, http.MethodGet, "/applications/LOS-3003/checklist", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var view struct {
		Entries  []map[string]any `json:"entries"`
		Complete bool             `json:"complete"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&view); err != nil {
		t.Fatalf("failed to decode checklist: %v", err)
	}
	if len(view.Entries) != len(models.AllCheckKinds) {
		t.Fatalf("expected %d entries, got %d", len(models.AllCheckKinds), len(view.Entries))
	}
	if view.Complete {
		t.Fatalf("fresh checklist must not be complete")
	}
}

func TestQueueVisibility(t *testing.T) {
	router := newWorkflowRouter(t)
	initializeApplication(t, router, "LOS-4001")

	for i := 0; i < 2; i++ {
		doJSON(t, router, http.MethodPost, "/applications/LOS-4001/actions", id.DepartmentPB, map[string]string{"action": "submit"})
	}

	rec := doJSON(t, router, http.MethodGet, "/queues/spu", id.DepartmentSPU, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 listing spu queue, got %d", rec.Code)
	}
	var queue struct {
		Applications []map[string]any `json:"applications"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&queue); err != nil {
		t.Fatalf("failed to decode queue: %v", err)
	}
	if len(queue.Applications) != 1 {
		t.Fatalf("expected 1 queued application, got %d", len(queue.Applications))
	}
}

func TestQueueBelongsToAuthenticatedDepartment(t *testing.T) {
	router := newWorkflowRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/queues/spu", id.DepartmentCOPS, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 reading another department's queue, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/queues/warehouse", id.DepartmentCOPS, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown department, got %d", rec.Code)
	}
}

func TestResolutionFlow(t *testing.T) {
	router := newWorkflowRouter(t)
	initializeApplication(t, router, "LOS-5001")

	for i := 0; i < 2; i++ {
		doJSON(t, router, http.MethodPost, "/applications/LOS-5001/actions", id.DepartmentPB, map[string]string{"action": "submit"})
	}
	rec := doJSON(t, router, http.MethodPost, "/applications/LOS-5001/actions", id.DepartmentSPU, map[string]string{
		"action": "escalate",
		"target": "risk",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 escalating, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, "/applications/LOS-5001/resolution", id.DepartmentRisk, map[string]string{
		"comment": "exposure acceptable",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 resolving, got %d: %s", rec.Code, rec.Body.String())
	}

	var app struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&app); err != nil {
		t.Fatalf("failed to decode application: %v", err)
	}
	if app.Status != "submitted_to_spu" {
		t.Fatalf("expected return to submitted_to_spu, got %q", app.Status)
	}
}

func TestResolutionRequiresComment(t *testing.T) {
	router := newWorkflowRouter(t)
	initializeApplication(t, router, "LOS-5002")

	rec := doJSON(t, router, http.MethodPost, "/applications/LOS-5002/resolution", id.DepartmentRisk, map[string]string{
		"comment": "   ",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank comment, got %d", rec.Code)
	}
}

func TestUnknownApplicationIs404(t *testing.T) {
	router := newWorkflowRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/applications/LOS-nope", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
