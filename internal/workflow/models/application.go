package models

import (
	"time"

	id "losflow/pkg/domain"
	dErrors "losflow/pkg/domain-errors"
)

// Application is the aggregate root for one loan application moving through
// the department pipeline.
//
// Invariants:
//   - Status transitions only through the transition table; no component ever
//     writes a caller-supplied destination status
//   - CopsSubmitted / EavmuSubmitted are each owned exclusively by their
//     department: set once to true, never reset by the other department
//   - Checklist completion is derived from the fixed key set, never stored
//   - Terminal statuses (application_completed, rejected) have no outbound
//     transitions; rows are never deleted
//
// # Dual-track invariant
//
// COPS and EAMVU verify the same application independently while it sits in a
// dual-track status. Each submission records only that department's flag; the
// shared status advances to submitted_to_ciu exactly when both flags are true.
// Because each department writes only its own flag under the row lock, two
// concurrent submissions serialize and the second one observes the first's
// flag, which is what makes "both submitted" detection correct.
type Application struct {
	ID          id.ApplicationID `json:"id"`
	LosID       id.LosID         `json:"los_id"`
	ProductType id.ProductType   `json:"product_type"`
	Status      Status           `json:"status"`

	CopsSubmitted  bool `json:"cops_submitted"`
	EavmuSubmitted bool `json:"eavmu_submitted"`

	RiskResolveComment       *string `json:"risk_resolve_comment"`
	ComplianceResolveComment *string `json:"compliance_resolve_comment"`

	// EscalatedFrom records the status the application escalated out of so
	// resolution can return it to the pipeline. Nil unless escalated.
	EscalatedFrom *Status `json:"escalated_from,omitempty"`

	SpuChecklist            Checklist  `json:"spu_checklist"`
	SpuChecklistCompletedAt *time.Time `json:"spu_checklist_completed_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewApplication creates the workflow record for a freshly persisted product
// application form. Status starts at draft; the product store calls this via
// Engine.Initialize.
func NewApplication(appID id.ApplicationID, losID id.LosID, productType id.ProductType, now time.Time) (*Application, error) {
	if appID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "application id is required")
	}
	if losID == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "los id is required")
	}
	if !productType.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "product type must be one of the supported products")
	}
	return &Application{
		ID:           appID,
		LosID:        losID,
		ProductType:  productType,
		Status:       StatusDraft,
		SpuChecklist: NewChecklist(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// HasSubmitted reports whether the department already recorded its
// verification submission. Only COPS and EAMVU carry submission flags.
// The legacy single-track statuses count as that department's submission so
// rows migrated from before the flags existed stay idempotent.
func (a *Application) HasSubmitted(dept id.Department) bool {
	switch dept {
	case id.DepartmentCOPS:
		return a.CopsSubmitted || a.Status == StatusSubmittedByCOPS
	case id.DepartmentEAMVU:
		return a.EavmuSubmitted || a.Status == StatusSubmittedByEAMVU
	}
	return false
}

// ApplySubmissionFlag records the department's flag. Call only from the
// engine's mutate callback after the transition table approved the action.
func (a *Application) ApplySubmissionFlag(dept id.Department, now time.Time) {
	switch dept {
	case id.DepartmentCOPS:
		a.CopsSubmitted = true
	case id.DepartmentEAMVU:
		a.EavmuSubmitted = true
	}
	a.UpdatedAt = now
}

// ApplyStatus moves the application to the table-derived status.
func (a *Application) ApplyStatus(next Status, now time.Time) {
	a.Status = next
	a.UpdatedAt = now
}

// ApplyEscalation parks the application with Risk/Compliance, remembering
// where it came from so resolution can send it back.
func (a *Application) ApplyEscalation(next Status, now time.Time) {
	from := a.Status
	a.EscalatedFrom = &from
	a.Status = next
	a.UpdatedAt = now
}

// IsResolvedBy reports whether the department already wrote its resolution
// comment for the current escalation.
func (a *Application) IsResolvedBy(dept id.Department) bool {
	switch dept {
	case id.DepartmentRisk:
		return a.RiskResolveComment != nil
	case id.DepartmentCompliance:
		return a.ComplianceResolveComment != nil
	}
	return false
}

// CanResolve checks that the department's resolution is legal in the current
// status. Risk resolves both escalation lanes; Compliance only the joint one.
func (a *Application) CanResolve(dept id.Department) error {
	switch dept {
	case id.DepartmentRisk:
		if !a.Status.IsEscalated() {
			return dErrors.New(dErrors.CodeInvalidTransition, "application is not forwarded to risk")
		}
	case id.DepartmentCompliance:
		if a.Status != StatusForwardedToRiskAndCompliance {
			return dErrors.New(dErrors.CodeInvalidTransition, "application is not forwarded to compliance")
		}
	default:
		return dErrors.New(dErrors.CodeInvalidTransition, "only risk or compliance may resolve an escalation")
	}
	if a.IsResolvedBy(dept) {
		return dErrors.New(dErrors.CodeAlreadySubmitted, "escalation already resolved by this department")
	}
	return nil
}

// ApplyResolution writes the department's resolution comment. When every
// comment required by the current escalation lane is present, the application
// returns to the status it escalated from and the escalation bookkeeping is
// cleared for the next round.
func (a *Application) ApplyResolution(dept id.Department, comment string, now time.Time) {
	switch dept {
	case id.DepartmentRisk:
		a.RiskResolveComment = &comment
	case id.DepartmentCompliance:
		a.ComplianceResolveComment = &comment
	}
	a.UpdatedAt = now

	if !a.escalationFullyResolved() {
		return
	}

	returnTo := StatusSubmittedToSPU
	if a.EscalatedFrom != nil {
		returnTo = *a.EscalatedFrom
	}
	a.Status = returnTo
	a.EscalatedFrom = nil
	a.RiskResolveComment = nil
	a.ComplianceResolveComment = nil
}

func (a *Application) escalationFullyResolved() bool {
	switch a.Status {
	case StatusForwardedToRisk:
		return a.RiskResolveComment != nil
	case StatusForwardedToRiskAndCompliance:
		return a.RiskResolveComment != nil && a.ComplianceResolveComment != nil
	}
	return false
}

// SetCheck records one screening check outcome. The completion timestamp is
// stamped on every write, recording "last touched" rather than "all done" —
// a quirk of the source system that reporting depends on.
func (a *Application) SetCheck(kind CheckKind, isChecked bool, comment *string, now time.Time) (Completion, error) {
	if !kind.IsValid() {
		return Completion{}, dErrors.Newf(dErrors.CodeUnknownCheckKind, "unknown check kind %q", kind)
	}
	if a.SpuChecklist == nil {
		a.SpuChecklist = NewChecklist()
	}
	a.SpuChecklist[kind] = CheckResult{IsChecked: &isChecked, Comment: comment}
	a.SpuChecklistCompletedAt = &now
	a.UpdatedAt = now

	missing := a.SpuChecklist.Missing()
	return Completion{Complete: len(missing) == 0, Missing: missing}, nil
}

// Clone returns a deep copy so the in-memory store never leaks its internal
// row to callers mutating outside the Execute lock.
func (a *Application) Clone() *Application {
	clone := *a
	clone.SpuChecklist = make(Checklist, len(a.SpuChecklist))
	for k, v := range a.SpuChecklist {
		if v.IsChecked != nil {
			checked := *v.IsChecked
			v.IsChecked = &checked
		}
		if v.Comment != nil {
			comment := *v.Comment
			v.Comment = &comment
		}
		clone.SpuChecklist[k] = v
	}
	if a.RiskResolveComment != nil {
		v := *a.RiskResolveComment
		clone.RiskResolveComment = &v
	}
	if a.ComplianceResolveComment != nil {
		v := *a.ComplianceResolveComment
		clone.ComplianceResolveComment = &v
	}
	if a.EscalatedFrom != nil {
		v := *a.EscalatedFrom
		clone.EscalatedFrom = &v
	}
	if a.SpuChecklistCompletedAt != nil {
		v := *a.SpuChecklistCompletedAt
		clone.SpuChecklistCompletedAt = &v
	}
	return &clone
}
