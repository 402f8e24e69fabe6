// Package visibility answers "which applications belong in a department's
// queue" from status + flags alone. Every surface that lists work items (the
// in-memory store, the postgres store, the queue cache) goes through the same
// predicate so dashboards never disagree about ownership.
//
// The point of the flag-based rules is that COPS and EAMVU legitimately work
// the same row at the same time: neither department's queue membership is
// serialized on a single shared status value, only on its own flag.
package visibility

import (
	"fmt"
	"strings"

	"losflow/internal/workflow/models"
	id "losflow/pkg/domain"
	dErrors "losflow/pkg/domain-errors"
)

// DualTrackQueueStatuses is the shared status set COPS and EAMVU act on.
var DualTrackQueueStatuses = []models.Status{
	models.StatusSubmittedBySPU,
	models.StatusAssignedToEAMVUOfficer,
	models.StatusReturnedByEAMVUOfficer,
}

// Predicate selects a department's work queue.
type Predicate struct {
	Department id.Department
	Statuses   []models.Status

	// Exactly one of these is set for the departments whose queues are
	// narrowed beyond status membership.
	requireCopsPending         bool
	requireEavmuPending        bool
	requireRiskUnresolved      bool
	requireComplianceUnresolved bool
}

// ForDepartment resolves the queue predicate for a department.
func ForDepartment(dept id.Department) (Predicate, error) {
	switch dept {
	case id.DepartmentPB:
		return Predicate{
			Department: dept,
			Statuses:   []models.Status{models.StatusDraft, models.StatusPBSubmitted},
		}, nil
	case id.DepartmentSPU:
		// Independent of checklist completion: the checklist is filled in
		// while the item sits in this queue.
		return Predicate{
			Department: dept,
			Statuses:   []models.Status{models.StatusSubmittedToSPU},
		}, nil
	case id.DepartmentCOPS:
		return Predicate{
			Department:         dept,
			Statuses:           DualTrackQueueStatuses,
			requireCopsPending: true,
		}, nil
	case id.DepartmentEAMVU:
		return Predicate{
			Department:          dept,
			Statuses:            DualTrackQueueStatuses,
			requireEavmuPending: true,
		}, nil
	case id.DepartmentCIU:
		return Predicate{
			Department: dept,
			Statuses:   []models.Status{models.StatusSubmittedToCIU},
		}, nil
	case id.DepartmentRisk:
		return Predicate{
			Department:            dept,
			Statuses:              []models.Status{models.StatusForwardedToRisk, models.StatusForwardedToRiskAndCompliance},
			requireRiskUnresolved: true,
		}, nil
	case id.DepartmentCompliance:
		return Predicate{
			Department:                  dept,
			Statuses:                    []models.Status{models.StatusForwardedToRiskAndCompliance},
			requireComplianceUnresolved: true,
		}, nil
	}
	return Predicate{}, dErrors.Newf(dErrors.CodeInvalidInput, "no queue defined for department %q", dept)
}

// Matches reports whether the application belongs in the department's queue.
func (p Predicate) Matches(app *models.Application) bool {
	if app == nil {
		return false
	}
	inStatus := false
	for _, s := range p.Statuses {
		if app.Status == s {
			inStatus = true
			break
		}
	}
	if !inStatus {
		return false
	}
	switch {
	case p.requireCopsPending:
		return !app.CopsSubmitted
	case p.requireEavmuPending:
		return !app.EavmuSubmitted
	case p.requireRiskUnresolved:
		return app.RiskResolveComment == nil
	case p.requireComplianceUnresolved:
		return app.ComplianceResolveComment == nil
	}
	return true
}

// Where renders the predicate as a SQL fragment over the applications table.
// Placeholders start at $1; args line up with them. The postgres store appends
// this to its queue query so SQL and in-memory filtering cannot drift.
func (p Predicate) Where() (string, []any) {
	placeholders := make([]string, len(p.Statuses))
	args := make([]any, len(p.Statuses))
	for i, s := range p.Statuses {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = s.String()
	}
	clause := fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ", "))

	switch {
	case p.requireCopsPending:
		clause += " AND cops_submitted = FALSE"
	case p.requireEavmuPending:
		clause += " AND eavmu_submitted = FALSE"
	case p.requireRiskUnresolved:
		clause += " AND risk_resolve_comment IS NULL"
	case p.requireComplianceUnresolved:
		clause += " AND compliance_resolve_comment IS NULL"
	}
	return clause, args
}
