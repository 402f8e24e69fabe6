// Package transition is the authoritative mapping from (current status,
// department, action) to the next status. It is a pure function: no store
// access, no clock, no side effects.
//
// The central correctness property of the whole engine lives here: the caller
// never supplies the destination status. Every destination is derived from the
// current stored status and the requesting department's action, which removes
// the class of bug where a dashboard sent a hardcoded status and silently
// corrupted the pipeline.
package transition

import (
	"losflow/internal/workflow/models"
	"losflow/internal/workflow/visibility"
	id "losflow/pkg/domain"
	dErrors "losflow/pkg/domain-errors"
)

// Snapshot is the read-only view of an application the table decides on.
// Keeping it a plain value (rather than the aggregate) makes purity obvious
// and lets tests enumerate the full input space.
type Snapshot struct {
	Status         models.Status
	CopsSubmitted  bool
	EavmuSubmitted bool
}

// SnapshotOf extracts the decision-relevant view of an application.
func SnapshotOf(app *models.Application) Snapshot {
	return Snapshot{
		Status:         app.Status,
		CopsSubmitted:  app.CopsSubmitted,
		EavmuSubmitted: app.EavmuSubmitted,
	}
}

// Outcome describes what the engine must commit for an approved action.
type Outcome struct {
	// Next is the resulting status. Equals the current status when the action
	// only records a dual-track flag.
	Next models.Status
	// StatusChanged is false for the "wait for the other track" case.
	StatusChanged bool
	// SetFlag names the department whose submission flag must be recorded
	// (COPS or EAMVU), or empty.
	SetFlag id.Department
	// RequiresChecklist marks transitions gated on the full screening
	// checklist; the engine verifies completion inside the row transaction.
	RequiresChecklist bool
	// Escalation marks transitions into a Risk/Compliance lane; the engine
	// must record the pre-escalation status alongside the move.
	Escalation bool
}

type key struct {
	status models.Status
	dept   id.Department
	action id.Action
}

type rule struct {
	next              models.Status
	requiresChecklist bool
}

// table holds the fixed single-track transitions. Dual-track and escalation
// rules depend on more than the key and are resolved in Next.
var table = map[key]rule{
	{models.StatusDraft, id.DepartmentPB, id.ActionSubmit}:       {next: models.StatusPBSubmitted},
	{models.StatusPBSubmitted, id.DepartmentPB, id.ActionSubmit}: {next: models.StatusSubmittedToSPU},

	// Approve and assign both move the row into the verification queues, so
	// both are gated on the full screening checklist. Reject is the failure
	// exit and stays ungated.
	{models.StatusSubmittedToSPU, id.DepartmentSPU, id.ActionApprove}: {next: models.StatusSubmittedBySPU, requiresChecklist: true},
	{models.StatusSubmittedToSPU, id.DepartmentSPU, id.ActionReject}:  {next: models.StatusRejected},
	{models.StatusSubmittedToSPU, id.DepartmentSPU, id.ActionAssign}:  {next: models.StatusAssignedToEAMVUOfficer, requiresChecklist: true},

	{models.StatusAssignedToEAMVUOfficer, id.DepartmentEAMVU, id.ActionReturn}: {next: models.StatusReturnedByEAMVUOfficer},

	{models.StatusSubmittedToCIU, id.DepartmentCIU, id.ActionApprove}: {next: models.StatusApplicationCompleted},
	{models.StatusSubmittedToCIU, id.DepartmentCIU, id.ActionReject}:  {next: models.StatusRejected},
}

var errInvalid = dErrors.New(dErrors.CodeInvalidTransition, "invalid transition")

// Next computes the outcome of a department action. Total: every triple not
// explicitly defined is rejected with "invalid transition".
//
// target is only consulted when action is escalate.
func Next(snap Snapshot, dept id.Department, action id.Action, target id.EscalationTarget) (Outcome, error) {
	if !snap.Status.IsValid() || !dept.IsValid() || !action.IsValid() {
		return Outcome{}, errInvalid
	}

	if action == id.ActionEscalate {
		return escalate(snap, dept, target)
	}

	if r, ok := table[key{snap.Status, dept, action}]; ok {
		return Outcome{Next: r.next, StatusChanged: true, RequiresChecklist: r.requiresChecklist}, nil
	}

	if snap.Status.IsDualTrack() && (dept == id.DepartmentCOPS || dept == id.DepartmentEAMVU) {
		return dualTrack(snap, dept, action)
	}

	return Outcome{}, errInvalid
}

// dualTrack resolves COPS/EAMVU verification actions. Approve records the
// caller's flag; the status advances to submitted_to_ciu only once both
// tracks have submitted. If the other flag is already true the advance
// happens in the same step.
func dualTrack(snap Snapshot, dept id.Department, action id.Action) (Outcome, error) {
	switch action {
	case id.ActionApprove:
		if otherTrackDone(snap, dept) {
			return Outcome{
				Next:          models.StatusSubmittedToCIU,
				StatusChanged: true,
				SetFlag:       dept,
			}, nil
		}
		// Wait for the other track: flag only, status unchanged.
		return Outcome{
			Next:    snap.Status,
			SetFlag: dept,
		}, nil
	case id.ActionReject:
		return Outcome{Next: models.StatusRejected, StatusChanged: true}, nil
	}
	return Outcome{}, errInvalid
}

// otherTrackDone reports whether the opposite verification department has
// already submitted. Legacy single-track statuses count as a submission.
func otherTrackDone(snap Snapshot, dept id.Department) bool {
	switch dept {
	case id.DepartmentCOPS:
		return snap.EavmuSubmitted || snap.Status == models.StatusSubmittedByEAMVU
	case id.DepartmentEAMVU:
		return snap.CopsSubmitted || snap.Status == models.StatusSubmittedByCOPS
	}
	return false
}

// escalate moves an application into a Risk/Compliance lane. The business
// condition for escalating is not modeled here; the caller decides and the
// table only checks that the requesting department currently owns the row.
// The target names a lane, never a raw status.
func escalate(snap Snapshot, dept id.Department, target id.EscalationTarget) (Outcome, error) {
	if snap.Status.IsTerminal() || snap.Status.IsEscalated() {
		return Outcome{}, errInvalid
	}
	if dept == id.DepartmentRisk || dept == id.DepartmentCompliance {
		return Outcome{}, errInvalid
	}
	if !ownsRow(snap, dept) {
		return Outcome{}, errInvalid
	}

	var next models.Status
	switch target {
	case id.EscalateToRisk:
		next = models.StatusForwardedToRisk
	case id.EscalateToRiskAndCompliance:
		next = models.StatusForwardedToRiskAndCompliance
	default:
		return Outcome{}, dErrors.New(dErrors.CodeInvalidTransition, "escalation requires a target lane")
	}
	return Outcome{Next: next, StatusChanged: true, Escalation: true}, nil
}

// ownsRow reuses the queue predicate: a department may escalate exactly the
// rows its dashboard shows.
func ownsRow(snap Snapshot, dept id.Department) bool {
	pred, err := visibility.ForDepartment(dept)
	if err != nil {
		return false
	}
	return pred.Matches(&models.Application{
		Status:         snap.Status,
		CopsSubmitted:  snap.CopsSubmitted,
		EavmuSubmitted: snap.EavmuSubmitted,
	})
}
