package models

import (
	dErrors "losflow/pkg/domain-errors"
)

// Status is the single source of truth for where an application sits in the
// pipeline. It only ever changes through the transition table; no caller may
// supply a destination status directly.
type Status string

const (
	StatusDraft                  Status = "draft"
	StatusPBSubmitted            Status = "pb_submitted"
	StatusSubmittedToSPU         Status = "submitted_to_spu"
	StatusSubmittedBySPU         Status = "submitted_by_spu"
	StatusAssignedToEAMVUOfficer Status = "assigned_to_eavmu_officer"
	StatusReturnedByEAMVUOfficer Status = "returned_by_eavmu_officer"
	StatusSubmittedByEAMVU       Status = "submitted_by_eavmu"
	StatusSubmittedByCOPS        Status = "submitted_by_cops"
	StatusSubmittedToCIU         Status = "submitted_to_ciu"
	StatusForwardedToRisk        Status = "forwarded_to_risk"
	StatusForwardedToRiskAndCompliance Status = "forwarded_to_risk_and_compliance"
	StatusApplicationCompleted   Status = "application_completed"
	StatusRejected               Status = "rejected"
)

// AllStatuses lists every pipeline status. Order follows the pipeline; tests
// iterate this to cover the full input space of the transition table.
var AllStatuses = []Status{
	StatusDraft,
	StatusPBSubmitted,
	StatusSubmittedToSPU,
	StatusSubmittedBySPU,
	StatusAssignedToEAMVUOfficer,
	StatusReturnedByEAMVUOfficer,
	StatusSubmittedByEAMVU,
	StatusSubmittedByCOPS,
	StatusSubmittedToCIU,
	StatusForwardedToRisk,
	StatusForwardedToRiskAndCompliance,
	StatusApplicationCompleted,
	StatusRejected,
}

var validStatuses = func() map[Status]bool {
	m := make(map[Status]bool, len(AllStatuses))
	for _, s := range AllStatuses {
		m[s] = true
	}
	return m
}()

// ParseStatus constructs a Status from stored input. Stores call this when
// hydrating rows so a corrupted column surfaces as an error instead of a
// status the table has never heard of.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.IsValid() {
		return "", dErrors.Newf(dErrors.CodeInternal, "unknown application status %q", s)
	}
	return st, nil
}

// IsValid checks if the status is one of the supported enum values.
func (s Status) IsValid() bool {
	return validStatuses[s]
}

// IsTerminal reports whether the status has no outbound transitions.
// application_completed and rejected are just states; rows are never deleted.
func (s Status) IsTerminal() bool {
	return s == StatusApplicationCompleted || s == StatusRejected
}

// IsEscalated reports whether the application is parked with Risk/Compliance.
func (s Status) IsEscalated() bool {
	return s == StatusForwardedToRisk || s == StatusForwardedToRiskAndCompliance
}

// IsDualTrack reports whether COPS and EAMVU may act on the status.
// submitted_by_cops / submitted_by_eavmu are legacy single-track statuses from
// before flags existed; the other department may still complete them.
func (s Status) IsDualTrack() bool {
	switch s {
	case StatusSubmittedBySPU, StatusAssignedToEAMVUOfficer, StatusReturnedByEAMVUOfficer,
		StatusSubmittedByCOPS, StatusSubmittedByEAMVU:
		return true
	}
	return false
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}
