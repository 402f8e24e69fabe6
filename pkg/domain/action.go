package domain

import (
	"strings"

	dErrors "losflow/pkg/domain-errors"
)

// Action is a department's verb against an application. The destination status
// is never part of the request; the transition table derives it server-side.
type Action string

const (
	ActionSubmit   Action = "submit"
	ActionApprove  Action = "approve"
	ActionReject   Action = "reject"
	ActionAssign   Action = "assign"
	ActionReturn   Action = "return"
	ActionEscalate Action = "escalate"
)

var validActions = map[Action]bool{
	ActionSubmit:   true,
	ActionApprove:  true,
	ActionReject:   true,
	ActionAssign:   true,
	ActionReturn:   true,
	ActionEscalate: true,
}

// ParseAction constructs an Action from external input.
func ParseAction(s string) (Action, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "action cannot be empty")
	}
	a := Action(strings.ToLower(s))
	if !a.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown action")
	}
	return a, nil
}

// IsValid checks if the action is one of the supported enum values.
func (a Action) IsValid() bool {
	return validActions[a]
}

func (a Action) String() string {
	return string(a)
}

// EscalationTarget selects the escalation lane when Action is escalate.
// It names a lane, not a raw status; the table maps it to the destination.
type EscalationTarget string

const (
	EscalateToRisk              EscalationTarget = "risk"
	EscalateToRiskAndCompliance EscalationTarget = "risk_and_compliance"
)

// ParseEscalationTarget constructs an EscalationTarget from external input.
func ParseEscalationTarget(s string) (EscalationTarget, error) {
	switch EscalationTarget(strings.ToLower(s)) {
	case EscalateToRisk:
		return EscalateToRisk, nil
	case EscalateToRiskAndCompliance:
		return EscalateToRiskAndCompliance, nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "escalation target must be 'risk' or 'risk_and_compliance'")
}

func (t EscalationTarget) String() string {
	return string(t)
}
