package models

import (
	"strings"

	id "losflow/pkg/domain"
	dErrors "losflow/pkg/domain-errors"
)

// InitializeRequest is the callback body from the external product application
// store, sent when a product-specific form is first persisted.
type InitializeRequest struct {
	ApplicationID string `json:"application_id"`
	LosID         string `json:"los_id"`
	ProductType   string `json:"product_type"`
}

func (r *InitializeRequest) Normalize() {
	if r == nil {
		return
	}
	r.ApplicationID = strings.TrimSpace(r.ApplicationID)
	r.LosID = strings.TrimSpace(r.LosID)
	r.ProductType = strings.TrimSpace(strings.ToLower(r.ProductType))
}

// Follows validation order: Size -> Required -> Syntax -> Semantic.
func (r *InitializeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if len(r.LosID) > 64 {
		return dErrors.New(dErrors.CodeValidation, "los_id must be 64 characters or less")
	}
	if r.ProductType == "" {
		return dErrors.New(dErrors.CodeValidation, "product_type is required")
	}
	if _, err := id.ParseProductType(r.ProductType); err != nil {
		return dErrors.New(dErrors.CodeValidation, "product_type must be one of the supported products")
	}
	if r.ApplicationID != "" {
		if _, err := id.ParseApplicationID(r.ApplicationID); err != nil {
			return dErrors.New(dErrors.CodeValidation, "application_id must be a valid UUID")
		}
	}
	return nil
}

// ActionRequest is a department dashboard's approve/reject/assign/return/
// escalate control. The department itself comes from the authenticated
// context, never the body, and there is deliberately no destination status
// field anywhere on this type.
type ActionRequest struct {
	Action string `json:"action"`
	// Target selects the escalation lane; required iff Action is escalate.
	Target string `json:"target,omitempty"`
}

func (r *ActionRequest) Normalize() {
	if r == nil {
		return
	}
	r.Action = strings.TrimSpace(strings.ToLower(r.Action))
	r.Target = strings.TrimSpace(strings.ToLower(r.Target))
}

func (r *ActionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.Action == "" {
		return dErrors.New(dErrors.CodeValidation, "action is required")
	}
	action, err := id.ParseAction(r.Action)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "action must be one of submit, approve, reject, assign, return, escalate")
	}
	if action == id.ActionEscalate {
		if r.Target == "" {
			return dErrors.New(dErrors.CodeValidation, "target is required when escalating")
		}
		if _, err := id.ParseEscalationTarget(r.Target); err != nil {
			return dErrors.New(dErrors.CodeValidation, "target must be 'risk' or 'risk_and_compliance'")
		}
	} else if r.Target != "" {
		return dErrors.New(dErrors.CodeValidation, "target is only valid with action=escalate")
	}
	return nil
}

// ResolveRequest closes out an escalation; the non-empty comment is the
// completion evidence.
type ResolveRequest struct {
	Comment string `json:"comment"`
}

func (r *ResolveRequest) Normalize() {
	if r == nil {
		return
	}
	r.Comment = strings.TrimSpace(r.Comment)
}

func (r *ResolveRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if len(r.Comment) > 2000 {
		return dErrors.New(dErrors.CodeValidation, "comment must be 2000 characters or less")
	}
	if r.Comment == "" {
		return dErrors.New(dErrors.CodeValidation, "a non-empty resolution comment is required")
	}
	return nil
}

// SetCheckRequest records one screening check outcome.
type SetCheckRequest struct {
	IsChecked *bool   `json:"is_checked"`
	Comment   *string `json:"comment,omitempty"`
}

func (r *SetCheckRequest) Normalize() {
	if r == nil || r.Comment == nil {
		return
	}
	trimmed := strings.TrimSpace(*r.Comment)
	if trimmed == "" {
		r.Comment = nil
		return
	}
	r.Comment = &trimmed
}

func (r *SetCheckRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.Comment != nil && len(*r.Comment) > 1000 {
		return dErrors.New(dErrors.CodeValidation, "comment must be 1000 characters or less")
	}
	if r.IsChecked == nil {
		return dErrors.New(dErrors.CodeValidation, "is_checked is required")
	}
	return nil
}
