package domain

import (
	"strings"

	dErrors "losflow/pkg/domain-errors"
)

// Department identifies one of the bank departments acting on applications.
// Invariant: the value must be one of the supported departments.
//
// Usage: construct via ParseDepartment at trust boundaries (JWT claims, URL
// parameters) to enforce the allowlist; direct casting bypasses validation.
type Department string

const (
	DepartmentPB         Department = "pb"
	DepartmentSPU        Department = "spu"
	DepartmentCOPS       Department = "cops"
	DepartmentEAMVU      Department = "eamvu"
	DepartmentCIU        Department = "ciu"
	DepartmentRisk       Department = "risk"
	DepartmentCompliance Department = "compliance"
)

// AllDepartments lists every department in pipeline order.
var AllDepartments = []Department{
	DepartmentPB,
	DepartmentSPU,
	DepartmentCOPS,
	DepartmentEAMVU,
	DepartmentCIU,
	DepartmentRisk,
	DepartmentCompliance,
}

// validDepartments is the single source of truth for valid departments.
var validDepartments = map[Department]bool{
	DepartmentPB:         true,
	DepartmentSPU:        true,
	DepartmentCOPS:       true,
	DepartmentEAMVU:      true,
	DepartmentCIU:        true,
	DepartmentRisk:       true,
	DepartmentCompliance: true,
}

// ParseDepartment constructs a Department from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseDepartment(s string) (Department, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "department cannot be empty")
	}
	d := Department(strings.ToLower(s))
	if !d.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown department")
	}
	return d, nil
}

// IsValid checks if the department is one of the supported enum values.
func (d Department) IsValid() bool {
	return validDepartments[d]
}

// String returns the string representation of the department.
func (d Department) String() string {
	return string(d)
}
