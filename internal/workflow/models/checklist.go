package models

import (
	"sort"
	"strings"

	dErrors "losflow/pkg/domain-errors"
)

// CheckKind names one of the fixed pre-issuance screening checks. The engine
// treats each check as an opaque pass/fail recorded by SPU; the lookups behind
// them (credit bureau, fraud, blacklists) run outside this system.
type CheckKind string

const (
	CheckECIB         CheckKind = "ecib"
	CheckFRMU         CheckKind = "frmu"
	CheckNegativeList CheckKind = "negative_list"
	CheckPEPList      CheckKind = "pep_list"
	CheckCreditCard30 CheckKind = "credit_card_30k"
	CheckBlackList    CheckKind = "black_list"
	CheckCTL          CheckKind = "ctl"
)

// AllCheckKinds is the fixed key set. A checklist is complete iff every kind
// listed here has a non-null IsChecked.
var AllCheckKinds = []CheckKind{
	CheckECIB,
	CheckFRMU,
	CheckNegativeList,
	CheckPEPList,
	CheckCreditCard30,
	CheckBlackList,
	CheckCTL,
}

var validCheckKinds = func() map[CheckKind]bool {
	m := make(map[CheckKind]bool, len(AllCheckKinds))
	for _, k := range AllCheckKinds {
		m[k] = true
	}
	return m
}()

// ParseCheckKind constructs a CheckKind from external input.
//
// Errors: CodeUnknownCheckKind when the value is outside the fixed set, so a
// typo in a dashboard never creates a stray checklist column.
func ParseCheckKind(s string) (CheckKind, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeUnknownCheckKind, "check kind cannot be empty")
	}
	k := CheckKind(strings.ToLower(s))
	if !validCheckKinds[k] {
		return "", dErrors.Newf(dErrors.CodeUnknownCheckKind, "unknown check kind %q", s)
	}
	return k, nil
}

// IsValid checks if the kind is one of the fixed checklist keys.
func (k CheckKind) IsValid() bool {
	return validCheckKinds[k]
}

func (k CheckKind) String() string {
	return string(k)
}

// CheckResult is the recorded outcome of one check. Both fields are null until
// SPU records the check; IsChecked=false is a recorded fail, not "unset".
type CheckResult struct {
	IsChecked *bool   `json:"is_checked"`
	Comment   *string `json:"comment"`
}

// Checklist maps every fixed check kind to its recorded outcome. Entries for
// unrecorded checks are present with null fields; callers must not assume
// presence implies completion.
type Checklist map[CheckKind]CheckResult

// NewChecklist returns a checklist with every fixed key present and unset.
func NewChecklist() Checklist {
	c := make(Checklist, len(AllCheckKinds))
	for _, k := range AllCheckKinds {
		c[k] = CheckResult{}
	}
	return c
}

// Missing returns the kinds that have no recorded outcome yet, sorted for
// stable error messages.
func (c Checklist) Missing() []CheckKind {
	var missing []CheckKind
	for _, k := range AllCheckKinds {
		if r, ok := c[k]; !ok || r.IsChecked == nil {
			missing = append(missing, k)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	return missing
}

// IsComplete reports whether every fixed key has a recorded outcome.
// Completion is a derived read, never a stored flag.
func (c Checklist) IsComplete() bool {
	return len(c.Missing()) == 0
}

// Completion is returned from checklist writes so dashboards can flip the
// "ready to submit" control without a second round trip.
type Completion struct {
	Complete bool        `json:"complete"`
	Missing  []CheckKind `json:"missing,omitempty"`
}

// ChecklistIncompleteError builds the caller-facing gate error listing the
// missing keys, e.g. "checklist incomplete: missing ecib, frmu".
func ChecklistIncompleteError(missing []CheckKind) error {
	names := make([]string, len(missing))
	for i, k := range missing {
		names[i] = k.String()
	}
	return dErrors.Newf(dErrors.CodeChecklistIncomplete, "checklist incomplete: missing %s", strings.Join(names, ", "))
}

// ChecklistEntry is the wire form of one checklist row; GetChecklist always
// returns all fixed keys in declaration order.
type ChecklistEntry struct {
	Kind      CheckKind `json:"kind"`
	IsChecked *bool     `json:"is_checked"`
	Comment   *string   `json:"comment"`
}

// Entries renders the checklist as the full fixed key set.
func (c Checklist) Entries() []ChecklistEntry {
	entries := make([]ChecklistEntry, 0, len(AllCheckKinds))
	for _, k := range AllCheckKinds {
		r := c[k]
		entries = append(entries, ChecklistEntry{Kind: k, IsChecked: r.IsChecked, Comment: r.Comment})
	}
	return entries
}
