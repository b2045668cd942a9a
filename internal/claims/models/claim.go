package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	id "insureadmin/pkg/domain"
	dErrors "insureadmin/pkg/domain-errors"
)

// Status is a claim's adjudication state. Pending is initial; Approved and
// Rejected are terminal.
type Status string

const (
	StatusPending  Status = "Pending"
	StatusApproved Status = "Approved"
	StatusRejected Status = "Rejected"
)

func (s Status) String() string { return string(s) }

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// IsOutcome reports whether s may be the result of a decision.
func (s Status) IsOutcome() bool {
	return s.IsTerminal()
}

// ParseStatus accepts status names case-insensitively.
func ParseStatus(raw string) (Status, error) {
	for _, s := range []Status{StatusPending, StatusApproved, StatusRejected} {
		if strings.EqualFold(strings.TrimSpace(raw), string(s)) {
			return s, nil
		}
	}
	return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown claim status %q", raw))
}

// Claim is a request for reimbursement against a member's policy.
//
// MemberName and ProviderName are copied in when the claim is created and
// are not refreshed when the member or provider record changes later.
type Claim struct {
	ID             id.ClaimID    `json:"id"`
	MemberID       id.MemberID   `json:"member_id"`
	MemberName     string        `json:"member_name"`
	ProviderID     id.ProviderID `json:"provider_id"`
	ProviderName   string        `json:"provider_name"`
	ServiceDate    time.Time     `json:"service_date"`
	Description    string        `json:"description"`
	DiagnosisCode  string        `json:"diagnosis_code"`
	ProcedureCode  string        `json:"procedure_code"`
	AmountBilled   float64       `json:"amount_billed"`
	AmountApproved float64       `json:"amount_approved"`
	Status         Status        `json:"status"`
	ApproverID     id.UserID     `json:"approver_id,omitempty"`
}

// CanDecide reports whether a decision may be recorded on the claim.
func (c *Claim) CanDecide() error {
	if c.Status != StatusPending {
		return dErrors.New(dErrors.CodeConflict,
			fmt.Sprintf("claim %s is %s; only pending claims can be decided", c.ID, c.Status))
	}
	return nil
}

// Decided returns a copy of c carrying the decision. c itself is unchanged.
// AmountApproved is left as it was.
func (c *Claim) Decided(outcome Status, approver id.UserID) (Claim, error) {
	if !outcome.IsOutcome() {
		return Claim{}, dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("outcome must be %s or %s", StatusApproved, StatusRejected))
	}
	if approver.IsNil() {
		return Claim{}, dErrors.New(dErrors.CodeValidation, "acting user is required")
	}
	if err := c.CanDecide(); err != nil {
		return Claim{}, err
	}
	decided := *c
	decided.Status = outcome
	decided.ApproverID = approver
	return decided, nil
}

// diagnosisPattern matches ICD-10 style codes: a letter, two digits or a
// digit and letter, then an optional dotted extension (A00, J45.909, S72.001A).
var diagnosisPattern = regexp.MustCompile(`^[A-Z][0-9][0-9A-Z](\.[0-9A-Z]{1,4})?$`)

// IsDiagnosisCode reports whether code has the shape of an ICD-10 code.
// Intake uses it as a hint; adjudication never blocks on it.
func IsDiagnosisCode(code string) bool {
	return diagnosisPattern.MatchString(strings.ToUpper(strings.TrimSpace(code)))
}
