package models

import (
	"fmt"
	"time"

	id "insureadmin/pkg/domain"
)

// Member is the covered individual behind a claim. Status is owned by the
// member-management backend and is passed through verbatim.
type Member struct {
	ID          id.MemberID `json:"id"`
	Name        string      `json:"name,omitempty"`
	Status      string      `json:"status"`
	DateOfBirth time.Time   `json:"date_of_birth"`
}

// AgeAt returns completed years at now, or -1 without a date of birth.
func (m *Member) AgeAt(now time.Time) int {
	if m.DateOfBirth.IsZero() {
		return -1
	}
	dob := m.DateOfBirth.In(now.Location())
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	return max(age, 0)
}

// Summary renders the member context sent with a claim analysis request.
func (m *Member) Summary(now time.Time) string {
	if m == nil {
		return "Member status: unknown, age: unknown"
	}
	status := m.Status
	if status == "" {
		status = "unknown"
	}
	age := m.AgeAt(now)
	if age < 0 {
		return fmt.Sprintf("Member status: %s, age: unknown", status)
	}
	return fmt.Sprintf("Member status: %s, age: %d", status, age)
}
