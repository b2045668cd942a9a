// Package domain holds identifier primitives shared by every bounded context.
//
// Identifiers are opaque strings issued by the backend (or, for policies, by the
// catalog service at first save). Distinct types keep a ClaimID from being passed
// where a PolicyID is expected. Parse at trust boundaries; direct conversion skips
// validation and is reserved for trusted sources such as stored records.
package domain

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	dErrors "insureadmin/pkg/domain-errors"
)

const maxIDLength = 128

// idPattern keeps identifiers safe to embed in resource paths and cache keys.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.:\-]*$`)

type (
	PolicyID   string
	BenefitID  string
	ClaimID    string
	MemberID   string
	ProviderID string
	UserID     string
	SessionID  string
)

func (id PolicyID) String() string   { return string(id) }
func (id BenefitID) String() string  { return string(id) }
func (id ClaimID) String() string    { return string(id) }
func (id MemberID) String() string   { return string(id) }
func (id ProviderID) String() string { return string(id) }
func (id UserID) String() string     { return string(id) }
func (id SessionID) String() string  { return string(id) }

func (id PolicyID) IsNil() bool  { return id == "" }
func (id BenefitID) IsNil() bool { return id == "" }
func (id ClaimID) IsNil() bool   { return id == "" }
func (id MemberID) IsNil() bool  { return id == "" }
func (id UserID) IsNil() bool    { return id == "" }
func (id SessionID) IsNil() bool { return id == "" }

// NewPolicyID issues a globally unique policy identifier.
func NewPolicyID() PolicyID {
	return PolicyID(uuid.NewString())
}

// NewSessionID issues a session identifier.
func NewSessionID() SessionID {
	return SessionID(uuid.NewString())
}

func parseID(kind, raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", dErrors.New(dErrors.CodeValidation, kind+" is required")
	}
	if len(raw) > maxIDLength {
		return "", dErrors.New(dErrors.CodeValidation, kind+" is too long")
	}
	if !idPattern.MatchString(raw) {
		return "", dErrors.New(dErrors.CodeValidation, "invalid "+kind)
	}
	return raw, nil
}

func ParsePolicyID(raw string) (PolicyID, error) {
	v, err := parseID("policy_id", raw)
	return PolicyID(v), err
}

func ParseBenefitID(raw string) (BenefitID, error) {
	v, err := parseID("benefit_id", raw)
	return BenefitID(v), err
}

func ParseClaimID(raw string) (ClaimID, error) {
	v, err := parseID("claim_id", raw)
	return ClaimID(v), err
}

func ParseMemberID(raw string) (MemberID, error) {
	v, err := parseID("member_id", raw)
	return MemberID(v), err
}

func ParseUserID(raw string) (UserID, error) {
	v, err := parseID("user_id", raw)
	return UserID(v), err
}

func ParseSessionID(raw string) (SessionID, error) {
	v, err := parseID("session_id", raw)
	return SessionID(v), err
}
