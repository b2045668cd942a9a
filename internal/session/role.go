package session

import (
	"fmt"
	"slices"
	"strings"

	dErrors "insureadmin/pkg/domain-errors"
)

// BackendRole is the role vocabulary of the administration backend.
type BackendRole string

const (
	BackendAdmin    BackendRole = "ADMIN"
	BackendStaff    BackendRole = "STAFF"
	BackendProvider BackendRole = "PROVIDER"
	BackendMember   BackendRole = "MEMBER"
)

// Role is the console's presentation role.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleAgent    Role = "AGENT"
	RoleProvider Role = "PROVIDER"
	RoleMember   Role = "MEMBER"
)

func (r Role) String() string { return string(r) }

func (r Role) IsValid() bool {
	_, ok := capabilities[r]
	return ok
}

// MapRole translates a backend role into the console role. STAFF becomes
// AGENT; every other known role passes through unchanged.
func MapRole(role BackendRole) (Role, error) {
	switch BackendRole(strings.ToUpper(strings.TrimSpace(string(role)))) {
	case BackendAdmin:
		return RoleAdmin, nil
	case BackendStaff:
		return RoleAgent, nil
	case BackendProvider:
		return RoleProvider, nil
	case BackendMember:
		return RoleMember, nil
	}
	return "", dErrors.New(dErrors.CodeUnauthorized, fmt.Sprintf("unsupported backend role %q", role))
}

// Capability names one thing a console role may do.
type Capability string

const (
	CapManagePolicies   Capability = "manage_policies"
	CapAdjudicateClaims Capability = "adjudicate_claims"
	CapViewClaims       Capability = "view_claims"
	CapViewPolicies     Capability = "view_policies"
	CapAskAdvisor       Capability = "ask_advisor"
)

var capabilities = map[Role][]Capability{
	RoleAdmin:    {CapManagePolicies, CapAdjudicateClaims, CapViewClaims, CapViewPolicies, CapAskAdvisor},
	RoleAgent:    {CapAdjudicateClaims, CapViewClaims, CapViewPolicies, CapAskAdvisor},
	RoleProvider: {CapViewClaims},
	RoleMember:   {CapViewPolicies},
}

// Capabilities returns a copy of the capability set for role. Unknown roles
// get nothing.
func Capabilities(role Role) []Capability {
	return slices.Clone(capabilities[role])
}

// Can reports whether role holds capability.
func (r Role) Can(capability Capability) bool {
	return slices.Contains(capabilities[r], capability)
}
