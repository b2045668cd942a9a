package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "insureadmin/pkg/domain-errors"
)

func TestMapRole(t *testing.T) {
	cases := []struct {
		backend BackendRole
		want    Role
	}{
		{BackendAdmin, RoleAdmin},
		{BackendStaff, RoleAgent},
		{BackendProvider, RoleProvider},
		{BackendMember, RoleMember},
		{"staff", RoleAgent},
		{" PROVIDER ", RoleProvider},
	}
	for _, tc := range cases {
		got, err := MapRole(tc.backend)
		require.NoError(t, err, tc.backend)
		assert.Equal(t, tc.want, got, tc.backend)
	}

	_, err := MapRole("AGENT")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized), "AGENT is presentation-only")
	_, err = MapRole("")
	assert.Error(t, err)
}

func TestCapabilities(t *testing.T) {
	assert.ElementsMatch(t,
		[]Capability{CapManagePolicies, CapAdjudicateClaims, CapViewClaims, CapViewPolicies, CapAskAdvisor},
		Capabilities(RoleAdmin))
	assert.ElementsMatch(t,
		[]Capability{CapAdjudicateClaims, CapViewClaims, CapViewPolicies, CapAskAdvisor},
		Capabilities(RoleAgent))
	assert.Equal(t, []Capability{CapViewClaims}, Capabilities(RoleProvider))
	assert.Equal(t, []Capability{CapViewPolicies}, Capabilities(RoleMember))
	assert.Empty(t, Capabilities("GUEST"))

	assert.False(t, RoleAgent.Can(CapManagePolicies))
	assert.True(t, RoleAdmin.Can(CapManagePolicies))
	assert.False(t, RoleProvider.Can(CapAdjudicateClaims))

	caps := Capabilities(RoleMember)
	caps[0] = CapManagePolicies
	assert.False(t, RoleMember.Can(CapManagePolicies), "returned slice is a copy")
}
