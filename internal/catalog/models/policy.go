package models

import (
	"fmt"
	"math"
	"strings"

	id "insureadmin/pkg/domain"
	dErrors "insureadmin/pkg/domain-errors"
)

// Premiums is the monthly premium schedule in the policy's currency.
type Premiums struct {
	Adult  float64 `json:"adult"`
	Child  float64 `json:"child"`
	Senior float64 `json:"senior"`
}

// Policy is a sellable plan.
//
// Invariants:
//   - Name is non-empty
//   - Benefits holds at most one link per BenefitID
//   - Currency and Tier are members of their closed sets
//   - CoverageLimit, premiums and link limits are non-negative
//   - ID is assigned on first save and never changes
//
// Policies are replaced whole; there is no partial update.
type Policy struct {
	ID            id.PolicyID         `json:"id"`
	Name          string              `json:"name"`
	Currency      Currency            `json:"currency"`
	Tier          Tier                `json:"tier"`
	CoverageLimit float64             `json:"coverage_limit"`
	Premiums      Premiums            `json:"premiums"`
	Features      []string            `json:"features"`
	Benefits      []PolicyBenefitLink `json:"benefits"`
}

// LinkIndex returns the position of the link for benefitID, or -1.
func (p *Policy) LinkIndex(benefitID id.BenefitID) int {
	for i, l := range p.Benefits {
		if l.BenefitID == benefitID {
			return i
		}
	}
	return -1
}

func (p *Policy) HasBenefit(benefitID id.BenefitID) bool {
	return p.LinkIndex(benefitID) >= 0
}

// DuplicateBenefit reports the first benefit linked more than once.
func (p *Policy) DuplicateBenefit() (id.BenefitID, bool) {
	seen := make(map[id.BenefitID]struct{}, len(p.Benefits))
	for _, l := range p.Benefits {
		if _, ok := seen[l.BenefitID]; ok {
			return l.BenefitID, true
		}
		seen[l.BenefitID] = struct{}{}
	}
	return "", false
}

// Validate checks the aggregate's own invariants. Name is checked first so an
// unnamed draft is always reported as such.
func (p *Policy) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return dErrors.New(dErrors.CodeValidation, "policy name is required")
	}
	if dup, ok := p.DuplicateBenefit(); ok {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("benefit %s is linked more than once", dup))
	}
	if !p.Currency.IsValid() {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unsupported currency %q", p.Currency))
	}
	if !p.Tier.IsValid() {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unsupported tier %q", p.Tier))
	}
	if !nonNegative(p.CoverageLimit) {
		return dErrors.New(dErrors.CodeValidation, "coverage limit must be a non-negative number")
	}
	if !nonNegative(p.Premiums.Adult) || !nonNegative(p.Premiums.Child) || !nonNegative(p.Premiums.Senior) {
		return dErrors.New(dErrors.CodeValidation, "premiums must be non-negative numbers")
	}
	for _, l := range p.Benefits {
		if l.BenefitID.IsNil() {
			return dErrors.New(dErrors.CodeValidation, "benefit link is missing its benefit id")
		}
		if !nonNegative(l.Limit) {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("limit for benefit %s must be a non-negative number", l.BenefitID))
		}
	}
	return nil
}

// UnresolvedBenefits lists linked benefit IDs absent from idx.
func (p *Policy) UnresolvedBenefits(idx BenefitIndex) []id.BenefitID {
	var missing []id.BenefitID
	for _, l := range p.Benefits {
		if _, ok := idx.Lookup(l.BenefitID); !ok {
			missing = append(missing, l.BenefitID)
		}
	}
	return missing
}

// Clone returns a deep copy so callers can hand out policies without sharing slices.
func (p *Policy) Clone() *Policy {
	c := *p
	c.Features = append([]string(nil), p.Features...)
	c.Benefits = append([]PolicyBenefitLink(nil), p.Benefits...)
	return &c
}

func nonNegative(v float64) bool {
	return v >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
