// Package composition assembles the benefit links of a policy being edited.
// Invalid edits are absorbed as no-ops and reported through a tagged Outcome
// rather than an error.
package composition

import (
	"math"

	"insureadmin/internal/catalog/models"
	id "insureadmin/pkg/domain"
)

// Outcome reports what an edit did to the policy.
type Outcome int

const (
	// OutcomeApplied means the link set or a limit changed.
	OutcomeApplied Outcome = iota
	// OutcomeNoop means the edit was already in effect (include twice, exclude absent).
	OutcomeNoop
	// OutcomeNotIncluded means a limit was set on a benefit that is not linked.
	OutcomeNotIncluded
	// OutcomeInvalidValue means the limit was negative or not a finite number.
	OutcomeInvalidValue
	// OutcomeOutOfRange means a percentage limit exceeded 100 with the cap enabled.
	OutcomeOutOfRange
	// OutcomeUnknownBenefit means the benefit is not in the catalog.
	OutcomeUnknownBenefit
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeNoop:
		return "noop"
	case OutcomeNotIncluded:
		return "not_included"
	case OutcomeInvalidValue:
		return "invalid_value"
	case OutcomeOutOfRange:
		return "out_of_range"
	case OutcomeUnknownBenefit:
		return "unknown_benefit"
	default:
		return "unknown"
	}
}

// Changed reports whether the policy was modified.
func (o Outcome) Changed() bool {
	return o == OutcomeApplied
}

// Composer edits the benefit links of one policy against a benefit catalog.
// It mutates the policy it was given and is not safe for concurrent use.
type Composer struct {
	policy        *models.Policy
	benefits      models.BenefitIndex
	percentageCap bool
}

type Option func(*Composer)

// WithPercentageCap rejects Percentage limits above 100. Off by default:
// limit type only governs display unless the operator opts in.
func WithPercentageCap(enabled bool) Option {
	return func(c *Composer) {
		c.percentageCap = enabled
	}
}

func New(policy *models.Policy, benefits []models.Benefit, opts ...Option) *Composer {
	c := &Composer{
		policy:   policy,
		benefits: models.NewBenefitIndex(benefits),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Policy returns the policy being edited.
func (c *Composer) Policy() *models.Policy {
	return c.policy
}

// Include links a benefit with limit 0. Including a linked benefit is a no-op.
func (c *Composer) Include(benefitID id.BenefitID) Outcome {
	if _, ok := c.benefits.Lookup(benefitID); !ok {
		return OutcomeUnknownBenefit
	}
	if c.policy.HasBenefit(benefitID) {
		return OutcomeNoop
	}
	c.policy.Benefits = append(c.policy.Benefits, models.PolicyBenefitLink{BenefitID: benefitID})
	return OutcomeApplied
}

// Exclude unlinks a benefit. Excluding an absent benefit is a no-op.
func (c *Composer) Exclude(benefitID id.BenefitID) Outcome {
	i := c.policy.LinkIndex(benefitID)
	if i < 0 {
		return OutcomeNoop
	}
	c.policy.Benefits = append(c.policy.Benefits[:i:i], c.policy.Benefits[i+1:]...)
	return OutcomeApplied
}

// SetLimit sets the limit of a linked benefit. Limits on unlinked benefits are
// refused so no orphaned limit data exists.
func (c *Composer) SetLimit(benefitID id.BenefitID, value float64) Outcome {
	i := c.policy.LinkIndex(benefitID)
	if i < 0 {
		return OutcomeNotIncluded
	}
	if value < 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return OutcomeInvalidValue
	}
	if c.percentageCap && value > 100 {
		if b, ok := c.benefits.Lookup(benefitID); ok && b.LimitType == models.LimitPercentage {
			return OutcomeOutOfRange
		}
	}
	if c.policy.Benefits[i].Limit == value {
		return OutcomeNoop
	}
	c.policy.Benefits[i].Limit = value
	return OutcomeApplied
}

// LinkView is a display-ready benefit link.
type LinkView struct {
	BenefitID id.BenefitID     `json:"benefit_id"`
	Name      string           `json:"name"`
	LimitType models.LimitType `json:"limit_type,omitempty"`
	Limit     float64          `json:"limit"`
	Display   string           `json:"display"`
	Resolved  bool             `json:"resolved"`
}

// UnknownBenefitName is shown for links whose benefit is not in the catalog.
const UnknownBenefitName = "Unknown"

// Describe resolves a link for display, in the policy's currency.
func (c *Composer) Describe(link models.PolicyBenefitLink) LinkView {
	return Describe(link, c.benefits, c.policy.Currency)
}

// Links describes every link of the policy in order.
func (c *Composer) Links() []LinkView {
	views := make([]LinkView, 0, len(c.policy.Benefits))
	for _, l := range c.policy.Benefits {
		views = append(views, c.Describe(l))
	}
	return views
}

// Describe resolves link against idx. Unresolved links render as Unknown
// with the bare number.
func Describe(link models.PolicyBenefitLink, idx models.BenefitIndex, currency models.Currency) LinkView {
	b, ok := idx.Lookup(link.BenefitID)
	if !ok {
		return LinkView{
			BenefitID: link.BenefitID,
			Name:      UnknownBenefitName,
			Limit:     link.Limit,
			Display:   formatNumber(link.Limit),
		}
	}
	return LinkView{
		BenefitID: link.BenefitID,
		Name:      b.Name,
		LimitType: b.LimitType,
		Limit:     link.Limit,
		Display:   FormatIn(link.Limit, b.LimitType, currency),
		Resolved:  true,
	}
}
