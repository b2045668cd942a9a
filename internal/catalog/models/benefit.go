package models

import id "insureadmin/pkg/domain"

// Benefit is a reusable coverage category owned outside the catalog's write
// path. The catalog only reads benefits to resolve policy links.
type Benefit struct {
	ID        id.BenefitID `json:"id"`
	Name      string       `json:"name"`
	LimitType LimitType    `json:"limit_type"`
}

// PolicyBenefitLink attaches one benefit to a policy with a policy-specific
// limit. The limit's unit comes from the benefit's LimitType at display time.
type PolicyBenefitLink struct {
	BenefitID id.BenefitID `json:"benefit_id"`
	Limit     float64      `json:"limit"`
}

// BenefitIndex resolves benefit IDs to definitions.
type BenefitIndex map[id.BenefitID]Benefit

func NewBenefitIndex(benefits []Benefit) BenefitIndex {
	idx := make(BenefitIndex, len(benefits))
	for _, b := range benefits {
		idx[b.ID] = b
	}
	return idx
}

func (idx BenefitIndex) Lookup(benefitID id.BenefitID) (Benefit, bool) {
	b, ok := idx[benefitID]
	return b, ok
}
