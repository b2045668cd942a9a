package handler

import (
	"insureadmin/internal/catalog/composition"
	"insureadmin/internal/catalog/models"
	"insureadmin/internal/catalog/service"
)

// PolicyResponse is a policy with its links resolved for display.
type PolicyResponse struct {
	*models.Policy
	Links        []composition.LinkView `json:"links"`
	CoverageText string                 `json:"coverage_text"`
}

func toPolicyResponse(p *models.Policy, idx models.BenefitIndex) PolicyResponse {
	links := make([]composition.LinkView, 0, len(p.Benefits))
	for _, l := range p.Benefits {
		links = append(links, composition.Describe(l, idx, p.Currency))
	}
	return PolicyResponse{
		Policy:       p,
		Links:        links,
		CoverageText: composition.FormatIn(p.CoverageLimit, models.LimitAmount, p.Currency),
	}
}

type CatalogResponse struct {
	Policies []PolicyResponse `json:"policies"`
	Benefits []models.Benefit `json:"benefits"`
}

func toCatalogResponse(c service.Catalog) CatalogResponse {
	idx := models.NewBenefitIndex(c.Benefits)
	policies := make([]PolicyResponse, 0, len(c.Policies))
	for i := range c.Policies {
		policies = append(policies, toPolicyResponse(&c.Policies[i], idx))
	}
	return CatalogResponse{Policies: policies, Benefits: c.Benefits}
}

// SaveResponse reports a save. Persisted=false means the backend did not
// take the write and the draft should be kept and retried.
type SaveResponse struct {
	Policy    PolicyResponse `json:"policy"`
	Persisted bool           `json:"persisted"`
	Result    string         `json:"result"`
}

type EditOutcome struct {
	Op        EditOp `json:"op"`
	BenefitID string `json:"benefit_id"`
	Outcome   string `json:"outcome"`
	Changed   bool   `json:"changed"`
}

type ComposeResponse struct {
	Policy   PolicyResponse `json:"policy"`
	Outcomes []EditOutcome  `json:"outcomes"`
}

type AdvisorResponse struct {
	Answer string `json:"answer"`
}
