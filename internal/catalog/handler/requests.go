package handler

import (
	"fmt"
	"strings"

	"insureadmin/internal/catalog/models"
	id "insureadmin/pkg/domain"
	dErrors "insureadmin/pkg/domain-errors"
)

const (
	maxFeatures   = 50
	maxLinks      = 200
	maxEdits      = 200
	maxQueryChars = 2000
)

// PolicyRequest is the HTTP body for a policy draft.
type PolicyRequest struct {
	ID            string                     `json:"id,omitempty"`
	Name          string                     `json:"name"`
	Currency      models.Currency            `json:"currency"`
	Tier          models.Tier                `json:"tier"`
	CoverageLimit float64                    `json:"coverage_limit"`
	Premiums      models.Premiums            `json:"premiums"`
	Features      []string                   `json:"features"`
	Benefits      []models.PolicyBenefitLink `json:"benefits"`

	parsedID id.PolicyID
}

// Validate checks request shape only. Domain rules (name, duplicates,
// enums) are the service's to report.
func (r *PolicyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Features) > maxFeatures {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("at most %d features are allowed", maxFeatures))
	}
	if len(r.Benefits) > maxLinks {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("at most %d benefit links are allowed", maxLinks))
	}
	r.Name = strings.TrimSpace(r.Name)
	r.ID = strings.TrimSpace(r.ID)
	if r.ID != "" {
		parsed, err := id.ParsePolicyID(r.ID)
		if err != nil {
			return err
		}
		r.parsedID = parsed
	}
	features := r.Features[:0]
	for _, f := range r.Features {
		if f = strings.TrimSpace(f); f != "" {
			features = append(features, f)
		}
	}
	r.Features = features
	return nil
}

func (r *PolicyRequest) ToModel() *models.Policy {
	return &models.Policy{
		ID:            r.parsedID,
		Name:          r.Name,
		Currency:      models.Currency(strings.ToUpper(string(r.Currency))),
		Tier:          r.Tier,
		CoverageLimit: r.CoverageLimit,
		Premiums:      r.Premiums,
		Features:      append([]string(nil), r.Features...),
		Benefits:      append([]models.PolicyBenefitLink(nil), r.Benefits...),
	}
}

// EditOp names a composition step.
type EditOp string

const (
	EditInclude  EditOp = "include"
	EditExclude  EditOp = "exclude"
	EditSetLimit EditOp = "set_limit"
)

type Edit struct {
	Op        EditOp   `json:"op"`
	BenefitID string   `json:"benefit_id"`
	Value     *float64 `json:"value,omitempty"`
}

// ComposeRequest applies edits to a draft without saving it.
type ComposeRequest struct {
	Policy PolicyRequest `json:"policy"`
	Edits  []Edit        `json:"edits"`
}

func (r *ComposeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Edits) > maxEdits {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("at most %d edits are allowed", maxEdits))
	}
	if err := r.Policy.Validate(); err != nil {
		return err
	}
	for i := range r.Edits {
		e := &r.Edits[i]
		e.Op = EditOp(strings.ToLower(strings.TrimSpace(string(e.Op))))
		e.BenefitID = strings.TrimSpace(e.BenefitID)
		if _, err := id.ParseBenefitID(e.BenefitID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeValidation, fmt.Sprintf("edits[%d].benefit_id is invalid", i))
		}
		switch e.Op {
		case EditInclude, EditExclude:
		case EditSetLimit:
			if e.Value == nil {
				return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("edits[%d].value is required for set_limit", i))
			}
		default:
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("edits[%d].op must be include, exclude or set_limit", i))
		}
	}
	return nil
}

// AdvisorRequest is a free-text policy question.
type AdvisorRequest struct {
	Query string `json:"query"`
}

func (r *AdvisorRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Query = strings.TrimSpace(r.Query)
	if r.Query == "" {
		return dErrors.New(dErrors.CodeValidation, "query is required")
	}
	if len(r.Query) > maxQueryChars {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("query must be at most %d characters", maxQueryChars))
	}
	return nil
}
