package handler

import (
	"insureadmin/internal/claims/models"
	dErrors "insureadmin/pkg/domain-errors"
)

// DecisionRequest is the HTTP body for a claim decision.
type DecisionRequest struct {
	Outcome string `json:"outcome"`

	parsed models.Status
}

func (r *DecisionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	status, err := models.ParseStatus(r.Outcome)
	if err != nil {
		return err
	}
	if !status.IsOutcome() {
		return dErrors.New(dErrors.CodeValidation, "outcome must be Approved or Rejected")
	}
	r.parsed = status
	return nil
}
