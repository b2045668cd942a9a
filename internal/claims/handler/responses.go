package handler

import (
	"insureadmin/internal/claims/models"
)

type ClaimListResponse struct {
	Claims []models.Claim `json:"claims"`
}

type DecisionResponse struct {
	Claim     models.Claim `json:"claim"`
	Persisted bool         `json:"persisted"`
	Result    string       `json:"result"`
}

type AdvisoryResponse struct {
	Analysis string `json:"analysis"`
}
