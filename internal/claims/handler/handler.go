package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"insureadmin/internal/claims/models"
	"insureadmin/internal/claims/service"
	"insureadmin/internal/platform/middleware"
	"insureadmin/internal/session"
	id "insureadmin/pkg/domain"
	"insureadmin/pkg/platform/httputil"
	"insureadmin/pkg/requestcontext"
)

// Service is the adjudication surface used over HTTP.
type Service interface {
	List(ctx context.Context) ([]models.Claim, error)
	Get(ctx context.Context, claimID id.ClaimID) (*models.Claim, error)
	DecideByID(ctx context.Context, claimID id.ClaimID, outcome models.Status, actor id.UserID) (service.DecisionResult, error)
	RequestAdvisoryByID(ctx context.Context, claimID id.ClaimID) (string, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts claim endpoints. Callers install RequireSession first.
func (h *Handler) Register(r chi.Router) {
	view := r.With(middleware.RequireCapability(session.CapViewClaims))
	view.Get("/claims", h.HandleList)
	view.Get("/claims/{id}", h.HandleGet)

	r.With(middleware.RequireCapability(session.CapAdjudicateClaims)).Post("/claims/{id}/decision", h.HandleDecide)
	r.With(middleware.RequireCapability(session.CapAskAdvisor)).Post("/claims/{id}/advisory", h.HandleAdvisory)
}

// HandleList handles GET /claims.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	claims, err := h.service.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ClaimListResponse{Claims: claims})
}

// HandleGet handles GET /claims/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	claimID, err := id.ParseClaimID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	claim, err := h.service.Get(r.Context(), claimID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, claim)
}

// HandleDecide handles POST /claims/{id}/decision. The acting user is taken
// from the session, never from the body. Returns 202 when the decision was
// applied but not persisted.
func (h *Handler) HandleDecide(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	claimID, err := id.ParseClaimID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[DecisionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.DecideByID(ctx, claimID, req.parsed, requestcontext.UserID(ctx))
	if err != nil {
		h.logger.WarnContext(ctx, "claim decision rejected",
			"request_id", requestID,
			"claim_id", claimID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	status := http.StatusOK
	if !result.Persisted {
		status = http.StatusAccepted
	}
	httputil.WriteJSON(w, status, DecisionResponse{
		Claim:     result.Claim,
		Persisted: result.Persisted,
		Result:    result.Outcome.String(),
	})
}

// HandleAdvisory handles POST /claims/{id}/advisory.
func (h *Handler) HandleAdvisory(w http.ResponseWriter, r *http.Request) {
	claimID, err := id.ParseClaimID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	analysis, err := h.service.RequestAdvisoryByID(r.Context(), claimID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, AdvisoryResponse{Analysis: analysis})
}
