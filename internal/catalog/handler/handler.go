package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"insureadmin/internal/catalog/composition"
	"insureadmin/internal/catalog/models"
	"insureadmin/internal/catalog/service"
	"insureadmin/internal/platform/middleware"
	"insureadmin/internal/session"
	id "insureadmin/pkg/domain"
	"insureadmin/pkg/platform/httputil"
	"insureadmin/pkg/requestcontext"
)

// Service is the catalog surface used over HTTP.
type Service interface {
	Save(ctx context.Context, policy *models.Policy) (service.SaveResult, error)
	List(ctx context.Context) (service.Catalog, error)
	Get(ctx context.Context, policyID id.PolicyID) (*models.Policy, error)
	Composer(ctx context.Context, policy *models.Policy) *composition.Composer
	Benefits() []models.Benefit
	AskAdvisor(ctx context.Context, query string) string
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts catalog endpoints. Callers install RequireSession first.
func (h *Handler) Register(r chi.Router) {
	view := r.With(middleware.RequireCapability(session.CapViewPolicies))
	view.Get("/policies", h.HandleList)
	view.Get("/policies/{id}", h.HandleGet)

	manage := r.With(middleware.RequireCapability(session.CapManagePolicies))
	manage.Post("/policies", h.HandleSave)
	manage.Post("/policies/compose", h.HandleCompose)

	r.With(middleware.RequireCapability(session.CapAskAdvisor)).Post("/advisor/policies", h.HandleAskAdvisor)
}

// HandleList handles GET /policies. An unreachable backend yields an empty
// catalog, not an error.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.service.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCatalogResponse(catalog))
}

// HandleGet handles GET /policies/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	policyID, err := id.ParsePolicyID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	policy, err := h.service.Get(r.Context(), policyID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toPolicyResponse(policy, models.NewBenefitIndex(h.service.Benefits())))
}

// HandleSave handles POST /policies. Returns 200 when persisted and 202 when
// the policy is valid but held locally.
func (h *Handler) HandleSave(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[PolicyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Save(ctx, req.ToModel())
	if err != nil {
		h.logger.WarnContext(ctx, "policy save rejected",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	status := http.StatusOK
	if !result.Persisted {
		status = http.StatusAccepted
	}
	httputil.WriteJSON(w, status, SaveResponse{
		Policy:    toPolicyResponse(result.Policy, models.NewBenefitIndex(h.service.Benefits())),
		Persisted: result.Persisted,
		Result:    result.Outcome.String(),
	})
}

// HandleCompose handles POST /policies/compose. Edits are applied in order;
// rejected edits are reported, never raised.
func (h *Handler) HandleCompose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[ComposeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	policy := req.Policy.ToModel()
	composer := h.service.Composer(ctx, policy)
	outcomes := make([]EditOutcome, 0, len(req.Edits))
	for _, e := range req.Edits {
		benefitID := id.BenefitID(e.BenefitID)
		var outcome composition.Outcome
		switch e.Op {
		case EditInclude:
			outcome = composer.Include(benefitID)
		case EditExclude:
			outcome = composer.Exclude(benefitID)
		case EditSetLimit:
			outcome = composer.SetLimit(benefitID, *e.Value)
		}
		outcomes = append(outcomes, EditOutcome{
			Op:        e.Op,
			BenefitID: e.BenefitID,
			Outcome:   outcome.String(),
			Changed:   outcome.Changed(),
		})
	}

	httputil.WriteJSON(w, http.StatusOK, ComposeResponse{
		Policy:   toPolicyResponse(composer.Policy(), models.NewBenefitIndex(h.service.Benefits())),
		Outcomes: outcomes,
	})
}

// HandleAskAdvisor handles POST /advisor/policies.
func (h *Handler) HandleAskAdvisor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[AdvisorRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, AdvisorResponse{Answer: h.service.AskAdvisor(ctx, req.Query)})
}
