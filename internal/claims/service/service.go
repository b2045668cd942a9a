package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"insureadmin/internal/advisory"
	"insureadmin/internal/claims/metrics"
	"insureadmin/internal/claims/models"
	"insureadmin/internal/gateway"
	"insureadmin/pkg/attrs"
	id "insureadmin/pkg/domain"
	dErrors "insureadmin/pkg/domain-errors"
	"insureadmin/pkg/platform/audit"
	"insureadmin/pkg/platform/sentinel"
	"insureadmin/pkg/requestcontext"
)

const (
	claimsPath  = "claims"
	membersPath = "members"
)

// Gateway is the slice of the data gateway adjudication needs.
type Gateway interface {
	gateway.Fetcher
	CreateOrReplace(ctx context.Context, path string, body any, opts ...gateway.WriteOption) gateway.Result
}

// Advisor comments on claims. Implementations never fail; they return
// fallback text instead.
type Advisor interface {
	AnalyzeClaim(ctx context.Context, facts advisory.ClaimFacts, summary string) string
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// DecisionResult reports a recorded decision. Persisted=false means the
// decision was applied locally but the backend did not take the write.
type DecisionResult struct {
	Claim     models.Claim
	Persisted bool
	Outcome   gateway.Kind
}

// Service adjudicates claims.
type Service struct {
	gateway        Gateway
	advisor        Advisor
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(gw Gateway, advisor Advisor, opts ...Option) *Service {
	s := &Service{gateway: gw, advisor: advisor, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Decide records outcome on a pending claim on behalf of actor.
//
// The write is conditional on the stored claim still being Pending, so two
// operators racing on one claim cannot both win where the backend honours
// the condition. Validation and conflict failures leave claim untouched. On
// success claim is replaced in a single assignment; if the backend is
// unreachable the decision is still applied locally and reported with
// Persisted=false.
func (s *Service) Decide(ctx context.Context, claim *models.Claim, outcome models.Status, actor id.UserID) (DecisionResult, error) {
	if claim == nil {
		return DecisionResult{}, dErrors.New(dErrors.CodeBadRequest, "claim is required")
	}
	decided, err := claim.Decided(outcome, actor)
	if err != nil {
		s.incrementDecision(outcome, resultFor(err))
		return DecisionResult{}, err
	}

	res := s.gateway.CreateOrReplace(ctx, claimsPath+"/"+claim.ID.String(), decided,
		gateway.Expect("status", string(models.StatusPending)))
	if err := ctx.Err(); err != nil {
		return DecisionResult{}, err
	}
	if res.PreconditionFailed() || errors.Is(res.Err, sentinel.ErrConflict) {
		s.logger.WarnContext(ctx, "claim decided concurrently",
			"claim_id", claim.ID,
			"outcome", outcome,
			"actor_id", actor,
		)
		s.incrementDecision(outcome, "conflict")
		return DecisionResult{}, dErrors.New(dErrors.CodeConflict,
			fmt.Sprintf("claim %s was already decided or no longer exists", claim.ID))
	}

	*claim = decided

	result := DecisionResult{Claim: decided, Persisted: res.OK(), Outcome: res.Kind}
	attributes := []any{
		"claim_id", decided.ID,
		"decision", outcome,
		"actor_id", actor,
	}
	if result.Persisted {
		s.incrementDecision(outcome, "persisted")
	} else {
		s.logger.WarnContext(ctx, "claim decision held locally, backend did not accept it",
			"claim_id", decided.ID,
			"result", res.Kind.String(),
			"status", res.Status,
		)
		s.incrementDecision(outcome, "local_only")
		attributes = append(attributes, "reason", "not_persisted")
	}
	s.logAudit(ctx, decisionEvent(outcome), attributes...)
	return result, nil
}

// DecideByID loads a claim and decides it.
func (s *Service) DecideByID(ctx context.Context, claimID id.ClaimID, outcome models.Status, actor id.UserID) (DecisionResult, error) {
	claim, err := s.Get(ctx, claimID)
	if err != nil {
		return DecisionResult{}, err
	}
	return s.Decide(ctx, claim, outcome, actor)
}

// List returns the claim queue. An unreachable backend yields an empty queue.
func (s *Service) List(ctx context.Context) ([]models.Claim, error) {
	claims := gateway.FetchCollection[models.Claim](ctx, s.gateway, claimsPath)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if claims == nil {
		claims = []models.Claim{}
	}
	return claims, nil
}

// Get returns one claim. A missing claim and an unreachable backend are both
// reported as not found.
func (s *Service) Get(ctx context.Context, claimID id.ClaimID) (*models.Claim, error) {
	claim, ok := gateway.FetchOne[models.Claim](ctx, s.gateway, claimsPath+"/"+claimID.String())
	if !ok {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, dErrors.New(dErrors.CodeNotFound, "claim not found")
	}
	return &claim, nil
}

// Member returns the member record, or nil when it cannot be read.
func (s *Service) Member(ctx context.Context, memberID id.MemberID) *models.Member {
	if memberID.IsNil() {
		return nil
	}
	member, ok := gateway.FetchOne[models.Member](ctx, s.gateway, membersPath+"/"+memberID.String())
	if !ok {
		return nil
	}
	return &member
}

// RequestAdvisory asks the advisor to comment on claim. It is read-only, is
// valid in every status and never fails: an unavailable advisor yields its
// fallback text.
func (s *Service) RequestAdvisory(ctx context.Context, claim *models.Claim, member *models.Member) string {
	if s.metrics != nil {
		s.metrics.IncrementAdvisory()
	}
	facts := advisory.ClaimFacts{
		ClaimID:       claim.ID.String(),
		Status:        claim.Status.String(),
		ServiceDate:   claim.ServiceDate,
		Description:   claim.Description,
		DiagnosisCode: claim.DiagnosisCode,
		ProcedureCode: claim.ProcedureCode,
		AmountBilled:  claim.AmountBilled,
		ProviderName:  claim.ProviderName,
	}
	summary := member.Summary(requestcontext.Now(ctx))

	s.logAudit(ctx, string(audit.EventAdvisoryRequested),
		"claim_id", claim.ID,
		"actor_id", requestcontext.UserID(ctx),
	)
	if s.advisor == nil {
		return advisory.ClaimFallback
	}
	return s.advisor.AnalyzeClaim(ctx, facts, summary)
}

// RequestAdvisoryByID loads the claim and its member, then requests advisory.
func (s *Service) RequestAdvisoryByID(ctx context.Context, claimID id.ClaimID) (string, error) {
	claim, err := s.Get(ctx, claimID)
	if err != nil {
		return "", err
	}
	return s.RequestAdvisory(ctx, claim, s.Member(ctx, claim.MemberID)), nil
}

func decisionEvent(outcome models.Status) string {
	if outcome == models.StatusApproved {
		return string(audit.EventClaimApproved)
	}
	return string(audit.EventClaimRejected)
}

func resultFor(err error) string {
	if dErrors.HasCode(err, dErrors.CodeConflict) {
		return "conflict"
	}
	return "invalid"
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, event, args...)
	}
	if s.auditPublisher == nil {
		return
	}
	_ = s.auditPublisher.Emit(ctx, audit.Event{
		ActorID:   id.UserID(attrs.ExtractString(attributes, "actor_id")),
		Subject:   attrs.ExtractString(attributes, "claim_id"),
		Action:    event,
		Decision:  attrs.ExtractString(attributes, "decision"),
		Reason:    attrs.ExtractString(attributes, "reason"),
		RequestID: requestcontext.RequestID(ctx),
	})
}

func (s *Service) incrementDecision(outcome models.Status, result string) {
	if s.metrics != nil {
		s.metrics.IncrementDecision(outcome.String(), result)
	}
}
