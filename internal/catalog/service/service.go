package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"insureadmin/internal/advisory"
	"insureadmin/internal/catalog/composition"
	"insureadmin/internal/catalog/metrics"
	"insureadmin/internal/catalog/models"
	"insureadmin/internal/gateway"
	"insureadmin/pkg/attrs"
	id "insureadmin/pkg/domain"
	dErrors "insureadmin/pkg/domain-errors"
	"insureadmin/pkg/platform/audit"
	"insureadmin/pkg/requestcontext"
)

const (
	policiesPath = "policies"
	benefitsPath = "benefits"
)

// Gateway is the slice of the data gateway the catalog needs.
type Gateway interface {
	gateway.Fetcher
	CreateOrReplace(ctx context.Context, path string, body any, opts ...gateway.WriteOption) gateway.Result
}

// Advisor answers free-text policy questions. Implementations never fail.
type Advisor interface {
	PolicyAdvisor(ctx context.Context, query, summary string) string
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// Catalog is every policy and benefit known to the backend.
type Catalog struct {
	Policies []models.Policy  `json:"policies"`
	Benefits []models.Benefit `json:"benefits"`
}

// SaveResult reports what happened to a save. Persisted=false means the
// policy is valid and held locally but the backend did not accept it.
type SaveResult struct {
	Policy    *models.Policy
	Persisted bool
	Outcome   gateway.Kind
}

// Service manages the policy catalog.
type Service struct {
	gateway        Gateway
	advisor        Advisor
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	percentageCap  bool

	mu       sync.RWMutex
	benefits []models.Benefit
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

func WithAdvisor(a Advisor) Option {
	return func(s *Service) {
		s.advisor = a
	}
}

// WithPercentageCap makes composers built by the service reject percentage
// limits above 100.
func WithPercentageCap(enabled bool) Option {
	return func(s *Service) {
		s.percentageCap = enabled
	}
}

// WithBenefits primes the benefit catalog used for link resolution.
func WithBenefits(benefits []models.Benefit) Option {
	return func(s *Service) {
		s.benefits = append([]models.Benefit(nil), benefits...)
	}
}

func New(gw Gateway, opts ...Option) *Service {
	s := &Service{gateway: gw, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save validates policy and persists it with replace semantics. A policy
// without an ID is assigned one; the caller's policy carries it afterwards so
// the next save replaces the same record.
//
// Validation failures return a CodeValidation error before the gateway is
// touched. Gateway failures are not errors: the result reports Persisted=false.
func (s *Service) Save(ctx context.Context, policy *models.Policy) (SaveResult, error) {
	if policy == nil {
		return SaveResult{}, dErrors.New(dErrors.CodeBadRequest, "policy is required")
	}
	if err := policy.Validate(); err != nil {
		s.incrementSave("invalid")
		return SaveResult{}, err
	}
	resolvable := true
	if len(policy.Benefits) > 0 {
		benefits, ok := s.benefitCatalog(ctx)
		if err := ctx.Err(); err != nil {
			return SaveResult{}, err
		}
		resolvable = ok
		if ok {
			if missing := policy.UnresolvedBenefits(models.NewBenefitIndex(benefits)); len(missing) > 0 {
				s.incrementSave("invalid")
				return SaveResult{}, dErrors.New(dErrors.CodeValidation,
					fmt.Sprintf("unknown benefit %s", missing[0]))
			}
		}
	}

	if policy.ID.IsNil() {
		policy.ID = id.NewPolicyID()
	}
	saved := policy.Clone()

	// Links that could not be checked against the catalog are never written.
	if !resolvable {
		s.logger.WarnContext(ctx, "policy held locally, benefit catalog unavailable",
			"policy_id", saved.ID,
			"links", len(saved.Benefits),
		)
		s.incrementSave("local_only")
		return SaveResult{Policy: saved, Persisted: false, Outcome: gateway.KindTransportError}, nil
	}

	res := s.gateway.CreateOrReplace(ctx, policiesPath+"/"+saved.ID.String(), saved)
	if err := ctx.Err(); err != nil {
		return SaveResult{}, err
	}
	result := SaveResult{Policy: saved, Persisted: res.OK(), Outcome: res.Kind}
	if !result.Persisted {
		s.logger.WarnContext(ctx, "policy held locally, backend did not accept save",
			"policy_id", saved.ID,
			"result", res.Kind.String(),
			"status", res.Status,
		)
		s.incrementSave("local_only")
		return result, nil
	}

	s.incrementSave("persisted")
	s.logAudit(ctx, string(audit.EventPolicySaved),
		"policy_id", saved.ID,
		"policy_name", saved.Name,
	)
	return result, nil
}

// List returns all policies and benefits. An unreachable backend yields empty
// collections; only cancellation of ctx is reported as an error.
func (s *Service) List(ctx context.Context) (Catalog, error) {
	var catalog Catalog
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		catalog.Policies = gateway.FetchCollection[models.Policy](gctx, s.gateway, policiesPath)
		return nil
	})
	g.Go(func() error {
		catalog.Benefits = gateway.FetchCollection[models.Benefit](gctx, s.gateway, benefitsPath)
		return nil
	})
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return Catalog{}, err
	}

	if catalog.Policies == nil {
		catalog.Policies = []models.Policy{}
	}
	if catalog.Benefits == nil {
		catalog.Benefits = []models.Benefit{}
	}
	if len(catalog.Policies) == 0 || len(catalog.Benefits) == 0 {
		s.incrementDegradedList()
	}
	if len(catalog.Benefits) > 0 {
		s.setBenefits(catalog.Benefits)
	}
	return catalog, nil
}

// Get returns one policy. A missing policy and an unreachable backend are
// both reported as not found.
func (s *Service) Get(ctx context.Context, policyID id.PolicyID) (*models.Policy, error) {
	policy, ok := gateway.FetchOne[models.Policy](ctx, s.gateway, policiesPath+"/"+policyID.String())
	if !ok {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, dErrors.New(dErrors.CodeNotFound, "policy not found")
	}
	return &policy, nil
}

// Composer returns a composition engine over policy using the last known
// benefit catalog, fetching it first when nothing is cached yet.
func (s *Service) Composer(ctx context.Context, policy *models.Policy) *composition.Composer {
	benefits, _ := s.benefitCatalog(ctx)
	return composition.New(policy, benefits, composition.WithPercentageCap(s.percentageCap))
}

// Benefits returns the last known benefit catalog.
func (s *Service) Benefits() []models.Benefit {
	return s.cachedBenefits()
}

// AskAdvisor answers query with the current catalog as context. Returns the
// advisor's fallback text when it is unavailable.
func (s *Service) AskAdvisor(ctx context.Context, query string) string {
	if s.metrics != nil {
		s.metrics.IncrementAdvisorQuery()
	}
	catalog, err := s.List(ctx)
	if err != nil {
		catalog = Catalog{}
	}
	s.logAudit(ctx, string(audit.EventAdvisoryRequested), "subject", "policy_advisor")
	if s.advisor == nil {
		return advisory.PolicyFallback
	}
	return s.advisor.PolicyAdvisor(ctx, query, Summarize(catalog))
}

// Summarize renders a catalog as plain text, one policy per line.
func Summarize(catalog Catalog) string {
	if len(catalog.Policies) == 0 {
		return "No policies are currently configured."
	}
	idx := models.NewBenefitIndex(catalog.Benefits)
	var b strings.Builder
	for i, p := range catalog.Policies {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "- %s (%s, %s): coverage %s; premiums adult %s, child %s, senior %s",
			p.Name, p.Tier, p.Currency,
			composition.FormatIn(p.CoverageLimit, models.LimitAmount, p.Currency),
			composition.FormatIn(p.Premiums.Adult, models.LimitAmount, p.Currency),
			composition.FormatIn(p.Premiums.Child, models.LimitAmount, p.Currency),
			composition.FormatIn(p.Premiums.Senior, models.LimitAmount, p.Currency),
		)
		if len(p.Benefits) > 0 {
			parts := make([]string, 0, len(p.Benefits))
			for _, l := range p.Benefits {
				v := composition.Describe(l, idx, p.Currency)
				parts = append(parts, v.Name+" "+v.Display)
			}
			b.WriteString("; benefits: ")
			b.WriteString(strings.Join(parts, ", "))
		}
		if len(p.Features) > 0 {
			b.WriteString("; features: ")
			b.WriteString(strings.Join(p.Features, ", "))
		}
	}
	return b.String()
}

// benefitCatalog returns the cached catalog, fetching it once when empty. ok
// is false when no catalog is cached and the backend could not supply one, in
// which case links cannot be resolved either way.
func (s *Service) benefitCatalog(ctx context.Context) (benefits []models.Benefit, ok bool) {
	if cached := s.cachedBenefits(); len(cached) > 0 {
		return cached, true
	}
	res := s.gateway.Fetch(ctx, benefitsPath)
	if !res.OK() && !res.Stale {
		return nil, false
	}
	var fetched []models.Benefit
	if err := json.Unmarshal(res.Body, &fetched); err != nil {
		s.logger.WarnContext(ctx, "benefit catalog undecodable", "error", err)
		return nil, false
	}
	if len(fetched) > 0 {
		s.setBenefits(fetched)
	}
	return fetched, true
}

func (s *Service) cachedBenefits() []models.Benefit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Benefit(nil), s.benefits...)
}

func (s *Service) setBenefits(benefits []models.Benefit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.benefits = append([]models.Benefit(nil), benefits...)
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	actor := requestcontext.UserID(ctx)
	args := append(attributes, "event", event, "actor_id", actor, "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, event, args...)
	}
	if s.auditPublisher == nil {
		return
	}
	subject := attrs.ExtractString(attributes, "policy_id")
	if subject == "" {
		subject = attrs.ExtractString(attributes, "subject")
	}
	_ = s.auditPublisher.Emit(ctx, audit.Event{
		ActorID:   actor,
		Subject:   subject,
		Action:    event,
		RequestID: requestcontext.RequestID(ctx),
	})
}

func (s *Service) incrementSave(result string) {
	if s.metrics != nil {
		s.metrics.IncrementSave(result)
	}
}

func (s *Service) incrementDegradedList() {
	if s.metrics != nil {
		s.metrics.IncrementDegradedList()
	}
}
