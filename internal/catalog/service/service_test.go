package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"insureadmin/internal/advisory"
	"insureadmin/internal/catalog/metrics"
	"insureadmin/internal/catalog/models"
	"insureadmin/internal/catalog/service"
	"insureadmin/internal/gateway"
	gwmetrics "insureadmin/internal/gateway/metrics"
	"insureadmin/internal/gateway/transport"
	id "insureadmin/pkg/domain"
	dErrors "insureadmin/pkg/domain-errors"
	"insureadmin/pkg/platform/audit"
	"insureadmin/pkg/platform/audit/publisher"
	auditmemory "insureadmin/pkg/platform/audit/store/memory"
	"insureadmin/pkg/platform/circuit"
	"insureadmin/pkg/requestcontext"
)

type recordingAdvisor struct {
	query   string
	summary string
}

func (a *recordingAdvisor) PolicyAdvisor(_ context.Context, query, summary string) string {
	a.query = query
	a.summary = summary
	return "answer"
}

type ServiceSuite struct {
	suite.Suite
	backend  *transport.Memory
	audit    *publisher.Publisher
	advisor  *recordingAdvisor
	service  *service.Service
	operator id.UserID
	ctx      context.Context
}

func (s *ServiceSuite) SetupTest() {
	s.backend = transport.NewMemory()
	s.Require().NoError(s.backend.Seed("benefits", "dental", models.Benefit{ID: "dental", Name: "Dental", LimitType: models.LimitAmount}))
	s.Require().NoError(s.backend.Seed("benefits", "optical", models.Benefit{ID: "optical", Name: "Optical", LimitType: models.LimitPercentage}))

	gw := gateway.New(s.backend,
		gateway.WithMetrics(gwmetrics.NewWithRegistry(prometheus.NewRegistry())),
		gateway.WithBreaker(circuit.New("test", circuit.WithFailureThreshold(100), circuit.WithCooldown(time.Hour))),
	)
	s.audit = publisher.NewPublisher(auditmemory.NewInMemoryStore())
	s.advisor = &recordingAdvisor{}
	s.service = service.New(gw,
		service.WithAuditPublisher(s.audit),
		service.WithMetrics(metrics.NewWithRegistry(prometheus.NewRegistry())),
		service.WithAdvisor(s.advisor),
	)
	s.operator = id.UserID("op-1")
	s.ctx = requestcontext.WithUserID(context.Background(), s.operator)
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func validPolicy() *models.Policy {
	return &models.Policy{
		Name:          "Gold Care",
		Currency:      models.CurrencyUSD,
		Tier:          models.TierGold,
		CoverageLimit: 100000,
		Premiums:      models.Premiums{Adult: 120, Child: 60, Senior: 200},
	}
}

// =============================================================================
// Save
// =============================================================================

func (s *ServiceSuite) TestSave() {
	s.Run("empty name is rejected without calling the backend", func() {
		before := s.backend.Calls()
		policy := validPolicy()
		policy.Name = ""

		_, err := s.service.Save(s.ctx, policy)

		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Equal(before, s.backend.Calls())
		s.True(policy.ID.IsNil())
	})

	s.Run("duplicate benefit links are rejected", func() {
		policy := validPolicy()
		policy.Benefits = []models.PolicyBenefitLink{{BenefitID: "dental", Limit: 1}, {BenefitID: "dental", Limit: 2}}

		_, err := s.service.Save(s.ctx, policy)

		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unresolved benefit link never reaches the backend", func() {
		policy := validPolicy()
		policy.Benefits = []models.PolicyBenefitLink{{BenefitID: "ghost", Limit: 1}}

		_, err := s.service.Save(s.ctx, policy)

		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Contains(err.Error(), "ghost")
		catalog, err := s.service.List(s.ctx)
		s.Require().NoError(err)
		s.Empty(catalog.Policies)
	})

	s.Run("invalid currency is rejected", func() {
		policy := validPolicy()
		policy.Currency = "EUR"

		_, err := s.service.Save(s.ctx, policy)

		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ServiceSuite) TestSaveAssignsIDAndPersists() {
	policy := validPolicy()
	policy.Benefits = []models.PolicyBenefitLink{{BenefitID: "dental", Limit: 1500}}

	result, err := s.service.Save(s.ctx, policy)

	s.Require().NoError(err)
	s.True(result.Persisted)
	s.Equal(gateway.KindOK, result.Outcome)
	s.False(policy.ID.IsNil())
	s.Equal(policy.ID, result.Policy.ID)

	stored, err := s.service.Get(s.ctx, policy.ID)
	s.Require().NoError(err)
	s.Equal("Gold Care", stored.Name)
	s.Equal(policy.Benefits, stored.Benefits)

	events, err := s.audit.List(s.ctx, s.operator)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(string(audit.EventPolicySaved), events[0].Action)
	s.Equal(policy.ID.String(), events[0].Subject)
	s.Equal(audit.CategoryCompliance, events[0].Category)
}

func (s *ServiceSuite) TestSaveTwiceReplaces() {
	policy := validPolicy()
	_, err := s.service.Save(s.ctx, policy)
	s.Require().NoError(err)
	first := policy.ID

	policy.Name = "Gold Care Plus"
	_, err = s.service.Save(s.ctx, policy)
	s.Require().NoError(err)

	s.Equal(first, policy.ID)
	catalog, err := s.service.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(catalog.Policies, 1)
	s.Equal("Gold Care Plus", catalog.Policies[0].Name)
}

func (s *ServiceSuite) TestSaveResultIsIndependentOfCaller() {
	policy := validPolicy()
	policy.Features = []string{"24/7 helpline"}

	result, err := s.service.Save(s.ctx, policy)
	s.Require().NoError(err)

	policy.Features[0] = "changed"
	s.Equal("24/7 helpline", result.Policy.Features[0])
}

// =============================================================================
// Degraded backend
// =============================================================================

func (s *ServiceSuite) TestOfflineListIsEmptyAndSaveCompletesLocally() {
	s.backend.SetOffline(true)

	catalog, err := s.service.List(s.ctx)
	s.Require().NoError(err)
	s.NotNil(catalog.Policies)
	s.NotNil(catalog.Benefits)
	s.Empty(catalog.Policies)
	s.Empty(catalog.Benefits)

	policy := validPolicy()
	result, err := s.service.Save(s.ctx, policy)

	s.Require().NoError(err)
	s.False(result.Persisted)
	s.Equal(gateway.KindTransportError, result.Outcome)
	s.False(policy.ID.IsNil())

	events, err := s.audit.List(s.ctx, s.operator)
	s.Require().NoError(err)
	s.Empty(events, "unpersisted saves are not audited")
}

func (s *ServiceSuite) TestOfflineSaveResolvesLinksFromLastCatalog() {
	_, err := s.service.List(s.ctx)
	s.Require().NoError(err)
	s.backend.SetOffline(true)

	policy := validPolicy()
	policy.Benefits = []models.PolicyBenefitLink{{BenefitID: "optical", Limit: 20}}
	result, err := s.service.Save(s.ctx, policy)

	s.Require().NoError(err)
	s.False(result.Persisted)
}

func (s *ServiceSuite) TestOfflineSaveWithoutCatalogIsHeldLocally() {
	s.backend.SetOffline(true)
	before := s.backend.Calls()

	policy := validPolicy()
	policy.Benefits = []models.PolicyBenefitLink{{BenefitID: "dental", Limit: 1500}}
	result, err := s.service.Save(s.ctx, policy)

	s.Require().NoError(err, "an unreachable catalog is not the operator's mistake")
	s.False(result.Persisted)
	s.Equal(gateway.KindTransportError, result.Outcome)
	s.False(policy.ID.IsNil())
	s.Equal(policy.Benefits, result.Policy.Benefits)
	s.Equal(before+1, s.backend.Calls(), "only the catalog fetch is attempted")

	s.backend.SetOffline(false)
	catalog, err := s.service.List(s.ctx)
	s.Require().NoError(err)
	s.Empty(catalog.Policies, "unchecked links never reach the backend")
}

func (s *ServiceSuite) TestComposerFetchesCatalogWhenNothingCached() {
	policy := validPolicy()

	outcome := s.service.Composer(s.ctx, policy).Include("dental")

	s.True(outcome.Changed())
	s.Len(s.service.Benefits(), 2)
}

func (s *ServiceSuite) TestOfflineListKeepsLastBenefits() {
	_, err := s.service.List(s.ctx)
	s.Require().NoError(err)
	s.backend.SetOffline(true)

	_, err = s.service.List(s.ctx)
	s.Require().NoError(err)

	s.Len(s.service.Benefits(), 2)
}

func (s *ServiceSuite) TestListCancelled() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	_, err := s.service.List(ctx)

	s.ErrorIs(err, context.Canceled)
}

func (s *ServiceSuite) TestGetMissing() {
	_, err := s.service.Get(s.ctx, "nope")

	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

// =============================================================================
// Composition through the service
// =============================================================================

func (s *ServiceSuite) TestComposedPolicyHasNoDuplicateLinks() {
	_, err := s.service.List(s.ctx)
	s.Require().NoError(err)

	policy := validPolicy()
	c := s.service.Composer(s.ctx, policy)
	c.Include("dental")
	c.Include("optical")
	c.Include("dental")
	c.Exclude("optical")
	c.Include("optical")
	c.SetLimit("dental", 1500)

	_, err = s.service.Save(s.ctx, policy)
	s.Require().NoError(err)

	dup, found := policy.DuplicateBenefit()
	s.False(found, "duplicate %s", dup)
	s.Len(policy.Benefits, 2)
}

// =============================================================================
// Advisor
// =============================================================================

func (s *ServiceSuite) TestAskAdvisorSendsCatalogSummary() {
	policy := validPolicy()
	policy.Benefits = []models.PolicyBenefitLink{{BenefitID: "dental", Limit: 1500}}
	_, err := s.service.Save(s.ctx, policy)
	s.Require().NoError(err)

	answer := s.service.AskAdvisor(s.ctx, "Which plan covers dental?")

	s.Equal("answer", answer)
	s.Equal("Which plan covers dental?", s.advisor.query)
	s.Contains(s.advisor.summary, "Gold Care")
	s.Contains(s.advisor.summary, "Dental $1,500")
}

func TestAskAdvisorWithoutAdvisorReturnsFallback(t *testing.T) {
	svc := service.New(gateway.New(transport.NewMemory()))

	assert.Equal(t, advisory.PolicyFallback, svc.AskAdvisor(context.Background(), "Which plan covers dental?"))
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, "No policies are currently configured.", service.Summarize(service.Catalog{}))

	summary := service.Summarize(service.Catalog{
		Policies: []models.Policy{{
			Name:          "Rand Basic",
			Currency:      models.CurrencyZAR,
			Tier:          models.TierBronze,
			CoverageLimit: 50000,
			Features:      []string{"GP visits"},
			Benefits:      []models.PolicyBenefitLink{{BenefitID: "gone", Limit: 3}},
		}},
	})
	assert.Contains(t, summary, "Rand Basic (Bronze, ZAR)")
	assert.Contains(t, summary, "ZAR 50,000")
	assert.Contains(t, summary, "Unknown 3")
	assert.Contains(t, summary, "features: GP visits")
}
