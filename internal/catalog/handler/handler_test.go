package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"insureadmin/internal/catalog/models"
	"insureadmin/internal/catalog/service"
	"insureadmin/internal/gateway"
	gwmetrics "insureadmin/internal/gateway/metrics"
	"insureadmin/internal/gateway/transport"
	"insureadmin/internal/session"
)

type fixedAdvisor struct{}

func (fixedAdvisor) PolicyAdvisor(context.Context, string, string) string { return "Gold Care covers dental." }

type HandlerSuite struct {
	suite.Suite
	backend *transport.Memory
	router  chi.Router
	role    session.Role
}

func (s *HandlerSuite) SetupTest() {
	s.backend = transport.NewMemory()
	s.Require().NoError(s.backend.Seed("benefits", "dental", models.Benefit{ID: "dental", Name: "Dental", LimitType: models.LimitAmount}))
	s.Require().NoError(s.backend.Seed("benefits", "physio", models.Benefit{ID: "physio", Name: "Physiotherapy", LimitType: models.LimitVisits}))

	gw := gateway.New(s.backend, gateway.WithMetrics(gwmetrics.NewWithRegistry(prometheus.NewRegistry())))
	svc := service.New(gw, service.WithAdvisor(fixedAdvisor{}))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.role = session.RoleAdmin
	s.router = chi.NewRouter()
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := &session.Session{ID: "s-1", UserID: "op-1", Role: s.role}
			next.ServeHTTP(w, r.WithContext(session.WithContext(r.Context(), sess)))
		})
	})
	New(svc, logger).Register(s.router)
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(method, path, reader))
	return w
}

const goldCare = `{"name":"Gold Care","currency":"usd","tier":"Gold","coverage_limit":100000,
	"premiums":{"adult":120,"child":60,"senior":200},"features":[" 24/7 helpline ",""],
	"benefits":[{"benefit_id":"dental","limit":1500}]}`

func (s *HandlerSuite) TestSaveAndList() {
	w := s.do(http.MethodPost, "/policies", goldCare)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var saved SaveResponse
	s.Require().NoError(json.NewDecoder(w.Body).Decode(&saved))
	s.True(saved.Persisted)
	s.NotEmpty(saved.Policy.ID)
	s.Equal([]string{"24/7 helpline"}, saved.Policy.Features)
	s.Require().Len(saved.Policy.Links, 1)
	s.Equal("$1,500", saved.Policy.Links[0].Display)
	s.Equal("$100,000", saved.Policy.CoverageText)

	w = s.do(http.MethodGet, "/policies", "")
	s.Require().Equal(http.StatusOK, w.Code)
	var catalog CatalogResponse
	s.Require().NoError(json.NewDecoder(w.Body).Decode(&catalog))
	s.Require().Len(catalog.Policies, 1)
	s.Len(catalog.Benefits, 2)
	s.Equal("Dental", catalog.Policies[0].Links[0].Name)

	w = s.do(http.MethodGet, "/policies/"+saved.Policy.ID.String(), "")
	s.Equal(http.StatusOK, w.Code)
}

func (s *HandlerSuite) TestSaveValidation() {
	s.Run("empty name is 400 with a message", func() {
		w := s.do(http.MethodPost, "/policies", `{"name":"  ","currency":"USD","tier":"Gold"}`)
		s.Equal(http.StatusBadRequest, w.Code)
		s.Contains(w.Body.String(), "policy name is required")
		s.Zero(s.backend.Calls())
	})

	s.Run("duplicate link is 400", func() {
		w := s.do(http.MethodPost, "/policies", `{"name":"X","currency":"USD","tier":"Gold",
			"benefits":[{"benefit_id":"dental","limit":1},{"benefit_id":"dental","limit":2}]}`)
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("unknown field is 400", func() {
		w := s.do(http.MethodPost, "/policies", `{"name":"X","colour":"red"}`)
		s.Equal(http.StatusBadRequest, w.Code)
	})
}

func (s *HandlerSuite) TestSaveWhileOfflineIsAccepted() {
	s.backend.SetOffline(true)

	w := s.do(http.MethodPost, "/policies", `{"name":"Bronze","currency":"ZAR","tier":"Bronze"}`)

	s.Require().Equal(http.StatusAccepted, w.Code, w.Body.String())
	var saved SaveResponse
	s.Require().NoError(json.NewDecoder(w.Body).Decode(&saved))
	s.False(saved.Persisted)
	s.Equal("transport_error", saved.Result)
}

func (s *HandlerSuite) TestListWhileOfflineIsEmpty() {
	s.backend.SetOffline(true)

	w := s.do(http.MethodGet, "/policies", "")

	s.Require().Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"policies":[],"benefits":[]}`, w.Body.String())
}

func (s *HandlerSuite) TestCompose() {
	s.do(http.MethodGet, "/policies", "")

	w := s.do(http.MethodPost, "/policies/compose", `{
		"policy":{"name":"Draft","currency":"USD","tier":"Silver"},
		"edits":[
			{"op":"include","benefit_id":"physio"},
			{"op":"set_limit","benefit_id":"physio","value":3},
			{"op":"set_limit","benefit_id":"dental","value":500},
			{"op":"include","benefit_id":"physio"},
			{"op":"include","benefit_id":"ghost"}
		]}`)

	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var resp ComposeResponse
	s.Require().NoError(json.NewDecoder(w.Body).Decode(&resp))
	outcomes := make([]string, 0, len(resp.Outcomes))
	for _, o := range resp.Outcomes {
		outcomes = append(outcomes, o.Outcome)
	}
	s.Equal([]string{"applied", "applied", "not_included", "noop", "unknown_benefit"}, outcomes)
	s.Require().Len(resp.Policy.Links, 1)
	s.Equal("3 visits", resp.Policy.Links[0].Display)
	s.Empty(resp.Policy.ID, "compose never saves")
	s.Equal(0, countPolicies(s))
}

func (s *HandlerSuite) TestComposeFetchesCatalogOnFirstUse() {
	w := s.do(http.MethodPost, "/policies/compose", `{
		"policy":{"name":"Draft","currency":"USD","tier":"Silver"},
		"edits":[{"op":"include","benefit_id":"dental"}]}`)

	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var resp ComposeResponse
	s.Require().NoError(json.NewDecoder(w.Body).Decode(&resp))
	s.Require().Len(resp.Outcomes, 1)
	s.Equal("applied", resp.Outcomes[0].Outcome)
}

func (s *HandlerSuite) TestSaveWithLinksWhileOfflineIsAccepted() {
	s.backend.SetOffline(true)

	w := s.do(http.MethodPost, "/policies", `{"name":"Bronze","currency":"ZAR","tier":"Bronze","benefits":[{"benefit_id":"dental","limit":800}]}`)

	s.Require().Equal(http.StatusAccepted, w.Code, w.Body.String())
	var saved SaveResponse
	s.Require().NoError(json.NewDecoder(w.Body).Decode(&saved))
	s.False(saved.Persisted)
	s.Equal("transport_error", saved.Result)
}

func countPolicies(s *HandlerSuite) int {
	w := s.do(http.MethodGet, "/policies", "")
	var catalog CatalogResponse
	s.Require().NoError(json.NewDecoder(w.Body).Decode(&catalog))
	return len(catalog.Policies)
}

func (s *HandlerSuite) TestComposeRejectsBadEdits() {
	w := s.do(http.MethodPost, "/policies/compose", `{"policy":{"name":"D"},"edits":[{"op":"set_limit","benefit_id":"dental"}]}`)
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/policies/compose", `{"policy":{"name":"D"},"edits":[{"op":"rename","benefit_id":"dental"}]}`)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlerSuite) TestCapabilities() {
	s.role = session.RoleAgent
	s.Equal(http.StatusForbidden, s.do(http.MethodPost, "/policies", goldCare).Code)
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/policies", "").Code)

	s.role = session.RoleProvider
	s.Equal(http.StatusForbidden, s.do(http.MethodGet, "/policies", "").Code)
	s.Equal(http.StatusForbidden, s.do(http.MethodPost, "/advisor/policies", `{"query":"hi"}`).Code)

	s.role = session.RoleMember
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/policies", "").Code)
}

func (s *HandlerSuite) TestAskAdvisor() {
	w := s.do(http.MethodPost, "/advisor/policies", `{"query":"Which plan covers dental?"}`)
	s.Require().Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"answer":"Gold Care covers dental."}`, w.Body.String())

	w = s.do(http.MethodPost, "/advisor/policies", `{"query":"   "}`)
	s.Equal(http.StatusBadRequest, w.Code)
}
