package claims

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

type TestContext interface {
	POST(path string, body any) error
	GET(path string) error
	GetResponseField(field string) (any, error)
}

// RegisterSteps registers claim review and adjudication steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &claimsSteps{tc: tc}

	ctx.Step(`^I list claims$`, steps.listClaims)
	ctx.Step(`^I open claim "([^"]*)"$`, steps.openClaim)
	ctx.Step(`^I (approve|reject) claim "([^"]*)"$`, steps.decide)
	ctx.Step(`^I decide claim "([^"]*)" with outcome "([^"]*)"$`, steps.decideWithOutcome)
	ctx.Step(`^I request an advisory for claim "([^"]*)"$`, steps.requestAdvisory)
	ctx.Step(`^the claim list should contain "([^"]*)"$`, steps.listShouldContain)
}

type claimsSteps struct {
	tc TestContext
}

func (s *claimsSteps) listClaims(_ context.Context) error {
	return s.tc.GET("/claims")
}

func (s *claimsSteps) openClaim(_ context.Context, claimID string) error {
	return s.tc.GET("/claims/" + claimID)
}

func (s *claimsSteps) decide(ctx context.Context, verb, claimID string) error {
	outcome := "Approved"
	if verb == "reject" {
		outcome = "Rejected"
	}
	return s.decideWithOutcome(ctx, claimID, outcome)
}

func (s *claimsSteps) decideWithOutcome(_ context.Context, claimID, outcome string) error {
	return s.tc.POST("/claims/"+claimID+"/decision", map[string]string{"outcome": outcome})
}

func (s *claimsSteps) requestAdvisory(_ context.Context, claimID string) error {
	return s.tc.POST("/claims/"+claimID+"/advisory", nil)
}

func (s *claimsSteps) listShouldContain(_ context.Context, claimID string) error {
	value, err := s.tc.GetResponseField("claims")
	if err != nil {
		return err
	}
	list, ok := value.([]any)
	if !ok {
		return fmt.Errorf("claims is not a list: %v", value)
	}
	for _, item := range list {
		if c, ok := item.(map[string]any); ok && c["id"] == claimID {
			return nil
		}
	}
	return fmt.Errorf("claim %s not listed", claimID)
}
