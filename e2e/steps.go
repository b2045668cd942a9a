package e2e

import (
	"github.com/cucumber/godog"

	"insureadmin/e2e/steps/claims"
	"insureadmin/e2e/steps/common"
	"insureadmin/e2e/steps/ratelimit"
	"insureadmin/e2e/steps/session"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	session.RegisterSteps(ctx, tc)
	claims.RegisterSteps(ctx, tc)
	ratelimit.RegisterSteps(ctx, tc)
}
