//go:build e2e

package e2e

import (
	"context"
	"testing"

	"github.com/cucumber/godog"
)

// TestFeatures runs the feature files against a console at E2E_BASE_URL
// started with the memory backend, the default seed and LOGIN_BURST=20.
func TestFeatures(t *testing.T) {
	tc := NewTestContext()
	suite := godog.TestSuite{
		ScenarioInitializer: func(ctx *godog.ScenarioContext) {
			ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
				tc.Reset()
				return ctx, nil
			})
			RegisterSteps(ctx, tc)
		},
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			Strict:   true,
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("feature tests failed")
	}
}
