package ratelimit

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GetLastResponseStatus() int
	GetLastResponseHeader(name string) string
	SetClientIP(ip string)
}

// RegisterSteps registers login throttling steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &ratelimitSteps{tc: tc}

	ctx.Step(`^I am attempting login for user "([^"]*)" from IP "([^"]*)"$`, steps.attemptingLoginFromIP)
	ctx.Step(`^I fail authentication (\d+) times$`, steps.failAuthNTimes)
	ctx.Step(`^the (\d+)(?:st|nd|rd|th) attempt should return (\d+)$`, steps.nthAttemptShouldReturn)
	ctx.Step(`^a later attempt should return (\d+)$`, steps.laterAttemptShouldReturn)
	ctx.Step(`^the response should indicate when to retry$`, steps.responseShouldIndicateRetry)
}

type ratelimitSteps struct {
	tc           TestContext
	currentEmail string
	statuses     []int
}

func (s *ratelimitSteps) attemptingLoginFromIP(_ context.Context, email, ip string) error {
	s.currentEmail = email
	s.statuses = nil
	s.tc.SetClientIP(ip)
	return nil
}

func (s *ratelimitSteps) failAuthNTimes(_ context.Context, times int) error {
	for i := 0; i < times; i++ {
		err := s.tc.POST("/auth/login", map[string]string{
			"email":    s.currentEmail,
			"password": "definitely-wrong",
		})
		if err != nil {
			return err
		}
		s.statuses = append(s.statuses, s.tc.GetLastResponseStatus())
	}
	return nil
}

func (s *ratelimitSteps) nthAttemptShouldReturn(_ context.Context, n, expected int) error {
	if n < 1 || n > len(s.statuses) {
		return fmt.Errorf("only %d attempts were made", len(s.statuses))
	}
	if got := s.statuses[n-1]; got != expected {
		return fmt.Errorf("attempt %d returned %d, want %d (all: %v)", n, got, expected, s.statuses)
	}
	return nil
}

func (s *ratelimitSteps) laterAttemptShouldReturn(_ context.Context, expected int) error {
	for _, status := range s.statuses[min(1, len(s.statuses)):] {
		if status == expected {
			return nil
		}
	}
	return fmt.Errorf("no attempt returned %d (all: %v)", expected, s.statuses)
}

func (s *ratelimitSteps) responseShouldIndicateRetry(_ context.Context) error {
	if s.tc.GetLastResponseHeader("Retry-After") == "" {
		return fmt.Errorf("missing Retry-After header")
	}
	return nil
}
