package session

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GET(path string) error
	GetResponseField(field string) (any, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	GetToken() string
	SetToken(token string)
}

// RegisterSteps registers login, logout and session lookup steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &sessionSteps{tc: tc}

	ctx.Step(`^I log in as "([^"]*)" with password "([^"]*)"$`, steps.logIn)
	ctx.Step(`^I am logged in as "([^"]*)" with password "([^"]*)"$`, steps.loggedIn)
	ctx.Step(`^I log out$`, steps.logOut)
	ctx.Step(`^I request my session$`, steps.requestSession)
	ctx.Step(`^my session should have capability "([^"]*)"$`, steps.shouldHaveCapability)
	ctx.Step(`^my session should not have capability "([^"]*)"$`, steps.shouldNotHaveCapability)
}

type sessionSteps struct {
	tc TestContext
}

func (s *sessionSteps) logIn(_ context.Context, email, password string) error {
	s.tc.SetToken("")
	return s.tc.POST("/auth/login", map[string]string{"email": email, "password": password})
}

func (s *sessionSteps) loggedIn(ctx context.Context, email, password string) error {
	if err := s.logIn(ctx, email, password); err != nil {
		return err
	}
	if status := s.tc.GetLastResponseStatus(); status != 200 {
		return fmt.Errorf("login as %s failed with %d: %s", email, status, s.tc.GetLastResponseBody())
	}
	token, err := s.tc.GetResponseField("token")
	if err != nil {
		return err
	}
	s.tc.SetToken(fmt.Sprint(token))
	return nil
}

func (s *sessionSteps) logOut(_ context.Context) error {
	return s.tc.POST("/auth/logout", nil)
}

func (s *sessionSteps) requestSession(_ context.Context) error {
	return s.tc.GET("/auth/me")
}

func (s *sessionSteps) capabilities() ([]any, error) {
	if err := s.tc.GET("/auth/me"); err != nil {
		return nil, err
	}
	value, err := s.tc.GetResponseField("capabilities")
	if err != nil {
		return nil, err
	}
	caps, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("capabilities is not a list: %v", value)
	}
	return caps, nil
}

func (s *sessionSteps) hasCapability(capability string) (bool, error) {
	caps, err := s.capabilities()
	if err != nil {
		return false, err
	}
	for _, c := range caps {
		if c == capability {
			return true, nil
		}
	}
	return false, nil
}

func (s *sessionSteps) shouldHaveCapability(_ context.Context, capability string) error {
	ok, err := s.hasCapability(capability)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("expected capability %s", capability)
	}
	return nil
}

func (s *sessionSteps) shouldNotHaveCapability(_ context.Context, capability string) error {
	ok, err := s.hasCapability(capability)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("unexpected capability %s", capability)
	}
	return nil
}
