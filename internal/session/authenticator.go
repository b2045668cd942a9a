package session

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"insureadmin/internal/gateway"
	dErrors "insureadmin/pkg/domain-errors"
)

const loginPath = "auth/login"

// Credentials are what an operator types at the login form.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Authenticator verifies credentials and returns the backend's login response.
type Authenticator interface {
	Authenticate(ctx context.Context, creds Credentials) (LoginResponse, error)
}

// Invoker is the slice of the data gateway used for login.
type Invoker interface {
	Invoke(ctx context.Context, path string, body any) gateway.Result
}

// GatewayAuthenticator logs in against the backend's auth/login action.
// Unlike data reads, login does not degrade: an unreachable backend is an error.
type GatewayAuthenticator struct {
	gateway Invoker
}

func NewGatewayAuthenticator(gw Invoker) *GatewayAuthenticator {
	return &GatewayAuthenticator{gateway: gw}
}

func (a *GatewayAuthenticator) Authenticate(ctx context.Context, creds Credentials) (LoginResponse, error) {
	res := a.gateway.Invoke(ctx, loginPath, creds)
	switch res.Kind {
	case gateway.KindOK:
		var resp LoginResponse
		if err := res.Decode(&resp); err != nil {
			return LoginResponse{}, dErrors.Wrap(err, dErrors.CodeInternal, "malformed login response")
		}
		return resp, nil
	case gateway.KindTransportError:
		return LoginResponse{}, dErrors.Wrap(res.Err, dErrors.CodeUnavailable, "authentication backend unavailable")
	case gateway.KindRejected:
		if res.Status >= http.StatusInternalServerError {
			return LoginResponse{}, dErrors.New(dErrors.CodeUnavailable, "authentication backend unavailable")
		}
	}
	return LoginResponse{}, dErrors.New(dErrors.CodeUnauthorized, "invalid email or password")
}

// StaticUser is a login accepted by StaticAuthenticator.
type StaticUser struct {
	PasswordHash string
	Response     LoginResponse
}

// StaticAuthenticator checks credentials against a fixed, bcrypt-hashed user
// list. It backs the dev server and tests when no backend is configured.
type StaticAuthenticator struct {
	users map[string]StaticUser
}

func NewStaticAuthenticator(users map[string]StaticUser) *StaticAuthenticator {
	normalized := make(map[string]StaticUser, len(users))
	for address, u := range users {
		normalized[strings.ToLower(strings.TrimSpace(address))] = u
	}
	return &StaticAuthenticator{users: normalized}
}

func (a *StaticAuthenticator) Authenticate(_ context.Context, creds Credentials) (LoginResponse, error) {
	u, ok := a.users[strings.ToLower(strings.TrimSpace(creds.Email))]
	if !ok {
		// Keep timing close to the known-user path.
		_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(creds.Password))
		return LoginResponse{}, dErrors.New(dErrors.CodeUnauthorized, "invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(creds.Password)); err != nil {
		return LoginResponse{}, dErrors.New(dErrors.CodeUnauthorized, "invalid email or password")
	}
	return u.Response, nil
}

// HashPassword returns a bcrypt hash suitable for StaticUser.PasswordHash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

var dummyHash = sync.OnceValue(func() []byte {
	hash, _ := bcrypt.GenerateFromPassword([]byte("insureadmin"), bcrypt.DefaultCost)
	return hash
})
