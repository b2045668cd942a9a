package session_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"insureadmin/internal/gateway"
	gwmetrics "insureadmin/internal/gateway/metrics"
	"insureadmin/internal/gateway/transport"
	"insureadmin/internal/session"
	dErrors "insureadmin/pkg/domain-errors"
)

func newGatewayAuthenticator(t *testing.T) (*session.GatewayAuthenticator, *transport.Memory) {
	t.Helper()
	backend := transport.NewMemory()
	backend.Handle("auth/login", func(_ context.Context, body json.RawMessage) (gateway.Response, error) {
		var creds session.Credentials
		if err := json.Unmarshal(body, &creds); err != nil {
			return gateway.Response{Status: http.StatusBadRequest}, nil
		}
		if creds.Email != "agent@insurer.example" || creds.Password != "s3cret" {
			return gateway.Response{Status: http.StatusUnauthorized}, nil
		}
		resp, _ := json.Marshal(session.LoginResponse{
			User:        session.LoginUser{ID: "u-1", Email: creds.Email, Role: session.BackendStaff},
			AccessToken: "backend-access",
		})
		return gateway.Response{Status: http.StatusOK, Body: resp}, nil
	})
	gw := gateway.New(backend, gateway.WithMetrics(gwmetrics.NewWithRegistry(prometheus.NewRegistry())))
	return session.NewGatewayAuthenticator(gw), backend
}

func TestGatewayAuthenticator(t *testing.T) {
	t.Run("accepted login decodes the response", func(t *testing.T) {
		auth, _ := newGatewayAuthenticator(t)

		resp, err := auth.Authenticate(context.Background(), session.Credentials{Email: "agent@insurer.example", Password: "s3cret"})

		require.NoError(t, err)
		assert.Equal(t, session.BackendStaff, resp.User.Role)
		assert.Equal(t, "backend-access", resp.AccessToken)
	})

	t.Run("rejected login is unauthorized", func(t *testing.T) {
		auth, _ := newGatewayAuthenticator(t)

		_, err := auth.Authenticate(context.Background(), session.Credentials{Email: "agent@insurer.example", Password: "wrong"})

		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("offline backend is unavailable, not unauthorized", func(t *testing.T) {
		auth, backend := newGatewayAuthenticator(t)
		backend.SetOffline(true)

		_, err := auth.Authenticate(context.Background(), session.Credentials{Email: "agent@insurer.example", Password: "s3cret"})

		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	})
}

func TestStaticAuthenticator(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("letmein"), bcrypt.MinCost)
	require.NoError(t, err)
	auth := session.NewStaticAuthenticator(map[string]session.StaticUser{
		"Admin@Insurer.Example": {
			PasswordHash: string(hash),
			Response: session.LoginResponse{
				User: session.LoginUser{ID: "admin-1", Email: "admin@insurer.example", Role: session.BackendAdmin},
			},
		},
	})

	resp, err := auth.Authenticate(context.Background(), session.Credentials{Email: " admin@insurer.example", Password: "letmein"})
	require.NoError(t, err)
	assert.Equal(t, "admin-1", resp.User.ID)

	_, err = auth.Authenticate(context.Background(), session.Credentials{Email: "admin@insurer.example", Password: "nope"})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

	_, err = auth.Authenticate(context.Background(), session.Credentials{Email: "ghost@insurer.example", Password: "letmein"})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestHashPassword(t *testing.T) {
	hash, err := session.HashPassword("pw")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("pw")))
}
