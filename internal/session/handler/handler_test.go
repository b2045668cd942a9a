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
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"insureadmin/internal/session"
	"insureadmin/internal/session/store"
)

type HandlerSuite struct {
	suite.Suite
	router chi.Router
}

func (s *HandlerSuite) SetupTest() {
	hash, err := bcrypt.GenerateFromPassword([]byte("letmein"), bcrypt.MinCost)
	s.Require().NoError(err)
	auth := session.NewStaticAuthenticator(map[string]session.StaticUser{
		"admin@insurer.example": {
			PasswordHash: string(hash),
			Response: session.LoginResponse{
				User:        session.LoginUser{ID: "admin-1", Email: "admin@insurer.example", Role: session.BackendAdmin},
				AccessToken: "backend-secret",
			},
		},
	})
	manager := session.NewManager(auth, store.NewInMemory(), "test-key", session.WithTTL(time.Hour))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.router = chi.NewRouter()
	New(manager, logger).Register(s.router)
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) do(method, path, body, token string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	r := httptest.NewRequestWithContext(context.Background(), method, path, reader)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, r)
	return w
}

func (s *HandlerSuite) login() LoginResponse {
	w := s.do(http.MethodPost, "/auth/login", `{"email":"admin@insurer.example","password":"letmein"}`, "")
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var resp LoginResponse
	s.Require().NoError(json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func (s *HandlerSuite) TestLogin() {
	s.Run("returns token and public session", func() {
		w := s.do(http.MethodPost, "/auth/login", `{"email":"admin@insurer.example","password":"letmein"}`, "")

		s.Require().Equal(http.StatusOK, w.Code)
		s.NotContains(w.Body.String(), "backend-secret")
		var resp LoginResponse
		s.Require().NoError(json.NewDecoder(w.Body).Decode(&resp))
		s.NotEmpty(resp.Token)
		s.Equal(session.RoleAdmin, resp.Session.Role)
		s.Equal("admin", resp.Session.Name)
		s.Contains(resp.Session.Capabilities, session.CapManagePolicies)
	})

	s.Run("wrong password is 401", func() {
		w := s.do(http.MethodPost, "/auth/login", `{"email":"admin@insurer.example","password":"x"}`, "")
		s.Equal(http.StatusUnauthorized, w.Code)
	})

	s.Run("malformed email is 400", func() {
		w := s.do(http.MethodPost, "/auth/login", `{"email":"admin","password":"x"}`, "")
		s.Equal(http.StatusBadRequest, w.Code)
	})
}

func (s *HandlerSuite) TestMeAndLogout() {
	resp := s.login()

	w := s.do(http.MethodGet, "/auth/me", "", resp.Token)
	s.Require().Equal(http.StatusOK, w.Code)
	var me SessionResponse
	s.Require().NoError(json.NewDecoder(w.Body).Decode(&me))
	s.Equal(resp.Session.ID, me.ID)

	w = s.do(http.MethodPost, "/auth/logout", "", resp.Token)
	s.Equal(http.StatusNoContent, w.Code)

	w = s.do(http.MethodGet, "/auth/me", "", resp.Token)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *HandlerSuite) TestMeRequiresToken() {
	w := s.do(http.MethodGet, "/auth/me", "", "")
	s.Equal(http.StatusUnauthorized, w.Code)
}

func TestLoginGuardWrapsLoginOnly(t *testing.T) {
	blocked := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})
	}
	manager := session.NewManager(session.NewStaticAuthenticator(nil), store.NewInMemory(), "test-key")
	router := chi.NewRouter()
	New(manager, slog.New(slog.NewTextHandler(io.Discard, nil)), WithLoginGuard(blocked)).Register(router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{}`)))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("login status = %d, want 429", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("logout status = %d, want 401", w.Code)
	}
}
