package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"insureadmin/internal/platform/middleware"
	"insureadmin/internal/session"
	dErrors "insureadmin/pkg/domain-errors"
	"insureadmin/pkg/email"
	"insureadmin/pkg/platform/httputil"
	"insureadmin/pkg/requestcontext"
)

// Service is the session lifecycle used by the handler.
type Service interface {
	Login(ctx context.Context, creds session.Credentials) (*session.LoginResult, error)
	Resolve(ctx context.Context, token string) (*session.Session, error)
	Logout(ctx context.Context, token string) error
}

type Handler struct {
	service    Service
	logger     *slog.Logger
	loginGuard []func(http.Handler) http.Handler
}

type Option func(*Handler)

// WithLoginGuard wraps POST /auth/login in mw, typically a throttle.
func WithLoginGuard(mw func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.loginGuard = append(h.loginGuard, mw)
	}
}

func New(service Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{service: service, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the session endpoints. /auth/me needs a session; login and
// logout carry their own credentials.
func (h *Handler) Register(r chi.Router) {
	r.With(h.loginGuard...).Post("/auth/login", h.HandleLogin)
	r.Post("/auth/logout", h.HandleLogout)
	r.With(middleware.RequireSession(h.service, h.logger)).Get("/auth/me", h.HandleMe)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Email = strings.TrimSpace(r.Email)
	if len(r.Email) > 254 {
		return dErrors.New(dErrors.CodeValidation, "email must be at most 254 characters")
	}
	if !email.IsPlausible(r.Email) {
		return dErrors.New(dErrors.CodeValidation, "a valid email is required")
	}
	if r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "password is required")
	}
	return nil
}

// SessionResponse is the public view of a session. Backend bearer tokens are
// never included.
type SessionResponse struct {
	ID           string               `json:"id"`
	UserID       string               `json:"user_id"`
	Email        string               `json:"email"`
	Role         session.Role         `json:"role"`
	Name         string               `json:"name"`
	AvatarURL    string               `json:"avatar_url"`
	Capabilities []session.Capability `json:"capabilities"`
	ExpiresAt    time.Time            `json:"expires_at"`
}

type LoginResponse struct {
	Token   string          `json:"token"`
	Session SessionResponse `json:"session"`
}

func toSessionResponse(s *session.Session) SessionResponse {
	return SessionResponse{
		ID:           s.ID.String(),
		UserID:       s.UserID.String(),
		Email:        s.Email,
		Role:         s.Role,
		Name:         s.Name,
		AvatarURL:    s.AvatarURL,
		Capabilities: session.Capabilities(s.Role),
		ExpiresAt:    s.ExpiresAt,
	}
}

// HandleLogin handles POST /auth/login.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[LoginRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Login(ctx, session.Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "session established",
		"request_id", requestID,
		"user_id", result.Session.UserID,
		"role", result.Session.Role,
	)
	httputil.WriteJSON(w, http.StatusOK, LoginResponse{
		Token:   result.Token,
		Session: toSessionResponse(result.Session),
	})
}

// HandleLogout handles POST /auth/logout.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.BearerToken(r)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
		return
	}
	if err := h.service.Logout(r.Context(), token); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleMe handles GET /auth/me.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSessionResponse(sess))
}
