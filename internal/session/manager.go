package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	jwttoken "insureadmin/internal/jwt_token"
	"insureadmin/pkg/attrs"
	id "insureadmin/pkg/domain"
	dErrors "insureadmin/pkg/domain-errors"
	"insureadmin/pkg/platform/audit"
	"insureadmin/pkg/platform/sentinel"
	"insureadmin/pkg/requestcontext"
)

const (
	tokenIssuer   = "insureadmin"
	tokenAudience = "insureadmin-console"

	DefaultTTL = 12 * time.Hour
)

// Store persists sessions. Find returns sentinel.ErrNotFound for unknown or
// expired sessions.
type Store interface {
	Save(ctx context.Context, s *Session) error
	Find(ctx context.Context, sessionID id.SessionID) (*Session, error)
	Delete(ctx context.Context, sessionID id.SessionID) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// Gauge tracks live sessions.
type Gauge interface {
	IncrementSessions()
	DecrementSessions()
}

// LoginResult is a fresh session plus the console token naming it.
type LoginResult struct {
	Token   string
	Session *Session
}

// Manager owns the session lifecycle: established at login, cleared at
// logout or when its token no longer parses.
type Manager struct {
	auth           Authenticator
	store          Store
	tokens         *jwttoken.JWTService
	ttl            time.Duration
	now            func() time.Time
	logger         *slog.Logger
	auditPublisher AuditPublisher
	gauge          Gauge
}

type Option func(*Manager)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(m *Manager) {
		m.auditPublisher = publisher
	}
}

func WithGauge(g Gauge) Option {
	return func(m *Manager) {
		m.gauge = g
	}
}

func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

func NewManager(auth Authenticator, store Store, signingKey string, opts ...Option) *Manager {
	m := &Manager{
		auth:   auth,
		store:  store,
		ttl:    DefaultTTL,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.tokens = jwttoken.NewJWTService(signingKey, tokenIssuer, tokenAudience).WithClock(m.now)
	return m
}

// Login authenticates creds, establishes and stores a session, and issues a
// console token for it.
func (m *Manager) Login(ctx context.Context, creds Credentials) (*LoginResult, error) {
	creds.Email = strings.TrimSpace(creds.Email)
	if creds.Email == "" || creds.Password == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "email and password are required")
	}

	resp, err := m.auth.Authenticate(ctx, creds)
	if err != nil {
		m.logger.WarnContext(ctx, "login failed", "email", creds.Email, "error", err)
		return nil, err
	}
	sess, err := Establish(resp)
	if err != nil {
		return nil, err
	}
	now := m.now()
	sess.CreatedAt = now
	sess.ExpiresAt = now.Add(m.ttl)

	if err := m.store.Save(ctx, sess); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store session")
	}
	token, err := m.tokens.GenerateAccessToken(sess.UserID, sess.ID, sess.Role.String(), m.ttl)
	if err != nil {
		_ = m.store.Delete(ctx, sess.ID)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue session token")
	}

	if m.gauge != nil {
		m.gauge.IncrementSessions()
	}
	m.logAudit(ctx, audit.EventSessionStarted, sess.UserID, sess.ID, "role", sess.Role)
	return &LoginResult{Token: token, Session: sess}, nil
}

// Resolve returns the session named by token. A token that fails to parse or
// names a session it does not match clears that session.
func (m *Manager) Resolve(ctx context.Context, token string) (*Session, error) {
	claims, err := m.tokens.ValidateToken(token)
	if err != nil {
		if claims != nil {
			m.discard(ctx, id.SessionID(claims.SessionID), id.UserID(claims.UserID), "token_expired")
		}
		return nil, err
	}

	sess, err := m.store.Find(ctx, id.SessionID(claims.SessionID))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "session not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load session")
	}
	if sess.UserID.String() != claims.UserID || sess.IsExpired(m.now()) {
		m.discard(ctx, sess.ID, sess.UserID, "session_mismatch")
		return nil, dErrors.New(dErrors.CodeUnauthorized, "session not found")
	}
	return sess, nil
}

// Logout clears the session named by token. Logging out of an already
// cleared session succeeds.
func (m *Manager) Logout(ctx context.Context, token string) error {
	claims, err := m.tokens.ValidateToken(token)
	if claims == nil {
		return err
	}
	sessionID := id.SessionID(claims.SessionID)
	if _, findErr := m.store.Find(ctx, sessionID); findErr != nil {
		if errors.Is(findErr, sentinel.ErrNotFound) {
			return nil
		}
		return dErrors.Wrap(findErr, dErrors.CodeInternal, "failed to load session")
	}
	if err := m.store.Delete(ctx, sessionID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear session")
	}
	if m.gauge != nil {
		m.gauge.DecrementSessions()
	}
	m.logAudit(ctx, audit.EventSessionEnded, id.UserID(claims.UserID), sessionID)
	return nil
}

func (m *Manager) discard(ctx context.Context, sessionID id.SessionID, userID id.UserID, reason string) {
	if _, err := m.store.Find(ctx, sessionID); err != nil {
		return
	}
	if err := m.store.Delete(ctx, sessionID); err != nil {
		m.logger.ErrorContext(ctx, "failed to clear session", "session_id", sessionID, "error", err)
		return
	}
	if m.gauge != nil {
		m.gauge.DecrementSessions()
	}
	m.logAudit(ctx, audit.EventSessionDiscarded, userID, sessionID, "reason", reason)
}

func (m *Manager) logAudit(ctx context.Context, event audit.AuditEvent, userID id.UserID, sessionID id.SessionID, attributes ...any) {
	requestID := requestcontext.RequestID(ctx)
	args := append(attributes,
		"event", string(event),
		"actor_id", userID,
		"session_id", sessionID,
		"log_type", "audit",
	)
	if requestID != "" {
		args = append(args, "request_id", requestID)
	}
	m.logger.InfoContext(ctx, string(event), args...)
	if m.auditPublisher == nil {
		return
	}
	_ = m.auditPublisher.Emit(ctx, audit.Event{
		ActorID:   userID,
		Subject:   sessionID.String(),
		Action:    string(event),
		Reason:    attrs.ExtractString(attributes, "reason"),
		RequestID: requestID,
	})
}
