// Package session establishes console sessions from backend logins and passes
// them down request contexts.
//
// A session is built once at login. Display defaults (name, avatar) are
// computed then and frozen into the stored record; later profile changes in
// the backend do not rewrite them.
package session

import (
	"context"
	"net/url"
	"strings"
	"time"

	id "insureadmin/pkg/domain"
	dErrors "insureadmin/pkg/domain-errors"
	"insureadmin/pkg/email"
	"insureadmin/pkg/requestcontext"
)

const avatarPlaceholderURL = "https://ui-avatars.com/api/"

// LoginUser is the user block of a backend login response.
type LoginUser struct {
	ID        string      `json:"id"`
	Email     string      `json:"email"`
	Role      BackendRole `json:"role"`
	Name      string      `json:"name,omitempty"`
	AvatarURL string      `json:"avatar_url,omitempty"`
}

// LoginResponse is what the backend returns for a successful login.
type LoginResponse struct {
	User         LoginUser `json:"user"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
}

// Session is the operator's console session. AccessToken and RefreshToken
// are the backend's bearer pair and never leave the server.
type Session struct {
	ID           id.SessionID `json:"id"`
	UserID       id.UserID    `json:"user_id"`
	Email        string       `json:"email"`
	Role         Role         `json:"role"`
	Name         string       `json:"name"`
	AvatarURL    string       `json:"avatar_url"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	CreatedAt    time.Time    `json:"created_at"`
	ExpiresAt    time.Time    `json:"expires_at"`
}

func (s *Session) Can(capability Capability) bool {
	return s != nil && s.Role.Can(capability)
}

func (s *Session) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Establish builds a session from a login response. The role is mapped here
// and nowhere else.
func Establish(resp LoginResponse) (*Session, error) {
	userID, err := id.ParseUserID(resp.User.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "login response is missing a user id")
	}
	address := strings.TrimSpace(resp.User.Email)
	if address == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "login response is missing an email")
	}
	role, err := MapRole(resp.User.Role)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(resp.User.Name)
	if name == "" {
		name = email.LocalPart(address)
	}
	avatar := strings.TrimSpace(resp.User.AvatarURL)
	if avatar == "" {
		avatar = AvatarPlaceholder(name)
	}

	return &Session{
		ID:           id.NewSessionID(),
		UserID:       userID,
		Email:        address,
		Role:         role,
		Name:         name,
		AvatarURL:    avatar,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}, nil
}

// AvatarPlaceholder returns a generated avatar URL keyed by name.
func AvatarPlaceholder(name string) string {
	q := url.Values{}
	q.Set("name", name)
	q.Set("background", "random")
	return avatarPlaceholderURL + "?" + q.Encode()
}

type contextKey struct{}

// WithContext attaches s to ctx and records its user as the acting operator.
func WithContext(ctx context.Context, s *Session) context.Context {
	ctx = context.WithValue(ctx, contextKey{}, s)
	if s != nil {
		ctx = requestcontext.WithUserID(ctx, s.UserID)
	}
	return ctx
}

// FromContext returns the session attached to ctx.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(contextKey{}).(*Session)
	return s, ok && s != nil
}

// BackendToken returns the backend bearer of the session in ctx, or "".
func BackendToken(ctx context.Context) string {
	if s, ok := FromContext(ctx); ok {
		return s.AccessToken
	}
	return ""
}
