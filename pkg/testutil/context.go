package testutil

import (
	"net/http"
	"time"

	"insureadmin/internal/session"
	id "insureadmin/pkg/domain"
	"insureadmin/pkg/requestcontext"
)

// WithSession attaches a console session for userID with role to the
// request, the way RequireSession does for an authenticated call.
func WithSession(req *http.Request, userID string, role session.Role) *http.Request {
	sess := &session.Session{
		ID:     id.SessionID("test-session"),
		UserID: id.UserID(userID),
		Role:   role,
	}
	return req.WithContext(session.WithContext(req.Context(), sess))
}

// SessionMiddleware attaches the session returned by current to every
// request. current is read per request so a test can switch roles.
func SessionMiddleware(userID string, current func() session.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, WithSession(r, userID, current()))
		})
	}
}

// WithRequestTime pins the request time seen by handlers.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
