package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"insureadmin/internal/session"
	dErrors "insureadmin/pkg/domain-errors"
	"insureadmin/pkg/platform/httputil"
	"insureadmin/pkg/requestcontext"
)

// SessionResolver turns a console token into its session.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*session.Session, error)
}

// BearerToken returns the token of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	const bearerPrefix = "Bearer "
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
	token = strings.TrimSpace(token)
	return token, ok && token != ""
}

// RequireSession resolves the bearer token and attaches the session to the
// request context. Requests without a valid session get 401.
func RequireSession(resolver SessionResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := BearerToken(r)
			if !ok {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
				return
			}
			sess, err := resolver.Resolve(ctx, token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid session",
					"request_id", requestcontext.RequestID(ctx),
					"error", err,
				)
				if !dErrors.HasCode(err, dErrors.CodeUnauthorized) && dErrors.CodeOf(err) != dErrors.CodeInternal {
					err = dErrors.New(dErrors.CodeUnauthorized, "invalid or expired session")
				}
				httputil.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(session.WithContext(ctx, sess)))
		})
	}
}

// RequireCapability rejects requests whose session role lacks capability.
// It must run after RequireSession.
func RequireCapability(capability session.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := session.FromContext(r.Context())
			if !ok {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
				return
			}
			if !sess.Can(capability) {
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "role "+sess.Role.String()+" may not "+string(capability)))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
