package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/authstarter/backend/internal/db"
	apperrors "github.com/authstarter/backend/internal/errors"
)

type contextKey string

const userContextKey contextKey = "auth_user"

// UserFromContext returns the authenticated user placed by RequireAuth, or
// nil when the request was not authenticated.
func UserFromContext(ctx context.Context) *db.PublicUser {
	user, _ := ctx.Value(userContextKey).(*db.PublicUser)
	return user
}

// WithUser returns a context carrying the authenticated user. Exposed for
// handler tests.
func WithUser(ctx context.Context, user *db.PublicUser) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// RequireAuth verifies the access token from the auth cookie or, failing
// that, an Authorization bearer header, and attaches the user to the request
// context. Requests without a valid token get a 401.
func (h *Handlers) RequireAuth(next apperrors.Handler) apperrors.Handler {
	return func(w http.ResponseWriter, r *http.Request) error {
		token := bearerOrCookieToken(r)
		if token == "" {
			return apperrors.Unauthorized("authentication required")
		}

		user, err := h.svc.GetUserFromAccessToken(token)
		if err != nil {
			return err
		}

		return next(w, r.WithContext(WithUser(r.Context(), user)))
	}
}

// RequireRole layers a role check on top of RequireAuth.
func (h *Handlers) RequireRole(role db.Role, next apperrors.Handler) apperrors.Handler {
	return h.RequireAuth(func(w http.ResponseWriter, r *http.Request) error {
		user := UserFromContext(r.Context())
		if user == nil || user.Role != role {
			return apperrors.Forbidden("insufficient permissions")
		}
		return next(w, r)
	})
}

func bearerOrCookieToken(r *http.Request) string {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
