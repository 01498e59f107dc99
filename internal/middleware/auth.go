package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/cliptube/backend/internal/auth"
	"github.com/cliptube/backend/internal/logging"
	"github.com/cliptube/backend/internal/models"
)

// AccessVerifier validates an access token and returns the subject user id.
type AccessVerifier interface {
	VerifyAccess(token string) (string, error)
}

// UserLoader resolves a user row by id.
type UserLoader interface {
	FindByID(ctx context.Context, id string) (models.User, error)
}

// Authenticator attaches the calling user to the request context. RequireAuth
// rejects requests without valid credentials; OptionalAuth lets them through
// anonymously.
type Authenticator struct {
	Tokens AccessVerifier
	Users  UserLoader
}

// RequireAuth wraps next so that it only runs for authenticated callers.
func (a Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := a.resolve(r)
		if !ok {
			writeUnauthorized(r.Context(), w)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), user)))
	})
}

// OptionalAuth wraps next, attaching the caller when a valid token is present
// and passing the request through untouched otherwise.
func (a Authenticator) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, ok := a.resolve(r); ok {
			r = r.WithContext(auth.WithUser(r.Context(), user))
		}
		next.ServeHTTP(w, r)
	})
}

func (a Authenticator) resolve(r *http.Request) (models.User, bool) {
	token := accessTokenFromRequest(r)
	if token == "" {
		return models.User{}, false
	}

	userID, err := a.Tokens.VerifyAccess(token)
	if err != nil {
		return models.User{}, false
	}

	user, err := a.Users.FindByID(r.Context(), userID)
	if err != nil {
		logging.FromContext(r.Context()).Warn("token subject not found", "userId", userID)
		return models.User{}, false
	}
	return user, true
}

func accessTokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie("accessToken"); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}

func writeUnauthorized(ctx context.Context, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)

	payload := map[string]any{
		"statusCode": http.StatusUnauthorized,
		"message":    "Unauthorized request",
		"success":    false,
		"errors":     []string{},
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("failed to encode response", "error", err)
	}
}
