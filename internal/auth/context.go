package auth

import (
	"context"

	"github.com/cliptube/backend/internal/models"
)

type ctxKey string

const userKey ctxKey = "currentUser"

// WithUser stores the authenticated caller on the context.
func WithUser(ctx context.Context, user models.User) context.Context {
	if ctx == nil {
		return ctx
	}
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the authenticated caller attached by the auth
// middleware, if any.
func UserFromContext(ctx context.Context) (models.User, bool) {
	if ctx == nil {
		return models.User{}, false
	}
	user, ok := ctx.Value(userKey).(models.User)
	return user, ok
}
