package app

import (
	"context"
	"time"

	"github.com/cliptube/backend/internal/auth"
	"github.com/cliptube/backend/internal/config"
	"github.com/cliptube/backend/internal/db"
	"github.com/cliptube/backend/internal/handlers"
	"github.com/cliptube/backend/internal/media"
	"github.com/cliptube/backend/internal/middleware"
	"github.com/cliptube/backend/internal/repositories"
)

// buildDependencies wires together concrete implementations used by the HTTP handlers.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config) (handlers.Dependencies, error) {
	probe := media.NewDurationProbe(cfg.FFProbePath, cfg.FFProbeTimeout)
	storage, err := media.NewS3Storage(ctx, cfg.ObjectStore, probe)
	if err != nil {
		return handlers.Dependencies{}, err
	}

	users := repositories.NewPostgresUserRepository(pool)
	tokens := auth.NewTokenManager(cfg.AccessTokenSecret, cfg.RefreshTokenSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	authn := middleware.Authenticator{Tokens: tokens, Users: users}

	return handlers.Dependencies{
		Users:         users,
		Videos:        repositories.NewPostgresVideoRepository(pool),
		Tweets:        repositories.NewPostgresTweetRepository(pool),
		Comments:      repositories.NewPostgresCommentRepository(pool),
		Likes:         repositories.NewPostgresLikeRepository(pool),
		Playlists:     repositories.NewPostgresPlaylistRepository(pool),
		Subscriptions: repositories.NewPostgresSubscriptionRepository(pool),
		Tokens:        tokens,
		Media:         storage,
		Limiter:       middleware.NewIPRateLimiter(10, time.Minute, 5, 10*time.Minute),
		UploadDir:     cfg.UploadDir,
		RequireAuth:   authn.RequireAuth,
		OptionalAuth:  authn.OptionalAuth,
	}, nil
}
