package app

import (
	"context"
	"fmt"
	"time"

	"github.com/blogit/backend/internal/auth"
	"github.com/blogit/backend/internal/config"
	"github.com/blogit/backend/internal/db"
	"github.com/blogit/backend/internal/handlers"
	"github.com/blogit/backend/internal/middleware"
	"github.com/blogit/backend/internal/repositories"
	"github.com/blogit/backend/internal/social"
	"github.com/blogit/backend/internal/storage"
)

const (
	limiterEntryTTL   = 30 * time.Minute
	messageRateLimit  = 60
	messageRateWindow = time.Minute
	messageRateBurst  = 20
)

// dependencies bundles the wired collaborators plus the session store,
// which the serve loop also uses for periodic cleanup.
type dependencies struct {
	handlers handlers.Dependencies
	sessions *repositories.PostgresSessionStore
}

// buildDependencies wires together concrete implementations used by the
// HTTP handlers.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config) (dependencies, error) {
	users := repositories.NewPostgresUserRepository(pool)
	friends := repositories.NewPostgresFriendRepository(pool)
	posts := repositories.NewPostgresPostRepository(pool)
	messages := repositories.NewPostgresMessageRepository(pool)
	sessionStore := repositories.NewPostgresSessionStore(pool)

	manager := auth.NewManager([]byte(cfg.JWTSecret), cfg.AccessTokenTTL, cfg.RefreshTokenTTL, sessionStore)

	friendService := &social.Service{
		Requests:    friends,
		Friendships: friends,
		Users:       users,
	}

	profiles := social.NewCachingProfiles(users, cfg.ProfileCacheTTL)

	var avatars handlers.AvatarStorage
	if cfg.ObjectStore.Bucket != "" {
		s3, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
		if err != nil {
			return dependencies{}, fmt.Errorf("configure avatar storage: %w", err)
		}
		avatars = s3
	}

	deps := handlers.Dependencies{
		Users:          users,
		Sessions:       manager,
		Verifier:       manager,
		Friends:        friendService,
		FriendLists:    friends,
		Profiles:       profiles,
		ProfileCache:   profiles,
		Posts:          posts,
		Messages:       messages,
		Avatars:        avatars,
		AuthLimiter:    middleware.NewIPRateLimiter(cfg.AuthRateLimit, cfg.AuthRateWindow, cfg.AuthRateBurst, limiterEntryTTL),
		MessageLimiter: middleware.NewIPRateLimiter(messageRateLimit, messageRateWindow, messageRateBurst, limiterEntryTTL),
	}

	return dependencies{handlers: deps, sessions: sessionStore}, nil
}
