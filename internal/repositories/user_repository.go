package repositories

import (
	"context"

	"github.com/blogit/backend/internal/models"
)

// UserRepository defines the data access contract for users.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	UpdateProfile(ctx context.Context, user models.User) error
	Search(ctx context.Context, query string, limit int) ([]models.UserSummary, error)
	Profile(ctx context.Context, userID string) (models.UserSummary, error)
	Exists(ctx context.Context, userID string) (bool, error)
}
