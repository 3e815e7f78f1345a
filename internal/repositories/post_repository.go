package repositories

import (
	"context"

	"github.com/blogit/backend/internal/models"
)

// PostRepository defines data access for posts, likes and comments.
type PostRepository interface {
	Create(ctx context.Context, post models.Post) error
	FindByID(ctx context.Context, id string) (models.Post, error)
	ListPublished(ctx context.Context, page, limit int) ([]models.Post, int, error)
	ListByAuthor(ctx context.Context, authorID string, page, limit int) ([]models.Post, int, error)
	Update(ctx context.Context, post models.Post) error
	Delete(ctx context.Context, id, authorID string) error
	Like(ctx context.Context, postID, userID string) (int, error)
	Unlike(ctx context.Context, postID, userID string) (int, error)
	Comments(ctx context.Context, postID string) ([]models.Comment, error)
	AddComment(ctx context.Context, comment models.Comment) error
}
