package repositories

import (
	"context"
	"time"

	"github.com/blogit/backend/internal/models"
)

// FriendRepository defines data access for friend requests and the
// friendships relation they maintain.
type FriendRepository interface {
	Create(ctx context.Context, request models.FriendRequest) error
	FindByID(ctx context.Context, id string) (models.FriendRequest, error)
	FindByPair(ctx context.Context, userID, otherID string) (models.FriendRequest, error)
	Accept(ctx context.Context, requestID string, respondedAt time.Time) error
	DeletePending(ctx context.Context, requestID string) error
	ListPendingForRecipient(ctx context.Context, userID string) ([]models.FriendRequest, error)
	ListPendingFromSender(ctx context.Context, userID string) ([]models.FriendRequest, error)
	AreFriends(ctx context.Context, userID, otherID string) (bool, error)
	ListFriends(ctx context.Context, userID string) ([]models.UserSummary, error)
}
