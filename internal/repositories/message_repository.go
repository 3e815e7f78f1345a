package repositories

import (
	"context"

	"github.com/blogit/backend/internal/models"
)

// MessageRepository defines data access for direct messages.
type MessageRepository interface {
	Create(ctx context.Context, message models.Message) error
	Conversation(ctx context.Context, userID, otherID string, page, limit int) ([]models.Message, error)
	MarkRead(ctx context.Context, senderID, recipientID string) error
	Conversations(ctx context.Context, userID string, limit int) ([]models.ConversationSummary, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
}
