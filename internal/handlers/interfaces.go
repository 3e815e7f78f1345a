package handlers

import (
	"context"
	"io"

	"github.com/blogit/backend/internal/models"
)

// UserStore captures the persistence operations required by the auth and
// user handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	UpdateProfile(ctx context.Context, user models.User) error
	Search(ctx context.Context, query string, limit int) ([]models.UserSummary, error)
}

// SessionManager issues, refreshes and revokes authentication tokens.
type SessionManager interface {
	Issue(ctx context.Context, userID string) (models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	Revoke(ctx context.Context, refreshToken string)
}

// FriendService drives the friend-request lifecycle and answers
// relationship queries.
type FriendService interface {
	Send(ctx context.Context, senderID, recipientID string) (models.FriendRequest, error)
	Accept(ctx context.Context, requestID, actingUserID string) error
	Reject(ctx context.Context, requestID, actingUserID string) error
	Cancel(ctx context.Context, requestID, actingUserID string) error
	Status(ctx context.Context, viewerID, subjectID string) (string, error)
	EnsureFriends(ctx context.Context, userID, otherID string) error
	PendingFor(ctx context.Context, userID string) ([]models.FriendRequest, error)
	SentBy(ctx context.Context, userID string) ([]models.FriendRequest, error)
}

// FriendLister reads the materialized friends relation.
type FriendLister interface {
	ListFriends(ctx context.Context, userID string) ([]models.UserSummary, error)
}

// ProfileSource resolves public user summaries attached to requests,
// posts, comments and conversations.
type ProfileSource interface {
	Profile(ctx context.Context, userID string) (models.UserSummary, error)
}

// ProfileInvalidator drops a cached summary after a profile update.
type ProfileInvalidator interface {
	Invalidate(userID string)
}

// PostStore captures persistence for posts, likes and comments.
type PostStore interface {
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

// MessageStore captures persistence for direct messages.
type MessageStore interface {
	Create(ctx context.Context, message models.Message) error
	Conversation(ctx context.Context, userID, otherID string, page, limit int) ([]models.Message, error)
	MarkRead(ctx context.Context, senderID, recipientID string) error
	Conversations(ctx context.Context, userID string, limit int) ([]models.ConversationSummary, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
}

// AvatarStorage persists avatar images and returns their public location.
type AvatarStorage interface {
	Save(ctx context.Context, name, contentType string, r io.Reader) (string, error)
}
