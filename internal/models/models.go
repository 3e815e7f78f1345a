package models

import "time"

// User represents an account within the Blogit platform. The friends
// relation is maintained exclusively by the friend-request lifecycle in
// the social package; the profile update path must never touch it.
type User struct {
	ID         string
	Username   string
	Email      string
	Password   string
	Bio        string
	AvatarURL  string
	Theme      string
	Location   string
	Website    string
	Profession string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// UserSummary carries the public display fields attached to requests,
// messages and posts for client convenience.
type UserSummary struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl"`
	Bio       string `json:"bio,omitempty"`
}

// FriendRequest represents a directional invitation between two users.
// At most one record exists per unordered user pair, in either
// direction, whatever its status.
type FriendRequest struct {
	ID          string
	Sender      string
	Recipient   string
	Status      string
	CreatedAt   time.Time
	RespondedAt *time.Time
}

const (
	FriendStatusPending  = "pending"
	FriendStatusAccepted = "accepted"
)

// Post is an authored article with like and comment support.
type Post struct {
	ID          string
	AuthorID    string
	Title       string
	Content     string
	IsPublished bool
	LikeCount   int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Comment is a reply attached to a post.
type Comment struct {
	ID        string
	PostID    string
	AuthorID  string
	Content   string
	CreatedAt time.Time
}

// Message is a direct message between two mutual friends.
type Message struct {
	ID        string
	Sender    string
	Recipient string
	Content   string
	IsRead    bool
	CreatedAt time.Time
}

// ConversationSummary is the newest message per counterpart, used by
// the conversation list view.
type ConversationSummary struct {
	UserID          string
	LastMessage     string
	LastMessageTime time.Time
	LastSender      string
	IsRead          bool
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}
