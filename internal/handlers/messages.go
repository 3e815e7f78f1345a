package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/blogit/backend/internal/logging"
	"github.com/blogit/backend/internal/middleware"
	"github.com/blogit/backend/internal/models"
	"github.com/blogit/backend/internal/sanitize"
	"github.com/blogit/backend/internal/social"
)

const (
	messagePageSize    = 50
	conversationsLimit = 50
	maxMessageLength   = 5000
)

// MessageHandler implements direct messaging between mutual friends.
type MessageHandler struct {
	Messages MessageStore
	Friends  FriendService
	Profiles ProfileSource
	Limiter  RateLimiter
	NowFunc  func() time.Time
}

// Send handles POST /api/v1/messages/send requests. Messaging is gated
// on an accepted friendship in both directions.
func (h MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)
	userID := middleware.UserIDFromContext(ctx)

	if !allowRequest(h.Limiter, r, "messages") {
		respondJSON(ctx, w, http.StatusTooManyRequests, map[string]string{"error": "too many messages, slow down"})
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid message payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.RecipientID = strings.TrimSpace(req.RecipientID)
	content := sanitize.Text(req.Content)
	if req.RecipientID == "" || content == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "recipientId and content are required"})
		return
	}
	if utf8.RuneCountInString(content) > maxMessageLength {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "message must be at most 5000 characters"})
		return
	}

	if err := h.Friends.EnsureFriends(ctx, userID, req.RecipientID); err != nil {
		if errors.Is(err, social.ErrNotFriends) {
			respondJSON(ctx, w, http.StatusForbidden, map[string]string{"error": "you can only message friends"})
			return
		}
		logger.Error("check friendship", "error", err, "userId", userID, "recipientId", req.RecipientID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to send message"})
		return
	}

	message := models.Message{
		ID:        uuid.NewString(),
		Sender:    userID,
		Recipient: req.RecipientID,
		Content:   content,
		CreatedAt: h.now(),
	}

	if err := h.Messages.Create(ctx, message); err != nil {
		logger.Error("store message", "error", err, "userId", userID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to send message"})
		return
	}

	respondJSON(ctx, w, http.StatusCreated, map[string]any{"message": messageView(message)})
}

// With handles GET /api/v1/messages/with/{userId} requests: one page of
// the thread with another user, oldest first within the page. Fetching
// a page marks the counterpart's messages as read.
func (h MessageHandler) With(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)
	userID := middleware.UserIDFromContext(ctx)

	otherID := strings.TrimSpace(r.PathValue("userId"))
	if otherID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "user id is required"})
		return
	}

	if err := h.Friends.EnsureFriends(ctx, userID, otherID); err != nil {
		if errors.Is(err, social.ErrNotFriends) {
			respondJSON(ctx, w, http.StatusForbidden, map[string]string{"error": "you can only message friends"})
			return
		}
		logger.Error("check friendship", "error", err, "userId", userID, "otherId", otherID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to load messages"})
		return
	}

	page, _ := pagination(r)
	messages, err := h.Messages.Conversation(ctx, userID, otherID, page, messagePageSize)
	if err != nil {
		logger.Error("load conversation", "error", err, "userId", userID, "otherId", otherID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to load messages"})
		return
	}

	if err := h.Messages.MarkRead(ctx, otherID, userID); err != nil {
		logger.Warn("mark messages read", "error", err, "userId", userID, "otherId", otherID)
	}

	// Storage returns the page newest first; the client renders the
	// thread top down.
	views := make([]messageViewData, 0, len(messages))
	for i := len(messages) - 1; i >= 0; i-- {
		views = append(views, messageView(messages[i]))
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"messages": views, "page": page})
}

// Conversations handles GET /api/v1/messages/conversations requests:
// the latest message per counterpart, newest first.
func (h MessageHandler) Conversations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)
	userID := middleware.UserIDFromContext(ctx)

	summaries, err := h.Messages.Conversations(ctx, userID, conversationsLimit)
	if err != nil {
		logger.Error("list conversations", "error", err, "userId", userID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to list conversations"})
		return
	}

	views := make([]conversationView, 0, len(summaries))
	for _, summary := range summaries {
		view := conversationView{
			UserID:          summary.UserID,
			LastMessage:     summary.LastMessage,
			LastMessageTime: summary.LastMessageTime,
			LastSender:      summary.LastSender,
			IsRead:          summary.IsRead || summary.LastSender == userID,
		}
		if h.Profiles != nil {
			if profile, err := h.Profiles.Profile(ctx, summary.UserID); err == nil {
				view.User = &profile
			}
		}
		views = append(views, view)
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"conversations": views})
}

// Unread handles GET /api/v1/messages/unread requests.
func (h MessageHandler) Unread(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserIDFromContext(ctx)

	count, err := h.Messages.UnreadCount(ctx, userID)
	if err != nil {
		logging.FromContext(ctx).Error("count unread messages", "error", err, "userId", userID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to count unread messages"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]int{"unread": count})
}

type messageViewData struct {
	ID        string    `json:"id"`
	Sender    string    `json:"senderId"`
	Recipient string    `json:"recipientId"`
	Content   string    `json:"content"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
}

func messageView(message models.Message) messageViewData {
	return messageViewData{
		ID:        message.ID,
		Sender:    message.Sender,
		Recipient: message.Recipient,
		Content:   message.Content,
		IsRead:    message.IsRead,
		CreatedAt: message.CreatedAt,
	}
}

type conversationView struct {
	UserID          string              `json:"userId"`
	LastMessage     string              `json:"lastMessage"`
	LastMessageTime time.Time           `json:"lastMessageTime"`
	LastSender      string              `json:"lastSenderId"`
	IsRead          bool                `json:"isRead"`
	User            *models.UserSummary `json:"user,omitempty"`
}

type sendMessageRequest struct {
	RecipientID string `json:"recipientId"`
	Content     string `json:"content"`
}

func (h MessageHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
