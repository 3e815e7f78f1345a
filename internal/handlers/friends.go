package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/blogit/backend/internal/logging"
	"github.com/blogit/backend/internal/middleware"
	"github.com/blogit/backend/internal/models"
	"github.com/blogit/backend/internal/repositories"
	"github.com/blogit/backend/internal/social"
)

// FriendHandler implements the friend-request lifecycle endpoints.
type FriendHandler struct {
	Friends  FriendService
	Profiles ProfileSource
}

// Send handles POST /api/v1/friends/send requests.
func (h FriendHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)
	userID := middleware.UserIDFromContext(ctx)

	var req sendFriendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid friend request payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.RecipientID = strings.TrimSpace(req.RecipientID)
	if req.RecipientID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "recipientId is required"})
		return
	}

	request, err := h.Friends.Send(ctx, userID, req.RecipientID)
	if err != nil {
		switch {
		case errors.Is(err, social.ErrSelfTarget):
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "cannot send a friend request to yourself"})
		case errors.Is(err, repositories.ErrNotFound):
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "recipient not found"})
		case errors.Is(err, repositories.ErrConflict):
			respondJSON(ctx, w, http.StatusConflict, map[string]string{"error": "a request or friendship already exists with this user"})
		default:
			logger.Error("send friend request", "error", err, "userId", userID)
			respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to send friend request"})
		}
		return
	}

	respondJSON(ctx, w, http.StatusCreated, map[string]any{
		"request": h.requestView(ctx, request, request.Sender),
	})
}

// Pending handles GET /api/v1/friends/pending requests: invitations
// awaiting the caller's response.
func (h FriendHandler) Pending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserIDFromContext(ctx)

	requests, err := h.Friends.PendingFor(ctx, userID)
	if err != nil {
		logging.FromContext(ctx).Error("list pending requests", "error", err, "userId", userID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to list friend requests"})
		return
	}

	views := make([]requestView, 0, len(requests))
	for _, request := range requests {
		views = append(views, h.requestView(ctx, request, request.Sender))
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"requests": views})
}

// Sent handles GET /api/v1/friends/sent requests: invitations the
// caller has issued and may still cancel.
func (h FriendHandler) Sent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserIDFromContext(ctx)

	requests, err := h.Friends.SentBy(ctx, userID)
	if err != nil {
		logging.FromContext(ctx).Error("list sent requests", "error", err, "userId", userID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to list friend requests"})
		return
	}

	views := make([]requestView, 0, len(requests))
	for _, request := range requests {
		views = append(views, h.requestView(ctx, request, request.Recipient))
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"requests": views})
}

// Accept handles POST /api/v1/friends/{id}/accept requests.
func (h FriendHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "accept", h.Friends.Accept)
}

// Reject handles POST /api/v1/friends/{id}/reject requests.
func (h FriendHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "reject", h.Friends.Reject)
}

// Cancel handles DELETE /api/v1/friends/{id} requests.
func (h FriendHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "cancel", h.Friends.Cancel)
}

func (h FriendHandler) respond(w http.ResponseWriter, r *http.Request, action string, transition func(ctx context.Context, requestID, actingUserID string) error) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)
	userID := middleware.UserIDFromContext(ctx)

	requestID := strings.TrimSpace(r.PathValue("id"))
	if requestID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "request id is required"})
		return
	}

	if err := transition(ctx, requestID, userID); err != nil {
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "friend request not found"})
		case errors.Is(err, social.ErrForbidden):
			respondJSON(ctx, w, http.StatusForbidden, map[string]string{"error": "you cannot " + action + " this request"})
		case errors.Is(err, social.ErrInvalidState):
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "request is no longer pending"})
		default:
			logger.Error("friend request transition failed", "action", action, "error", err, "requestId", requestID)
			respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to update friend request"})
		}
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": action + "ed"})
}

type requestView struct {
	ID        string              `json:"id"`
	Sender    string              `json:"senderId"`
	Recipient string              `json:"recipientId"`
	Status    string              `json:"status"`
	CreatedAt time.Time           `json:"createdAt"`
	User      *models.UserSummary `json:"user,omitempty"`
}

// requestView attaches the named party's public summary. A failed
// summary lookup degrades the view rather than the request.
func (h FriendHandler) requestView(ctx context.Context, request models.FriendRequest, summaryUserID string) requestView {
	view := requestView{
		ID:        request.ID,
		Sender:    request.Sender,
		Recipient: request.Recipient,
		Status:    request.Status,
		CreatedAt: request.CreatedAt,
	}

	if h.Profiles == nil {
		return view
	}

	summary, err := h.Profiles.Profile(ctx, summaryUserID)
	if err != nil {
		logging.FromContext(ctx).Warn("resolve request party", "error", err, "userId", summaryUserID)
		return view
	}

	view.User = &summary
	return view
}

type sendFriendRequest struct {
	RecipientID string `json:"recipientId"`
}
