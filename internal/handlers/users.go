package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/blogit/backend/internal/logging"
	"github.com/blogit/backend/internal/middleware"
	"github.com/blogit/backend/internal/models"
	"github.com/blogit/backend/internal/repositories"
	"github.com/blogit/backend/internal/sanitize"
)

const searchLimit = 20

// UserHandler serves public profiles and user search.
type UserHandler struct {
	Users       UserStore
	Friends     FriendService
	FriendLists FriendLister
}

// Get handles GET /api/v1/users/{id} requests. Authentication is
// optional; an authenticated viewer additionally receives the
// relationship status between themselves and the subject.
func (h UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	subjectID := strings.TrimSpace(r.PathValue("id"))
	user, err := h.Users.FindByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "user not found"})
			return
		}
		logger.Error("load user", "error", err, "userId", subjectID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to load user"})
		return
	}

	friends, err := h.FriendLists.ListFriends(ctx, subjectID)
	if err != nil {
		logger.Error("list user friends", "error", err, "userId", subjectID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to load user"})
		return
	}
	if friends == nil {
		friends = []models.UserSummary{}
	}

	payload := map[string]any{
		"user":         profileView(user),
		"friends":      friends,
		"friendsCount": len(friends),
	}

	if viewerID := middleware.UserIDFromContext(ctx); viewerID != "" {
		status, err := h.Friends.Status(ctx, viewerID, subjectID)
		if err != nil {
			logger.Error("resolve friend status", "error", err, "viewerId", viewerID, "userId", subjectID)
			respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to load user"})
			return
		}
		payload["friendStatus"] = status
	}

	respondJSON(ctx, w, http.StatusOK, payload)
}

// ListFriends handles GET /api/v1/users/{id}/friends requests.
func (h UserHandler) ListFriends(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subjectID := strings.TrimSpace(r.PathValue("id"))

	if _, err := h.Users.FindByID(ctx, subjectID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "user not found"})
			return
		}
		logging.FromContext(ctx).Error("load user", "error", err, "userId", subjectID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to load user"})
		return
	}

	friends, err := h.FriendLists.ListFriends(ctx, subjectID)
	if err != nil {
		logging.FromContext(ctx).Error("list user friends", "error", err, "userId", subjectID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to list friends"})
		return
	}
	if friends == nil {
		friends = []models.UserSummary{}
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"friends": friends})
}

// Search handles POST /api/v1/users/search requests.
func (h UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid search payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	query := sanitize.Text(req.Query)
	if len(query) < 2 {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "search query must be at least 2 characters"})
		return
	}

	results, err := h.Users.Search(ctx, query, searchLimit)
	if err != nil {
		logger.Error("search users", "error", err, "query", query)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to search users"})
		return
	}
	if results == nil {
		results = []models.UserSummary{}
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"users": results})
}

func profileView(user models.User) map[string]any {
	return map[string]any{
		"id":         user.ID,
		"username":   user.Username,
		"bio":        user.Bio,
		"avatarUrl":  user.AvatarURL,
		"location":   user.Location,
		"website":    user.Website,
		"profession": user.Profession,
		"createdAt":  user.CreatedAt,
	}
}

type searchRequest struct {
	Query string `json:"query"`
}
