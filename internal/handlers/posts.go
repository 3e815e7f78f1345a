package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/blogit/backend/internal/logging"
	"github.com/blogit/backend/internal/middleware"
	"github.com/blogit/backend/internal/models"
	"github.com/blogit/backend/internal/repositories"
	"github.com/blogit/backend/internal/sanitize"
)

const (
	defaultPageSize  = 10
	maxPageSize      = 100
	maxTitleLength   = 500
	maxContentLength = 50000
	maxCommentLength = 5000
)

// PostHandler implements the blog post endpoints.
type PostHandler struct {
	Posts    PostStore
	Profiles ProfileSource
	NowFunc  func() time.Time
}

// List handles GET /api/v1/posts requests: published posts, paginated.
func (h PostHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page, limit := pagination(r)

	posts, total, err := h.Posts.ListPublished(ctx, page, limit)
	if err != nil {
		logging.FromContext(ctx).Error("list posts", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to list posts"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, h.pageView(ctx, posts, total, page, limit))
}

// Mine handles GET /api/v1/posts/mine requests: the caller's posts,
// drafts included.
func (h PostHandler) Mine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserIDFromContext(ctx)
	page, limit := pagination(r)

	posts, total, err := h.Posts.ListByAuthor(ctx, userID, page, limit)
	if err != nil {
		logging.FromContext(ctx).Error("list own posts", "error", err, "userId", userID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to list posts"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, h.pageView(ctx, posts, total, page, limit))
}

// Create handles POST /api/v1/posts requests.
func (h PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)
	userID := middleware.UserIDFromContext(ctx)

	var req postRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid post payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	title, content, msg := validatePost(req)
	if msg != "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	published := true
	if req.IsPublished != nil {
		published = *req.IsPublished
	}

	now := h.now()
	post := models.Post{
		ID:          uuid.NewString(),
		AuthorID:    userID,
		Title:       title,
		Content:     content,
		IsPublished: published,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.Posts.Create(ctx, post); err != nil {
		logger.Error("create post", "error", err, "userId", userID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to create post"})
		return
	}

	respondJSON(ctx, w, http.StatusCreated, map[string]any{"post": h.postView(ctx, post)})
}

// Get handles GET /api/v1/posts/{id} requests. Unpublished posts are
// visible only to their author.
func (h PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	post, ok := h.loadPost(ctx, w, r)
	if !ok {
		return
	}

	if !post.IsPublished && post.AuthorID != middleware.UserIDFromContext(ctx) {
		respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "post not found"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"post": h.postView(ctx, post)})
}

// Update handles PUT /api/v1/posts/{id} requests.
func (h PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)
	userID := middleware.UserIDFromContext(ctx)

	post, ok := h.loadPost(ctx, w, r)
	if !ok {
		return
	}

	// Ownership failures read as absence, so probing other users'
	// drafts reveals nothing.
	if post.AuthorID != userID {
		respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "post not found"})
		return
	}

	var req postRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid post payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	title, content, msg := validatePost(req)
	if msg != "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	post.Title = title
	post.Content = content
	if req.IsPublished != nil {
		post.IsPublished = *req.IsPublished
	}
	post.UpdatedAt = h.now()

	if err := h.Posts.Update(ctx, post); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "post not found"})
			return
		}
		logger.Error("update post", "error", err, "postId", post.ID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to update post"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"post": h.postView(ctx, post)})
}

// Delete handles DELETE /api/v1/posts/{id} requests.
func (h PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserIDFromContext(ctx)

	postID := strings.TrimSpace(r.PathValue("id"))
	if err := h.Posts.Delete(ctx, postID, userID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "post not found"})
			return
		}
		logging.FromContext(ctx).Error("delete post", "error", err, "postId", postID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to delete post"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Like handles POST /api/v1/posts/{id}/like requests.
func (h PostHandler) Like(w http.ResponseWriter, r *http.Request) {
	h.updateLike(w, r, h.Posts.Like, true)
}

// Unlike handles POST /api/v1/posts/{id}/unlike requests.
func (h PostHandler) Unlike(w http.ResponseWriter, r *http.Request) {
	h.updateLike(w, r, h.Posts.Unlike, false)
}

func (h PostHandler) updateLike(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, postID, userID string) (int, error), liked bool) {
	ctx := r.Context()
	userID := middleware.UserIDFromContext(ctx)
	postID := strings.TrimSpace(r.PathValue("id"))

	count, err := op(ctx, postID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "post not found"})
			return
		}
		logging.FromContext(ctx).Error("update like", "error", err, "postId", postID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to update like"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"likeCount": count, "liked": liked})
}

// Comments handles GET /api/v1/posts/{id}/comments requests.
func (h PostHandler) Comments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	post, ok := h.loadPost(ctx, w, r)
	if !ok {
		return
	}

	comments, err := h.Posts.Comments(ctx, post.ID)
	if err != nil {
		logging.FromContext(ctx).Error("list comments", "error", err, "postId", post.ID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to list comments"})
		return
	}

	views := make([]commentView, 0, len(comments))
	for _, comment := range comments {
		views = append(views, h.commentView(ctx, comment))
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"comments": views})
}

// AddComment handles POST /api/v1/posts/{id}/comments requests.
func (h PostHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)
	userID := middleware.UserIDFromContext(ctx)

	post, ok := h.loadPost(ctx, w, r)
	if !ok {
		return
	}

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid comment payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	content := sanitize.Text(req.Content)
	if content == "" || utf8.RuneCountInString(content) > maxCommentLength {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "comment must be between 1 and 5000 characters"})
		return
	}

	comment := models.Comment{
		ID:        uuid.NewString(),
		PostID:    post.ID,
		AuthorID:  userID,
		Content:   content,
		CreatedAt: h.now(),
	}

	if err := h.Posts.AddComment(ctx, comment); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "post not found"})
			return
		}
		logger.Error("add comment", "error", err, "postId", post.ID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to add comment"})
		return
	}

	respondJSON(ctx, w, http.StatusCreated, map[string]any{"comment": h.commentView(ctx, comment)})
}

func (h PostHandler) loadPost(ctx context.Context, w http.ResponseWriter, r *http.Request) (models.Post, bool) {
	postID := strings.TrimSpace(r.PathValue("id"))
	post, err := h.Posts.FindByID(ctx, postID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "post not found"})
			return models.Post{}, false
		}
		logging.FromContext(ctx).Error("load post", "error", err, "postId", postID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to load post"})
		return models.Post{}, false
	}
	return post, true
}

type postView struct {
	ID          string              `json:"id"`
	AuthorID    string              `json:"authorId"`
	Title       string              `json:"title"`
	Content     string              `json:"content"`
	IsPublished bool                `json:"isPublished"`
	LikeCount   int                 `json:"likeCount"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
	Author      *models.UserSummary `json:"author,omitempty"`
}

func (h PostHandler) postView(ctx context.Context, post models.Post) postView {
	view := postView{
		ID:          post.ID,
		AuthorID:    post.AuthorID,
		Title:       post.Title,
		Content:     post.Content,
		IsPublished: post.IsPublished,
		LikeCount:   post.LikeCount,
		CreatedAt:   post.CreatedAt,
		UpdatedAt:   post.UpdatedAt,
	}

	if h.Profiles != nil {
		if summary, err := h.Profiles.Profile(ctx, post.AuthorID); err == nil {
			view.Author = &summary
		}
	}

	return view
}

func (h PostHandler) pageView(ctx context.Context, posts []models.Post, total, page, limit int) map[string]any {
	views := make([]postView, 0, len(posts))
	for _, post := range posts {
		views = append(views, h.postView(ctx, post))
	}

	pages := total / limit
	if total%limit != 0 {
		pages++
	}

	return map[string]any{
		"posts": views,
		"total": total,
		"page":  page,
		"pages": pages,
	}
}

type commentView struct {
	ID        string              `json:"id"`
	PostID    string              `json:"postId"`
	Content   string              `json:"content"`
	CreatedAt time.Time           `json:"createdAt"`
	Author    *models.UserSummary `json:"author,omitempty"`
}

func (h PostHandler) commentView(ctx context.Context, comment models.Comment) commentView {
	view := commentView{
		ID:        comment.ID,
		PostID:    comment.PostID,
		Content:   comment.Content,
		CreatedAt: comment.CreatedAt,
	}

	if h.Profiles != nil {
		if summary, err := h.Profiles.Profile(ctx, comment.AuthorID); err == nil {
			view.Author = &summary
		}
	}

	return view
}

func validatePost(req postRequest) (title, content, msg string) {
	title = sanitize.Text(req.Title)
	content = sanitize.Content(req.Content)

	if title == "" || utf8.RuneCountInString(title) > maxTitleLength {
		return "", "", "title must be between 1 and 500 characters"
	}
	if content == "" || utf8.RuneCountInString(content) > maxContentLength {
		return "", "", "content must be between 1 and 50000 characters"
	}
	return title, content, ""
}

func pagination(r *http.Request) (page, limit int) {
	page = 1
	limit = defaultPageSize

	if raw := r.URL.Query().Get("page"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			page = parsed
		}
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

type postRequest struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	IsPublished *bool  `json:"isPublished"`
}

type commentRequest struct {
	Content string `json:"content"`
}

func (h PostHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
