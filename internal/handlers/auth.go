package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/blogit/backend/internal/logging"
	"github.com/blogit/backend/internal/middleware"
	"github.com/blogit/backend/internal/models"
	"github.com/blogit/backend/internal/repositories"
	"github.com/blogit/backend/internal/sanitize"
	"github.com/blogit/backend/internal/storage"
)

const bcryptCost = 12

// AuthHandler implements registration, login, token refresh and the
// current-user profile endpoints.
type AuthHandler struct {
	Users    UserStore
	Sessions SessionManager
	Limiter  RateLimiter
	Avatars  AvatarStorage
	Profiles ProfileInvalidator
	NowFunc  func() time.Time
}

// Register handles POST /api/v1/auth/register requests.
func (h AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Users == nil || h.Sessions == nil {
		logger.Error("authentication dependencies unavailable", "hasUsers", h.Users != nil, "hasSessions", h.Sessions != nil)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "authentication services unavailable"})
		return
	}

	if !allowRequest(h.Limiter, r, "auth") {
		respondJSON(ctx, w, http.StatusTooManyRequests, map[string]string{"error": "too many attempts, try again later"})
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid register payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.Username = sanitize.Text(req.Username)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	if msg := validateRegistration(req); msg != "" {
		logger.Warn("register validation failed", "reason", msg)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		logger.Error("register failed to hash password", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to secure password"})
		return
	}

	now := h.now()
	user := models.User{
		ID:        uuid.NewString(),
		Username:  req.Username,
		Email:     req.Email,
		Password:  string(hashed),
		Theme:     models.ThemeLight,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			logger.Warn("register conflict", "username", req.Username)
			respondJSON(ctx, w, http.StatusConflict, map[string]string{"error": "username or email already taken"})
			return
		}
		logger.Error("register failed to create user", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to create account"})
		return
	}

	tokens, err := h.Sessions.Issue(ctx, user.ID)
	if err != nil {
		logger.Error("register failed to issue session", "error", err, "userId", user.ID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to create session"})
		return
	}

	respondJSON(ctx, w, http.StatusCreated, authResponse{Tokens: tokens, User: publicUser(user)})
}

// Login handles POST /api/v1/auth/login requests.
func (h AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Users == nil || h.Sessions == nil {
		logger.Error("authentication dependencies unavailable", "hasUsers", h.Users != nil, "hasSessions", h.Sessions != nil)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "authentication services unavailable"})
		return
	}

	if !allowRequest(h.Limiter, r, "auth") {
		respondJSON(ctx, w, http.StatusTooManyRequests, map[string]string{"error": "too many attempts, try again later"})
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid login payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		logger.Warn("login missing credentials", "email", req.Email)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "email and password are required"})
		return
	}

	user, err := h.Users.FindByEmail(ctx, req.Email)
	if err != nil {
		logger.Warn("login user lookup failed", "email", req.Email, "error", err)
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		logger.Warn("login password mismatch", "userId", user.ID)
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}

	tokens, err := h.Sessions.Issue(ctx, user.ID)
	if err != nil {
		logger.Error("failed to issue session", "error", err, "userId", user.ID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to create session"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, authResponse{Tokens: tokens, User: publicUser(user)})
}

// Refresh exchanges a refresh token for a new session.
func (h AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Sessions == nil {
		logger.Error("session manager unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "session service unavailable"})
		return
	}

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid refresh payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.RefreshToken = strings.TrimSpace(req.RefreshToken)
	if req.RefreshToken == "" {
		logger.Warn("missing refresh token")
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "refresh token is required"})
		return
	}

	tokens, err := h.Sessions.Refresh(ctx, req.RefreshToken)
	if err != nil {
		logger.Warn("refresh failed", "error", err)
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "unable to refresh session"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, authResponse{Tokens: tokens})
}

// Logout revokes the caller's refresh token. The access token stays
// valid until it expires; clients drop it on logout.
func (h AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logging.FromContext(ctx).Warn("invalid logout payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	h.Sessions.Revoke(ctx, strings.TrimSpace(req.RefreshToken))
	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "logged out"})
}

// Me handles GET /api/v1/auth/me requests.
func (h AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	userID := middleware.UserIDFromContext(ctx)
	user, err := h.Users.FindByID(ctx, userID)
	if err != nil {
		logger.Error("load current user", "error", err, "userId", userID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to load profile"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"user": publicUser(user)})
}

// UpdateMe handles PUT /api/v1/auth/me requests. Only profile fields are
// mutable here; the friends relation is owned by the friend-request
// lifecycle.
func (h AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	userID := middleware.UserIDFromContext(ctx)
	user, err := h.Users.FindByID(ctx, userID)
	if err != nil {
		logger.Error("load current user", "error", err, "userId", userID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to load profile"})
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid profile payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Bio != nil {
		bio := sanitize.Text(*req.Bio)
		if utf8.RuneCountInString(bio) > 500 {
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "bio must be at most 500 characters"})
			return
		}
		user.Bio = bio
	}
	if req.Location != nil {
		user.Location = sanitize.Text(*req.Location)
	}
	if req.Website != nil {
		user.Website = sanitize.Text(*req.Website)
	}
	if req.Profession != nil {
		user.Profession = sanitize.Text(*req.Profession)
	}
	if req.Theme != nil {
		theme := strings.TrimSpace(*req.Theme)
		if theme != models.ThemeLight && theme != models.ThemeDark {
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "theme must be light or dark"})
			return
		}
		user.Theme = theme
	}
	if req.Avatar != nil {
		avatarURL, err := h.storeAvatar(ctx, userID, *req.Avatar)
		if err != nil {
			logger.Warn("avatar rejected", "error", err, "userId", userID)
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		user.AvatarURL = avatarURL
	}

	user.UpdatedAt = h.now()
	if err := h.Users.UpdateProfile(ctx, user); err != nil {
		logger.Error("update profile", "error", err, "userId", userID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to update profile"})
		return
	}

	if h.Profiles != nil {
		h.Profiles.Invalidate(userID)
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"user": publicUser(user)})
}

// storeAvatar accepts either a plain https URL or an inline data URL.
// Inline images are decoded and uploaded to the object store.
func (h AuthHandler) storeAvatar(ctx context.Context, userID, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}

	if !strings.HasPrefix(raw, "data:") {
		parsed, err := url.Parse(raw)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			return "", errors.New("avatar must be an http(s) url or an inline image")
		}
		return raw, nil
	}

	if h.Avatars == nil {
		return "", errors.New("avatar uploads are not enabled")
	}

	image, err := storage.ParseImageDataURL(raw)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("avatars/%s.%s", userID, image.Extension)
	location, err := h.Avatars.Save(ctx, key, image.ContentType, bytes.NewReader(image.Data))
	if err != nil {
		return "", fmt.Errorf("store avatar: %w", err)
	}

	return location, nil
}

func validateRegistration(req registerRequest) string {
	if len(req.Username) < 3 || len(req.Username) > 30 {
		return "username must be between 3 and 30 characters"
	}
	for _, r := range req.Username {
		if !isAlphanumeric(r) {
			return "username may only contain letters and numbers"
		}
	}
	if req.Email == "" {
		return "email is required"
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return "invalid email address"
	}
	if len(req.Password) < 6 || len(req.Password) > 255 {
		return "password must be between 6 and 255 characters"
	}
	return ""
}

func isAlphanumeric(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func publicUser(user models.User) map[string]any {
	return map[string]any{
		"id":         user.ID,
		"username":   user.Username,
		"email":      user.Email,
		"bio":        user.Bio,
		"avatarUrl":  user.AvatarURL,
		"theme":      user.Theme,
		"location":   user.Location,
		"website":    user.Website,
		"profession": user.Profession,
		"createdAt":  user.CreatedAt,
	}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type updateProfileRequest struct {
	Bio        *string `json:"bio"`
	Location   *string `json:"location"`
	Website    *string `json:"website"`
	Profession *string `json:"profession"`
	Theme      *string `json:"theme"`
	Avatar     *string `json:"avatar"`
}

type authResponse struct {
	Tokens models.SessionTokens `json:"tokens"`
	User   map[string]any       `json:"user,omitempty"`
}

func (h AuthHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "response", payload)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "response", payload)
	}
}
