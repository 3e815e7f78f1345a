package handlers

import (
	"net/http"

	"github.com/blogit/backend/internal/middleware"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users          UserStore
	Sessions       SessionManager
	Verifier       middleware.TokenVerifier
	Friends        FriendService
	FriendLists    FriendLister
	Profiles       ProfileSource
	ProfileCache   ProfileInvalidator
	Posts          PostStore
	Messages       MessageStore
	Avatars        AvatarStorage
	AuthLimiter    RateLimiter
	MessageLimiter RateLimiter
}

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{}
	auth := AuthHandler{
		Users:    deps.Users,
		Sessions: deps.Sessions,
		Limiter:  deps.AuthLimiter,
		Avatars:  deps.Avatars,
		Profiles: deps.ProfileCache,
	}
	users := UserHandler{Users: deps.Users, Friends: deps.Friends, FriendLists: deps.FriendLists}
	friends := FriendHandler{Friends: deps.Friends, Profiles: deps.Profiles}
	posts := PostHandler{Posts: deps.Posts, Profiles: deps.Profiles}
	messages := MessageHandler{
		Messages: deps.Messages,
		Friends:  deps.Friends,
		Profiles: deps.Profiles,
		Limiter:  deps.MessageLimiter,
	}

	authed := middleware.RequireAuth(deps.Verifier)
	maybeAuthed := middleware.OptionalAuth(deps.Verifier)

	mux.HandleFunc("/healthz", health.Handle)

	mux.HandleFunc("POST /api/v1/auth/register", auth.Register)
	mux.HandleFunc("POST /api/v1/auth/login", auth.Login)
	mux.HandleFunc("POST /api/v1/auth/refresh", auth.Refresh)
	mux.Handle("POST /api/v1/auth/logout", authed(http.HandlerFunc(auth.Logout)))
	mux.Handle("GET /api/v1/auth/me", authed(http.HandlerFunc(auth.Me)))
	mux.Handle("PUT /api/v1/auth/me", authed(http.HandlerFunc(auth.UpdateMe)))

	mux.Handle("GET /api/v1/users/{id}", maybeAuthed(http.HandlerFunc(users.Get)))
	mux.Handle("GET /api/v1/users/{id}/friends", maybeAuthed(http.HandlerFunc(users.ListFriends)))
	mux.Handle("POST /api/v1/users/search", authed(http.HandlerFunc(users.Search)))

	mux.Handle("POST /api/v1/friends/send", authed(http.HandlerFunc(friends.Send)))
	mux.Handle("GET /api/v1/friends/pending", authed(http.HandlerFunc(friends.Pending)))
	mux.Handle("GET /api/v1/friends/sent", authed(http.HandlerFunc(friends.Sent)))
	mux.Handle("POST /api/v1/friends/{id}/accept", authed(http.HandlerFunc(friends.Accept)))
	mux.Handle("POST /api/v1/friends/{id}/reject", authed(http.HandlerFunc(friends.Reject)))
	mux.Handle("DELETE /api/v1/friends/{id}", authed(http.HandlerFunc(friends.Cancel)))

	mux.HandleFunc("GET /api/v1/posts", posts.List)
	mux.Handle("GET /api/v1/posts/mine", authed(http.HandlerFunc(posts.Mine)))
	mux.Handle("POST /api/v1/posts", authed(http.HandlerFunc(posts.Create)))
	mux.Handle("GET /api/v1/posts/{id}", maybeAuthed(http.HandlerFunc(posts.Get)))
	mux.Handle("PUT /api/v1/posts/{id}", authed(http.HandlerFunc(posts.Update)))
	mux.Handle("DELETE /api/v1/posts/{id}", authed(http.HandlerFunc(posts.Delete)))
	mux.Handle("POST /api/v1/posts/{id}/like", authed(http.HandlerFunc(posts.Like)))
	mux.Handle("POST /api/v1/posts/{id}/unlike", authed(http.HandlerFunc(posts.Unlike)))
	mux.HandleFunc("GET /api/v1/posts/{id}/comments", posts.Comments)
	mux.Handle("POST /api/v1/posts/{id}/comments", authed(http.HandlerFunc(posts.AddComment)))

	mux.Handle("POST /api/v1/messages/send", authed(http.HandlerFunc(messages.Send)))
	mux.Handle("GET /api/v1/messages/with/{userId}", authed(http.HandlerFunc(messages.With)))
	mux.Handle("GET /api/v1/messages/conversations", authed(http.HandlerFunc(messages.Conversations)))
	mux.Handle("GET /api/v1/messages/unread", authed(http.HandlerFunc(messages.Unread)))
}
