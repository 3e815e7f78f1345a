package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/blogit/backend/internal/models"
	"github.com/blogit/backend/internal/social"
)

type messageStoreStub struct {
	created       models.Message
	thread        []models.Message
	summaries     []models.ConversationSummary
	unread        int
	markedSender  string
	markedForUser string
	createErr     error
	threadErr     error
}

func (s *messageStoreStub) Create(_ context.Context, message models.Message) error {
	s.created = message
	return s.createErr
}

func (s *messageStoreStub) Conversation(_ context.Context, _, _ string, _, _ int) ([]models.Message, error) {
	return s.thread, s.threadErr
}

func (s *messageStoreStub) MarkRead(_ context.Context, senderID, recipientID string) error {
	s.markedSender, s.markedForUser = senderID, recipientID
	return nil
}

func (s *messageStoreStub) Conversations(_ context.Context, _ string, _ int) ([]models.ConversationSummary, error) {
	return s.summaries, nil
}

func (s *messageStoreStub) UnreadCount(_ context.Context, _ string) (int, error) {
	return s.unread, nil
}

func TestMessageHandlerSendRequiresFriendship(t *testing.T) {
	handler := MessageHandler{
		Messages: &messageStoreStub{},
		Friends:  &friendServiceStub{friendsErr: social.ErrNotFriends},
		Profiles: profileSourceStub{},
	}

	body := bytes.NewBufferString(`{"recipientId":"bob","content":"hey"}`)
	req := authedRequest(httptest.NewRequest(http.MethodPost, "/api/v1/messages/send", body), "alice")
	rec := httptest.NewRecorder()

	handler.Send(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rec.Code)
	}
}

func TestMessageHandlerSendSuccess(t *testing.T) {
	store := &messageStoreStub{}
	handler := MessageHandler{
		Messages: store,
		Friends:  &friendServiceStub{},
		Profiles: profileSourceStub{},
		NowFunc: func() time.Time {
			return time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
		},
	}

	body := bytes.NewBufferString(`{"recipientId":"bob","content":"hello <b>friend</b>"}`)
	req := authedRequest(httptest.NewRequest(http.MethodPost, "/api/v1/messages/send", body), "alice")
	rec := httptest.NewRecorder()

	handler.Send(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	if store.created.Sender != "alice" || store.created.Recipient != "bob" {
		t.Fatalf("unexpected message: %+v", store.created)
	}
	if store.created.Content != "hello friend" {
		t.Fatalf("expected sanitized content, got %q", store.created.Content)
	}
	if store.created.IsRead {
		t.Fatal("new messages start unread")
	}
}

func TestMessageHandlerSendValidation(t *testing.T) {
	handler := MessageHandler{Messages: &messageStoreStub{}, Friends: &friendServiceStub{}, Profiles: profileSourceStub{}}

	cases := []string{
		"{",
		`{"recipientId":"","content":"hi"}`,
		`{"recipientId":"bob","content":""}`,
		`{"recipientId":"bob","content":"<script>x</script>"}`,
	}

	for _, body := range cases {
		req := authedRequest(httptest.NewRequest(http.MethodPost, "/api/v1/messages/send", bytes.NewBufferString(body)), "alice")
		rec := httptest.NewRecorder()

		handler.Send(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for body %q got %d", body, rec.Code)
		}
	}
}

func TestMessageHandlerSendCountsRunes(t *testing.T) {
	store := &messageStoreStub{}
	handler := MessageHandler{Messages: store, Friends: &friendServiceStub{}, Profiles: profileSourceStub{}}

	send := func(content string) int {
		body, err := json.Marshal(sendMessageRequest{RecipientID: "bob", Content: content})
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		req := authedRequest(httptest.NewRequest(http.MethodPost, "/api/v1/messages/send", bytes.NewReader(body)), "alice")
		rec := httptest.NewRecorder()
		handler.Send(rec, req)
		return rec.Code
	}

	atLimit := strings.Repeat("ő", maxMessageLength)
	if code := send(atLimit); code != http.StatusCreated {
		t.Fatalf("expected 201 for a message at the character limit, got %d", code)
	}
	if code := send(atLimit + "ő"); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a message over the character limit, got %d", code)
	}
}

func TestMessageHandlerSendRateLimited(t *testing.T) {
	handler := MessageHandler{
		Messages: &messageStoreStub{},
		Friends:  &friendServiceStub{},
		Limiter:  denyAllLimiter{},
	}

	body := bytes.NewBufferString(`{"recipientId":"bob","content":"hi"}`)
	req := authedRequest(httptest.NewRequest(http.MethodPost, "/api/v1/messages/send", body), "alice")
	rec := httptest.NewRecorder()

	handler.Send(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", rec.Code)
	}
}

func TestMessageHandlerWithReordersAndMarksRead(t *testing.T) {
	base := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
	store := &messageStoreStub{thread: []models.Message{
		{ID: "m3", Sender: "bob", Recipient: "alice", Content: "newest", CreatedAt: base.Add(2 * time.Minute)},
		{ID: "m2", Sender: "alice", Recipient: "bob", Content: "middle", CreatedAt: base.Add(time.Minute)},
		{ID: "m1", Sender: "bob", Recipient: "alice", Content: "oldest", CreatedAt: base},
	}}
	handler := MessageHandler{Messages: store, Friends: &friendServiceStub{}, Profiles: profileSourceStub{}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/messages/with/bob", nil)
	req.SetPathValue("userId", "bob")
	rec := httptest.NewRecorder()

	handler.With(rec, authedRequest(req, "alice"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if store.markedSender != "bob" || store.markedForUser != "alice" {
		t.Fatalf("expected bob's messages marked read for alice, got %q %q", store.markedSender, store.markedForUser)
	}

	var resp struct {
		Messages []messageViewData `json:"messages"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Messages) != 3 {
		t.Fatalf("expected 3 messages got %d", len(resp.Messages))
	}
	if resp.Messages[0].ID != "m1" || resp.Messages[2].ID != "m3" {
		t.Fatalf("expected oldest-first page, got %+v", resp.Messages)
	}
}

func TestMessageHandlerWithRequiresFriendship(t *testing.T) {
	handler := MessageHandler{
		Messages: &messageStoreStub{},
		Friends:  &friendServiceStub{friendsErr: social.ErrNotFriends},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/messages/with/bob", nil)
	req.SetPathValue("userId", "bob")
	rec := httptest.NewRecorder()

	handler.With(rec, authedRequest(req, "alice"))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rec.Code)
	}
}

func TestMessageHandlerConversations(t *testing.T) {
	base := time.Date(2024, time.May, 2, 8, 0, 0, 0, time.UTC)
	store := &messageStoreStub{summaries: []models.ConversationSummary{
		{UserID: "carol", LastMessage: "hi", LastMessageTime: base.Add(time.Hour), LastSender: "carol", IsRead: false},
		{UserID: "bob", LastMessage: "bye", LastMessageTime: base, LastSender: "alice", IsRead: false},
	}}
	handler := MessageHandler{Messages: store, Friends: &friendServiceStub{}, Profiles: profileSourceStub{}}

	req := authedRequest(httptest.NewRequest(http.MethodGet, "/api/v1/messages/conversations", nil), "alice")
	rec := httptest.NewRecorder()

	handler.Conversations(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}

	var resp struct {
		Conversations []conversationView `json:"conversations"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Conversations) != 2 {
		t.Fatalf("expected 2 conversations got %d", len(resp.Conversations))
	}
	if resp.Conversations[0].IsRead {
		t.Fatal("incoming unread conversation must report unread")
	}
	// The caller's own last message never counts as unread.
	if !resp.Conversations[1].IsRead {
		t.Fatal("conversation ending with own message must report read")
	}
	if resp.Conversations[0].User == nil {
		t.Fatal("expected counterpart summary attached")
	}
}

func TestMessageHandlerUnread(t *testing.T) {
	handler := MessageHandler{Messages: &messageStoreStub{unread: 4}, Friends: &friendServiceStub{}}

	req := authedRequest(httptest.NewRequest(http.MethodGet, "/api/v1/messages/unread", nil), "alice")
	rec := httptest.NewRecorder()

	handler.Unread(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}

	var resp map[string]int
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["unread"] != 4 {
		t.Fatalf("expected 4 unread, got %d", resp["unread"])
	}
}
