package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/blogit/backend/internal/models"
	"github.com/blogit/backend/internal/social"
)

type friendListerStub struct {
	friends []models.UserSummary
	err     error
}

func (s friendListerStub) ListFriends(_ context.Context, _ string) ([]models.UserSummary, error) {
	return s.friends, s.err
}

func TestUserHandlerGetAnonymous(t *testing.T) {
	store := &userStoreStub{byID: models.User{ID: "bob", Username: "bob", Password: "hash"}}
	handler := UserHandler{
		Users:       store,
		Friends:     &friendServiceStub{},
		FriendLists: friendListerStub{friends: []models.UserSummary{{ID: "carol", Username: "carol"}}},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/bob", nil)
	req.SetPathValue("id", "bob")
	rec := httptest.NewRecorder()

	handler.Get(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if _, ok := resp["friendStatus"]; ok {
		t.Fatal("anonymous viewers get no friend status")
	}
	if resp["friendsCount"] != float64(1) {
		t.Fatalf("expected friendsCount 1, got %v", resp["friendsCount"])
	}
	user, _ := resp["user"].(map[string]any)
	if _, ok := user["email"]; ok {
		t.Fatal("public profile must not expose the email")
	}
	if _, ok := user["password"]; ok {
		t.Fatal("public profile must not expose the password hash")
	}
}

func TestUserHandlerGetWithViewer(t *testing.T) {
	handler := UserHandler{
		Users:       &userStoreStub{byID: models.User{ID: "bob", Username: "bob"}},
		Friends:     &friendServiceStub{status: social.StatusRequestSent},
		FriendLists: friendListerStub{},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/bob", nil)
	req.SetPathValue("id", "bob")
	rec := httptest.NewRecorder()

	handler.Get(rec, authedRequest(req, "alice"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["friendStatus"] != social.StatusRequestSent {
		t.Fatalf("expected friendStatus %q, got %v", social.StatusRequestSent, resp["friendStatus"])
	}
}

func TestUserHandlerListFriends(t *testing.T) {
	handler := UserHandler{
		Users:       &userStoreStub{byID: models.User{ID: "bob", Username: "bob"}},
		Friends:     &friendServiceStub{},
		FriendLists: friendListerStub{friends: []models.UserSummary{{ID: "carol", Username: "carol"}}},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/bob/friends", nil)
	req.SetPathValue("id", "bob")
	rec := httptest.NewRecorder()

	handler.ListFriends(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}

	var resp struct {
		Friends []models.UserSummary `json:"friends"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Friends) != 1 || resp.Friends[0].Username != "carol" {
		t.Fatalf("unexpected friends: %+v", resp.Friends)
	}
}

func TestUserHandlerSearch(t *testing.T) {
	store := &userStoreStub{results: []models.UserSummary{{ID: "u1", Username: "alice"}}}
	handler := UserHandler{Users: store, Friends: &friendServiceStub{}, FriendLists: friendListerStub{}}

	body := bytes.NewBufferString(`{"query":"ali"}`)
	req := authedRequest(httptest.NewRequest(http.MethodPost, "/api/v1/users/search", body), "bob")
	rec := httptest.NewRecorder()

	handler.Search(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if store.searchedFor != "ali" {
		t.Fatalf("expected search for %q, got %q", "ali", store.searchedFor)
	}

	var resp struct {
		Users []models.UserSummary `json:"users"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Users) != 1 || resp.Users[0].Username != "alice" {
		t.Fatalf("unexpected results: %+v", resp.Users)
	}
}

func TestUserHandlerSearchValidation(t *testing.T) {
	handler := UserHandler{Users: &userStoreStub{}, Friends: &friendServiceStub{}, FriendLists: friendListerStub{}}

	cases := []string{
		"{",
		`{"query":""}`,
		`{"query":"a"}`,
		`{"query":"<b>a</b>"}`,
	}

	for _, body := range cases {
		req := authedRequest(httptest.NewRequest(http.MethodPost, "/api/v1/users/search", bytes.NewBufferString(body)), "bob")
		rec := httptest.NewRecorder()

		handler.Search(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for body %q got %d", body, rec.Code)
		}
	}
}
