package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

var testSecret = []byte("test-signing-secret")

func TestManagerIssueAndVerify(t *testing.T) {
	store := NewInMemorySessionStore()
	manager := NewManager(testSecret, time.Minute, time.Hour, store)

	tokens, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatalf("expected non-empty tokens: %+v", tokens)
	}

	userID, err := manager.Verify(tokens.AccessToken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if userID != "user-1" {
		t.Fatalf("expected user-1, got %q", userID)
	}

	if !store.Has(tokens.RefreshToken) {
		t.Fatal("refresh token should have been stored")
	}
}

func TestManagerVerifyRejectsTampering(t *testing.T) {
	manager := NewManager(testSecret, time.Minute, time.Hour, NewInMemorySessionStore())

	tokens, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	other := NewManager([]byte("different-secret"), time.Minute, time.Hour, NewInMemorySessionStore())
	if _, err := other.Verify(tokens.AccessToken); !errors.Is(err, ErrInvalidAccessToken) {
		t.Fatalf("expected invalid token for wrong secret, got %v", err)
	}

	if _, err := manager.Verify("not-a-jwt"); !errors.Is(err, ErrInvalidAccessToken) {
		t.Fatalf("expected invalid token for garbage, got %v", err)
	}
}

func TestManagerVerifyRejectsExpired(t *testing.T) {
	manager := NewManager(testSecret, -time.Minute, time.Hour, NewInMemorySessionStore())

	tokens, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := manager.Verify(tokens.AccessToken); !errors.Is(err, ErrInvalidAccessToken) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}
}

func TestManagerIssueValidation(t *testing.T) {
	manager := NewManager(testSecret, time.Minute, time.Hour, NewInMemorySessionStore())
	if _, err := manager.Issue(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty user id")
	}
}

func TestManagerRefreshRotatesTokens(t *testing.T) {
	store := NewInMemorySessionStore()
	manager := NewManager(testSecret, time.Minute, time.Hour, store)

	tokens, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	refreshed, err := manager.Refresh(context.Background(), tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.RefreshToken == tokens.RefreshToken {
		t.Fatal("expected new refresh token")
	}
	if store.Has(tokens.RefreshToken) {
		t.Fatal("old token should have been removed")
	}
}

func TestManagerRefreshFailures(t *testing.T) {
	store := NewInMemorySessionStore()
	manager := NewManager(testSecret, time.Minute, time.Millisecond, store)

	if _, err := manager.Refresh(context.Background(), ""); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected session not found got %v", err)
	}

	tokens, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	time.Sleep(2 * time.Millisecond)

	if _, err := manager.Refresh(context.Background(), tokens.RefreshToken); !errors.Is(err, ErrRefreshTokenExpired) {
		t.Fatalf("expected refresh expired got %v", err)
	}

	manager = NewManager(testSecret, time.Minute, time.Hour, store)
	tokens, err = manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	manager.Revoke(context.Background(), tokens.RefreshToken)
	if _, err := manager.Refresh(context.Background(), tokens.RefreshToken); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected session not found after revoke got %v", err)
	}
}
