// Package social implements the friend-request lifecycle and the
// friendship invariants the rest of the system relies on: at most one
// request record per unordered user pair, and symmetric friends sets
// maintained only by acceptance.
package social

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/blogit/backend/internal/logging"
	"github.com/blogit/backend/internal/models"
	"github.com/blogit/backend/internal/repositories"
)

// Relationship statuses reported by Status. Exactly one holds for any
// ordered pair of users at any time.
const (
	StatusNone            = "none"
	StatusFriends         = "friends"
	StatusRequestSent     = "request_sent"
	StatusRequestReceived = "request_received"
)

// RequestStore persists friend request records. FindByPair matches the
// unordered pair in either direction. Accept and DeletePending must only
// act on rows still in the pending status so concurrent transitions on
// the same request serialize at the storage layer; both return
// repositories.ErrNotFound when no pending row matched.
type RequestStore interface {
	Create(ctx context.Context, request models.FriendRequest) error
	FindByID(ctx context.Context, id string) (models.FriendRequest, error)
	FindByPair(ctx context.Context, userID, otherID string) (models.FriendRequest, error)
	Accept(ctx context.Context, requestID string, respondedAt time.Time) error
	DeletePending(ctx context.Context, requestID string) error
	ListPendingForRecipient(ctx context.Context, userID string) ([]models.FriendRequest, error)
	ListPendingFromSender(ctx context.Context, userID string) ([]models.FriendRequest, error)
}

// FriendshipStore reads the mutual friends relation. Writes happen only
// inside RequestStore.Accept.
type FriendshipStore interface {
	AreFriends(ctx context.Context, userID, otherID string) (bool, error)
}

// UserDirectory reports whether a user account exists.
type UserDirectory interface {
	Exists(ctx context.Context, userID string) (bool, error)
}

// Service coordinates friend request transitions. All mutating
// operations are effectively atomic with respect to the user pair: the
// pair uniqueness is backed by a storage constraint and status
// transitions are guarded updates.
type Service struct {
	Requests    RequestStore
	Friendships FriendshipStore
	Users       UserDirectory

	NowFunc func() time.Time
	NewID   func() string
}

// Send creates a pending request from sender to recipient. It fails with
// ErrSelfTarget for self-requests, repositories.ErrNotFound when the
// recipient does not exist, and repositories.ErrConflict when any record
// already exists for the pair in either direction, pending or accepted.
func (s *Service) Send(ctx context.Context, senderID, recipientID string) (models.FriendRequest, error) {
	ctx, span := logging.StartSpan(ctx, "social.send")
	defer span.End()

	if senderID == recipientID {
		return models.FriendRequest{}, ErrSelfTarget
	}

	exists, err := s.Users.Exists(ctx, recipientID)
	if err != nil {
		return models.FriendRequest{}, fmt.Errorf("look up recipient: %w", err)
	}
	if !exists {
		return models.FriendRequest{}, repositories.ErrNotFound
	}

	if _, err := s.Requests.FindByPair(ctx, senderID, recipientID); err == nil {
		return models.FriendRequest{}, repositories.ErrConflict
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return models.FriendRequest{}, fmt.Errorf("look up existing request: %w", err)
	}

	request := models.FriendRequest{
		ID:        s.newID(),
		Sender:    senderID,
		Recipient: recipientID,
		Status:    models.FriendStatusPending,
		CreatedAt: s.now(),
	}

	// The unique pair index catches a concurrent send racing past the
	// lookup above; the repository reports it as ErrConflict.
	if err := s.Requests.Create(ctx, request); err != nil {
		return models.FriendRequest{}, err
	}

	logging.FromContext(ctx).Info("friend request sent", "requestId", request.ID)
	return request, nil
}

// Accept transitions a pending request to accepted and records the
// mutual friendship for both users. Only the recipient may accept.
func (s *Service) Accept(ctx context.Context, requestID, actingUserID string) error {
	ctx, span := logging.StartSpan(ctx, "social.accept")
	defer span.End()

	request, err := s.Requests.FindByID(ctx, requestID)
	if err != nil {
		return err
	}

	if request.Recipient != actingUserID {
		return ErrForbidden
	}
	if request.Status != models.FriendStatusPending {
		return ErrInvalidState
	}

	if err := s.Requests.Accept(ctx, requestID, s.now()); err != nil {
		// A concurrent transition consumed the pending row first.
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrInvalidState
		}
		return err
	}

	logging.FromContext(ctx).Info("friend request accepted", "requestId", requestID)
	return nil
}

// Reject deletes a pending request. Only the recipient may reject.
// Friends sets are untouched.
func (s *Service) Reject(ctx context.Context, requestID, actingUserID string) error {
	request, err := s.Requests.FindByID(ctx, requestID)
	if err != nil {
		return err
	}

	if request.Recipient != actingUserID {
		return ErrForbidden
	}
	if request.Status != models.FriendStatusPending {
		return ErrInvalidState
	}

	if err := s.Requests.DeletePending(ctx, requestID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrInvalidState
		}
		return err
	}

	return nil
}

// Cancel deletes a pending request. Only the sender may cancel; the
// asymmetry with Reject is deliberate. Accepted requests cannot be
// cancelled: deleting the pair's record while both friends sets still
// reference each other would re-open Send for users who are already
// friends.
func (s *Service) Cancel(ctx context.Context, requestID, actingUserID string) error {
	request, err := s.Requests.FindByID(ctx, requestID)
	if err != nil {
		return err
	}

	if request.Sender != actingUserID {
		return ErrForbidden
	}
	if request.Status != models.FriendStatusPending {
		return ErrInvalidState
	}

	if err := s.Requests.DeletePending(ctx, requestID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrInvalidState
		}
		return err
	}

	return nil
}

// Status reports the relationship between viewer and subject as seen by
// the viewer: friends, request_sent, request_received or none.
func (s *Service) Status(ctx context.Context, viewerID, subjectID string) (string, error) {
	if viewerID == "" || viewerID == subjectID {
		return StatusNone, nil
	}

	friends, err := s.Friendships.AreFriends(ctx, viewerID, subjectID)
	if err != nil {
		return "", fmt.Errorf("check friendship: %w", err)
	}
	if friends {
		return StatusFriends, nil
	}

	request, err := s.Requests.FindByPair(ctx, viewerID, subjectID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return StatusNone, nil
		}
		return "", fmt.Errorf("look up request: %w", err)
	}

	if request.Status != models.FriendStatusPending {
		return StatusNone, nil
	}
	if request.Sender == viewerID {
		return StatusRequestSent, nil
	}
	return StatusRequestReceived, nil
}

// EnsureFriends returns ErrNotFriends unless the two users are mutual
// friends. The messaging endpoints gate on this.
func (s *Service) EnsureFriends(ctx context.Context, userID, otherID string) error {
	friends, err := s.Friendships.AreFriends(ctx, userID, otherID)
	if err != nil {
		return fmt.Errorf("check friendship: %w", err)
	}
	if !friends {
		return ErrNotFriends
	}
	return nil
}

// PendingFor lists pending requests addressed to the user, newest first.
func (s *Service) PendingFor(ctx context.Context, userID string) ([]models.FriendRequest, error) {
	return s.Requests.ListPendingForRecipient(ctx, userID)
}

// SentBy lists pending requests the user has sent, newest first.
func (s *Service) SentBy(ctx context.Context, userID string) ([]models.FriendRequest, error) {
	return s.Requests.ListPendingFromSender(ctx, userID)
}

func (s *Service) now() time.Time {
	if s.NowFunc != nil {
		return s.NowFunc()
	}
	return time.Now().UTC()
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}
