package social

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/blogit/backend/internal/models"
	"github.com/blogit/backend/internal/repositories"
)

// memoryGraph implements RequestStore, FriendshipStore and UserDirectory
// with the same pair-uniqueness and pending-only transition guarantees
// the PostgreSQL repositories provide.
type memoryGraph struct {
	mu       sync.Mutex
	users    map[string]bool
	requests map[string]models.FriendRequest
	friends  map[string]map[string]bool
}

func newMemoryGraph(userIDs ...string) *memoryGraph {
	g := &memoryGraph{
		users:    make(map[string]bool),
		requests: make(map[string]models.FriendRequest),
		friends:  make(map[string]map[string]bool),
	}
	for _, id := range userIDs {
		g.users[id] = true
	}
	return g
}

func (g *memoryGraph) Exists(_ context.Context, userID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.users[userID], nil
}

func (g *memoryGraph) Create(_ context.Context, request models.FriendRequest) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, existing := range g.requests {
		if samePair(existing, request.Sender, request.Recipient) {
			return repositories.ErrConflict
		}
	}
	g.requests[request.ID] = request
	return nil
}

func (g *memoryGraph) FindByID(_ context.Context, id string) (models.FriendRequest, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	request, ok := g.requests[id]
	if !ok {
		return models.FriendRequest{}, repositories.ErrNotFound
	}
	return request, nil
}

func (g *memoryGraph) FindByPair(_ context.Context, userID, otherID string) (models.FriendRequest, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, request := range g.requests {
		if samePair(request, userID, otherID) {
			return request, nil
		}
	}
	return models.FriendRequest{}, repositories.ErrNotFound
}

func (g *memoryGraph) Accept(_ context.Context, requestID string, respondedAt time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	request, ok := g.requests[requestID]
	if !ok || request.Status != models.FriendStatusPending {
		return repositories.ErrNotFound
	}
	request.Status = models.FriendStatusAccepted
	request.RespondedAt = &respondedAt
	g.requests[requestID] = request
	g.addFriendLocked(request.Sender, request.Recipient)
	g.addFriendLocked(request.Recipient, request.Sender)
	return nil
}

func (g *memoryGraph) DeletePending(_ context.Context, requestID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	request, ok := g.requests[requestID]
	if !ok || request.Status != models.FriendStatusPending {
		return repositories.ErrNotFound
	}
	delete(g.requests, requestID)
	return nil
}

func (g *memoryGraph) ListPendingForRecipient(_ context.Context, userID string) ([]models.FriendRequest, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []models.FriendRequest
	for _, request := range g.requests {
		if request.Recipient == userID && request.Status == models.FriendStatusPending {
			out = append(out, request)
		}
	}
	return out, nil
}

func (g *memoryGraph) ListPendingFromSender(_ context.Context, userID string) ([]models.FriendRequest, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []models.FriendRequest
	for _, request := range g.requests {
		if request.Sender == userID && request.Status == models.FriendStatusPending {
			out = append(out, request)
		}
	}
	return out, nil
}

func (g *memoryGraph) AreFriends(_ context.Context, userID, otherID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.friends[userID][otherID], nil
}

func (g *memoryGraph) addFriendLocked(userID, otherID string) {
	if g.friends[userID] == nil {
		g.friends[userID] = make(map[string]bool)
	}
	g.friends[userID][otherID] = true
}

func (g *memoryGraph) friendCount(userID string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.friends[userID])
}

func samePair(request models.FriendRequest, userID, otherID string) bool {
	return (request.Sender == userID && request.Recipient == otherID) ||
		(request.Sender == otherID && request.Recipient == userID)
}

func newTestService(g *memoryGraph) *Service {
	var seq int
	return &Service{
		Requests:    g,
		Friendships: g,
		Users:       g,
		NowFunc:     func() time.Time { return time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC) },
		NewID: func() string {
			seq++
			return fmt.Sprintf("req-%d", seq)
		},
	}
}

func TestSendCreatesPendingRequest(t *testing.T) {
	ctx := context.Background()
	g := newMemoryGraph("alice", "bob")
	svc := newTestService(g)

	request, err := svc.Send(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if request.Status != models.FriendStatusPending {
		t.Fatalf("expected pending status, got %q", request.Status)
	}

	status, err := svc.Status(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status != StatusRequestSent {
		t.Fatalf("expected %q for sender, got %q", StatusRequestSent, status)
	}

	status, err = svc.Status(ctx, "bob", "alice")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status != StatusRequestReceived {
		t.Fatalf("expected %q for recipient, got %q", StatusRequestReceived, status)
	}
}

func TestSendGuards(t *testing.T) {
	ctx := context.Background()
	g := newMemoryGraph("alice", "bob")
	svc := newTestService(g)

	if _, err := svc.Send(ctx, "alice", "alice"); !errors.Is(err, ErrSelfTarget) {
		t.Fatalf("expected ErrSelfTarget, got %v", err)
	}

	if _, err := svc.Send(ctx, "alice", "ghost"); !errors.Is(err, repositories.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown recipient, got %v", err)
	}

	if _, err := svc.Send(ctx, "alice", "bob"); err != nil {
		t.Fatalf("first send: %v", err)
	}

	if _, err := svc.Send(ctx, "alice", "bob"); !errors.Is(err, repositories.ErrConflict) {
		t.Fatalf("expected conflict on repeat send, got %v", err)
	}

	// The invariant is direction-agnostic: the counter-request conflicts too.
	if _, err := svc.Send(ctx, "bob", "alice"); !errors.Is(err, repositories.ErrConflict) {
		t.Fatalf("expected conflict on reverse send, got %v", err)
	}
}

func TestAcceptEstablishesMutualFriendship(t *testing.T) {
	ctx := context.Background()
	g := newMemoryGraph("alice", "bob")
	svc := newTestService(g)

	request, err := svc.Send(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if err := svc.Accept(ctx, request.ID, "bob"); err != nil {
		t.Fatalf("accept: %v", err)
	}

	for _, pair := range [][2]string{{"alice", "bob"}, {"bob", "alice"}} {
		friends, err := g.AreFriends(ctx, pair[0], pair[1])
		if err != nil {
			t.Fatalf("are friends: %v", err)
		}
		if !friends {
			t.Fatalf("expected %s to list %s as friend", pair[0], pair[1])
		}
	}

	stored, err := g.FindByID(ctx, request.ID)
	if err != nil {
		t.Fatalf("find request: %v", err)
	}
	if stored.Status != models.FriendStatusAccepted {
		t.Fatalf("expected accepted status, got %q", stored.Status)
	}
	if stored.RespondedAt == nil {
		t.Fatal("expected respondedAt to be set")
	}

	status, err := svc.Status(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status != StatusFriends {
		t.Fatalf("expected %q, got %q", StatusFriends, status)
	}

	// Repeating the accept must fail: accepted is terminal.
	if err := svc.Accept(ctx, request.ID, "bob"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on second accept, got %v", err)
	}

	if g.friendCount("alice") != 1 || g.friendCount("bob") != 1 {
		t.Fatalf("expected exactly one friend each, got %d and %d", g.friendCount("alice"), g.friendCount("bob"))
	}
}

func TestAcceptGuards(t *testing.T) {
	ctx := context.Background()
	g := newMemoryGraph("alice", "bob", "carol")
	svc := newTestService(g)

	if err := svc.Accept(ctx, "missing", "bob"); !errors.Is(err, repositories.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	request, err := svc.Send(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	// Neither the sender nor a third party may accept.
	if err := svc.Accept(ctx, request.ID, "alice"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for sender, got %v", err)
	}
	if err := svc.Accept(ctx, request.ID, "carol"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for bystander, got %v", err)
	}
}

func TestConcurrentAcceptIsIdempotent(t *testing.T) {
	ctx := context.Background()
	g := newMemoryGraph("alice", "bob")
	svc := newTestService(g)

	request, err := svc.Send(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	const workers = 8
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- svc.Accept(ctx, request.ID, "bob")
		}()
	}
	wg.Wait()
	close(errs)

	var succeeded int
	for err := range errs {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, ErrInvalidState) {
			t.Fatalf("unexpected accept error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one accept to win, got %d", succeeded)
	}

	if g.friendCount("alice") != 1 || g.friendCount("bob") != 1 {
		t.Fatalf("expected each friends set to contain the counterpart exactly once")
	}
}

func TestRejectReleasesPair(t *testing.T) {
	ctx := context.Background()
	g := newMemoryGraph("alice", "bob")
	svc := newTestService(g)

	request, err := svc.Send(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if err := svc.Reject(ctx, request.ID, "alice"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for sender reject, got %v", err)
	}

	if err := svc.Reject(ctx, request.ID, "bob"); err != nil {
		t.Fatalf("reject: %v", err)
	}

	if _, err := g.FindByID(ctx, request.ID); !errors.Is(err, repositories.ErrNotFound) {
		t.Fatal("expected request record to be deleted")
	}

	if g.friendCount("alice") != 0 || g.friendCount("bob") != 0 {
		t.Fatal("reject must not touch friends sets")
	}

	status, err := svc.Status(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status != StatusNone {
		t.Fatalf("expected %q after reject, got %q", StatusNone, status)
	}

	// The invariant is released: a fresh send succeeds.
	if _, err := svc.Send(ctx, "alice", "bob"); err != nil {
		t.Fatalf("send after reject: %v", err)
	}
}

func TestCancelIsSenderOnly(t *testing.T) {
	ctx := context.Background()
	g := newMemoryGraph("alice", "bob")
	svc := newTestService(g)

	request, err := svc.Send(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if err := svc.Cancel(ctx, request.ID, "bob"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for recipient cancel, got %v", err)
	}

	if err := svc.Cancel(ctx, request.ID, "alice"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if _, err := g.FindByID(ctx, request.ID); !errors.Is(err, repositories.ErrNotFound) {
		t.Fatal("expected request record to be deleted")
	}

	if _, err := svc.Send(ctx, "bob", "alice"); err != nil {
		t.Fatalf("send after cancel: %v", err)
	}
}

func TestCancelAcceptedRequestFails(t *testing.T) {
	ctx := context.Background()
	g := newMemoryGraph("alice", "bob")
	svc := newTestService(g)

	request, err := svc.Send(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := svc.Accept(ctx, request.ID, "bob"); err != nil {
		t.Fatalf("accept: %v", err)
	}

	if err := svc.Cancel(ctx, request.ID, "alice"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState cancelling accepted request, got %v", err)
	}
}

func TestSendToExistingFriendConflicts(t *testing.T) {
	ctx := context.Background()
	g := newMemoryGraph("alice", "bob")
	svc := newTestService(g)

	request, err := svc.Send(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := svc.Accept(ctx, request.ID, "bob"); err != nil {
		t.Fatalf("accept: %v", err)
	}

	// The accepted record keeps the pair occupied: friends cannot
	// re-request each other.
	if _, err := svc.Send(ctx, "alice", "bob"); !errors.Is(err, repositories.ErrConflict) {
		t.Fatalf("expected conflict sending to existing friend, got %v", err)
	}
}

func TestStatusForStrangers(t *testing.T) {
	ctx := context.Background()
	g := newMemoryGraph("alice", "bob")
	svc := newTestService(g)

	status, err := svc.Status(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status != StatusNone {
		t.Fatalf("expected %q, got %q", StatusNone, status)
	}

	status, err = svc.Status(ctx, "alice", "alice")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status != StatusNone {
		t.Fatalf("expected %q for self, got %q", StatusNone, status)
	}
}

func TestEnsureFriendsGate(t *testing.T) {
	ctx := context.Background()
	g := newMemoryGraph("alice", "bob")
	svc := newTestService(g)

	if err := svc.EnsureFriends(ctx, "alice", "bob"); !errors.Is(err, ErrNotFriends) {
		t.Fatalf("expected ErrNotFriends, got %v", err)
	}

	request, err := svc.Send(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	// A pending request is not a friendship.
	if err := svc.EnsureFriends(ctx, "alice", "bob"); !errors.Is(err, ErrNotFriends) {
		t.Fatalf("expected ErrNotFriends while pending, got %v", err)
	}

	if err := svc.Accept(ctx, request.ID, "bob"); err != nil {
		t.Fatalf("accept: %v", err)
	}

	if err := svc.EnsureFriends(ctx, "alice", "bob"); err != nil {
		t.Fatalf("expected friends after accept, got %v", err)
	}
	if err := svc.EnsureFriends(ctx, "bob", "alice"); err != nil {
		t.Fatalf("expected symmetric friendship, got %v", err)
	}
}

func TestPendingAndSentListings(t *testing.T) {
	ctx := context.Background()
	g := newMemoryGraph("alice", "bob", "carol")
	svc := newTestService(g)

	if _, err := svc.Send(ctx, "alice", "bob"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := svc.Send(ctx, "carol", "bob"); err != nil {
		t.Fatalf("send: %v", err)
	}

	pending, err := svc.PendingFor(ctx, "bob")
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending requests for bob, got %d", len(pending))
	}

	sent, err := svc.SentBy(ctx, "alice")
	if err != nil {
		t.Fatalf("sent: %v", err)
	}
	if len(sent) != 1 || sent[0].Recipient != "bob" {
		t.Fatalf("unexpected sent listing: %+v", sent)
	}
}
