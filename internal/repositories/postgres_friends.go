package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/blogit/backend/internal/db"
	"github.com/blogit/backend/internal/models"
)

// PostgresFriendRepository provides PostgreSQL-backed persistence for
// friend requests and the friendships relation. The pair invariant is
// enforced by a unique index on the unordered sender/recipient pair, so
// racing sends serialize at the database rather than in this process.
type PostgresFriendRepository struct {
	pool db.Pool
}

// NewPostgresFriendRepository constructs a friend repository backed by PostgreSQL.
func NewPostgresFriendRepository(pool db.Pool) *PostgresFriendRepository {
	return &PostgresFriendRepository{pool: pool}
}

// Create persists a new friend request.
func (r *PostgresFriendRepository) Create(ctx context.Context, request models.FriendRequest) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO friend_requests (id, sender_id, recipient_id, status, created_at, responded_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, request.ID, request.Sender, request.Recipient, request.Status, request.CreatedAt, request.RespondedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrConflict
			case "23503":
				return ErrNotFound
			}
		}
		return fmt.Errorf("insert friend request: %w", err)
	}

	return nil
}

// FindByID fetches a friend request by its identifier.
func (r *PostgresFriendRepository) FindByID(ctx context.Context, id string) (models.FriendRequest, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.FriendRequest{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, sender_id, recipient_id, status, created_at, responded_at
        FROM friend_requests
        WHERE id = $1
    `, id)

	return scanFriendRequest(row)
}

// FindByPair returns the request record for the unordered user pair, in
// either direction, whatever its status.
func (r *PostgresFriendRepository) FindByPair(ctx context.Context, userID, otherID string) (models.FriendRequest, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.FriendRequest{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, sender_id, recipient_id, status, created_at, responded_at
        FROM friend_requests
        WHERE (sender_id = $1 AND recipient_id = $2) OR (sender_id = $2 AND recipient_id = $1)
    `, userID, otherID)

	return scanFriendRequest(row)
}

// Accept flips a pending request to accepted and inserts both friendship
// rows in a single transaction. The status guard on the update makes
// concurrent accepts of the same request serialize: the loser matches no
// row and gets ErrNotFound. The friendship inserts are idempotent.
func (r *PostgresFriendRepository) Accept(ctx context.Context, requestID string, respondedAt time.Time) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin accept transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var senderID, recipientID string
	err = tx.QueryRow(ctx, `
        UPDATE friend_requests
        SET status = $2, responded_at = $3
        WHERE id = $1 AND status = $4
        RETURNING sender_id, recipient_id
    `, requestID, models.FriendStatusAccepted, respondedAt.UTC(), models.FriendStatusPending).Scan(&senderID, &recipientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("accept friend request: %w", err)
	}

	for _, pair := range [][2]string{{senderID, recipientID}, {recipientID, senderID}} {
		if _, err := tx.Exec(ctx, `
            INSERT INTO friendships (user_id, friend_id, created_at)
            VALUES ($1, $2, $3)
            ON CONFLICT (user_id, friend_id) DO NOTHING
        `, pair[0], pair[1], respondedAt.UTC()); err != nil {
			return fmt.Errorf("insert friendship: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit accept transaction: %w", err)
	}

	return nil
}

// DeletePending removes a request that is still pending. Requests in any
// other status are left untouched and reported as ErrNotFound.
func (r *PostgresFriendRepository) DeletePending(ctx context.Context, requestID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM friend_requests
        WHERE id = $1 AND status = $2
    `, requestID, models.FriendStatusPending)
	if err != nil {
		return fmt.Errorf("delete friend request: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// ListPendingForRecipient returns pending requests addressed to the user, newest first.
func (r *PostgresFriendRepository) ListPendingForRecipient(ctx context.Context, userID string) ([]models.FriendRequest, error) {
	return r.listPending(ctx, `recipient_id`, userID)
}

// ListPendingFromSender returns pending requests sent by the user, newest first.
func (r *PostgresFriendRepository) ListPendingFromSender(ctx context.Context, userID string) ([]models.FriendRequest, error) {
	return r.listPending(ctx, `sender_id`, userID)
}

func (r *PostgresFriendRepository) listPending(ctx context.Context, column, userID string) ([]models.FriendRequest, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, sender_id, recipient_id, status, created_at, responded_at
        FROM friend_requests
        WHERE `+column+` = $1 AND status = $2
        ORDER BY created_at DESC
    `, userID, models.FriendStatusPending)
	if err != nil {
		return nil, fmt.Errorf("query friend requests: %w", err)
	}
	defer rows.Close()

	var requests []models.FriendRequest
	for rows.Next() {
		request, err := scanFriendRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate friend requests: %w", err)
	}

	return requests, nil
}

// AreFriends reports whether the friendships relation links the two users.
func (r *PostgresFriendRepository) AreFriends(ctx context.Context, userID, otherID string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var friends bool
	err = conn.QueryRow(ctx, `
        SELECT EXISTS(SELECT 1 FROM friendships WHERE user_id = $1 AND friend_id = $2)
    `, userID, otherID).Scan(&friends)
	if err != nil {
		return false, fmt.Errorf("check friendship: %w", err)
	}

	return friends, nil
}

// ListFriends returns display summaries for the user's friends, ordered by username.
func (r *PostgresFriendRepository) ListFriends(ctx context.Context, userID string) ([]models.UserSummary, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT u.id, u.username, u.avatar_url, u.bio
        FROM friendships f
        JOIN users u ON u.id = f.friend_id
        WHERE f.user_id = $1
        ORDER BY u.username
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("query friends: %w", err)
	}
	defer rows.Close()

	var friends []models.UserSummary
	for rows.Next() {
		var summary models.UserSummary
		if err := rows.Scan(&summary.ID, &summary.Username, &summary.AvatarURL, &summary.Bio); err != nil {
			return nil, fmt.Errorf("scan friend summary: %w", err)
		}
		friends = append(friends, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate friends: %w", err)
	}

	return friends, nil
}

func scanFriendRequest(row pgx.Row) (models.FriendRequest, error) {
	var (
		request     models.FriendRequest
		respondedAt *time.Time
	)

	if err := row.Scan(&request.ID, &request.Sender, &request.Recipient, &request.Status, &request.CreatedAt, &respondedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.FriendRequest{}, ErrNotFound
		}
		return models.FriendRequest{}, fmt.Errorf("scan friend request: %w", err)
	}

	if respondedAt != nil {
		t := respondedAt.UTC()
		request.RespondedAt = &t
	}

	return request, nil
}

var _ FriendRepository = (*PostgresFriendRepository)(nil)
