package repositories

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/blogit/backend/internal/db"
	"github.com/blogit/backend/internal/models"
)

// PostgresMessageRepository provides PostgreSQL-backed persistence for
// direct messages.
type PostgresMessageRepository struct {
	pool db.Pool
}

// NewPostgresMessageRepository constructs a message repository backed by
// PostgreSQL.
func NewPostgresMessageRepository(pool db.Pool) *PostgresMessageRepository {
	return &PostgresMessageRepository{pool: pool}
}

// Create stores a new message.
func (r *PostgresMessageRepository) Create(ctx context.Context, message models.Message) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO messages (id, sender_id, recipient_id, content, is_read, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, message.ID, message.Sender, message.Recipient, message.Content, message.IsRead, message.CreatedAt)
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
		return fmt.Errorf("insert message: %w", err)
	}

	return nil
}

// Conversation returns the messages exchanged between two users, newest
// first, paginated.
func (r *PostgresMessageRepository) Conversation(ctx context.Context, userID, otherID string, page, limit int) ([]models.Message, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, sender_id, recipient_id, content, is_read, created_at
        FROM messages
        WHERE (sender_id = $1 AND recipient_id = $2)
           OR (sender_id = $2 AND recipient_id = $1)
        ORDER BY created_at DESC
        LIMIT $3 OFFSET $4
    `, userID, otherID, limit, pageOffset(page, limit))
	if err != nil {
		return nil, fmt.Errorf("query conversation: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var message models.Message
		if err := rows.Scan(&message.ID, &message.Sender, &message.Recipient, &message.Content,
			&message.IsRead, &message.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversation: %w", err)
	}

	return messages, nil
}

// MarkRead marks every unread message from a sender to a recipient as read.
func (r *PostgresMessageRepository) MarkRead(ctx context.Context, senderID, recipientID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        UPDATE messages
        SET is_read = TRUE
        WHERE sender_id = $1 AND recipient_id = $2 AND NOT is_read
    `, senderID, recipientID)
	if err != nil {
		return fmt.Errorf("mark messages read: %w", err)
	}

	return nil
}

// Conversations returns the latest message for each correspondent of a
// user, most recent conversation first.
func (r *PostgresMessageRepository) Conversations(ctx context.Context, userID string, limit int) ([]models.ConversationSummary, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT DISTINCT ON (other_id) other_id, content, sender_id, is_read, created_at
        FROM (
            SELECT CASE WHEN sender_id = $1 THEN recipient_id ELSE sender_id END AS other_id,
                   content, sender_id, is_read, created_at
            FROM messages
            WHERE sender_id = $1 OR recipient_id = $1
        ) exchanged
        ORDER BY other_id, created_at DESC
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	var summaries []models.ConversationSummary
	for rows.Next() {
		var summary models.ConversationSummary
		if err := rows.Scan(&summary.UserID, &summary.LastMessage, &summary.LastSender,
			&summary.IsRead, &summary.LastMessageTime); err != nil {
			return nil, fmt.Errorf("scan conversation summary: %w", err)
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].LastMessageTime.After(summaries[j].LastMessageTime)
	})
	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}

	return summaries, nil
}

// UnreadCount returns how many unread messages a user has.
func (r *PostgresMessageRepository) UnreadCount(ctx context.Context, userID string) (int, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var count int
	err = conn.QueryRow(ctx, `
        SELECT COUNT(*)
        FROM messages
        WHERE recipient_id = $1 AND NOT is_read
    `, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread messages: %w", err)
	}

	return count, nil
}

var _ MessageRepository = (*PostgresMessageRepository)(nil)
