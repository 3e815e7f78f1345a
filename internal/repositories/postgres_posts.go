package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/blogit/backend/internal/db"
	"github.com/blogit/backend/internal/models"
)

// PostgresPostRepository provides PostgreSQL-backed persistence for posts,
// likes and comments.
type PostgresPostRepository struct {
	pool db.Pool
}

// NewPostgresPostRepository constructs a post repository backed by PostgreSQL.
func NewPostgresPostRepository(pool db.Pool) *PostgresPostRepository {
	return &PostgresPostRepository{pool: pool}
}

// Create stores a new post.
func (r *PostgresPostRepository) Create(ctx context.Context, post models.Post) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO posts (id, author_id, title, content, is_published, like_count, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `, post.ID, post.AuthorID, post.Title, post.Content, post.IsPublished, post.LikeCount, post.CreatedAt, post.UpdatedAt)
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
		return fmt.Errorf("insert post: %w", err)
	}

	return nil
}

// FindByID fetches a post by its identifier.
func (r *PostgresPostRepository) FindByID(ctx context.Context, id string) (models.Post, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Post{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, author_id, title, content, is_published, like_count, created_at, updated_at
        FROM posts
        WHERE id = $1
    `, id)

	var post models.Post
	if err := row.Scan(&post.ID, &post.AuthorID, &post.Title, &post.Content, &post.IsPublished,
		&post.LikeCount, &post.CreatedAt, &post.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Post{}, ErrNotFound
		}
		return models.Post{}, fmt.Errorf("select post: %w", err)
	}

	return post, nil
}

// ListPublished returns published posts in reverse chronological order
// along with the total number of published posts.
func (r *PostgresPostRepository) ListPublished(ctx context.Context, page, limit int) ([]models.Post, int, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, author_id, title, content, is_published, like_count, created_at, updated_at
        FROM posts
        WHERE is_published
        ORDER BY created_at DESC
        LIMIT $1 OFFSET $2
    `, limit, pageOffset(page, limit))
	if err != nil {
		return nil, 0, fmt.Errorf("query posts: %w", err)
	}

	posts, err := collectPosts(rows)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM posts WHERE is_published`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}

	return posts, total, nil
}

// ListByAuthor returns all of an author's posts, drafts included, newest
// first, along with the author's total post count.
func (r *PostgresPostRepository) ListByAuthor(ctx context.Context, authorID string, page, limit int) ([]models.Post, int, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, author_id, title, content, is_published, like_count, created_at, updated_at
        FROM posts
        WHERE author_id = $1
        ORDER BY created_at DESC
        LIMIT $2 OFFSET $3
    `, authorID, limit, pageOffset(page, limit))
	if err != nil {
		return nil, 0, fmt.Errorf("query posts: %w", err)
	}

	posts, err := collectPosts(rows)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM posts WHERE author_id = $1`, authorID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}

	return posts, total, nil
}

func pageOffset(page, limit int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * limit
}

func collectPosts(rows pgx.Rows) ([]models.Post, error) {
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		var post models.Post
		if err := rows.Scan(&post.ID, &post.AuthorID, &post.Title, &post.Content, &post.IsPublished,
			&post.LikeCount, &post.CreatedAt, &post.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}

	return posts, nil
}

// Update modifies a post owned by its author. Posts owned by anyone else
// match no row and report ErrNotFound.
func (r *PostgresPostRepository) Update(ctx context.Context, post models.Post) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE posts
        SET title = $3, content = $4, is_published = $5, updated_at = $6
        WHERE id = $1 AND author_id = $2
    `, post.ID, post.AuthorID, post.Title, post.Content, post.IsPublished, post.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes a post owned by the author.
func (r *PostgresPostRepository) Delete(ctx context.Context, id, authorID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM posts
        WHERE id = $1 AND author_id = $2
    `, id, authorID)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Like records a like idempotently and returns the fresh like count.
func (r *PostgresPostRepository) Like(ctx context.Context, postID, userID string) (int, error) {
	return r.updateLikes(ctx, postID, `
        INSERT INTO post_likes (post_id, user_id)
        VALUES ($1, $2)
        ON CONFLICT (post_id, user_id) DO NOTHING
    `, userID)
}

// Unlike removes a like if present and returns the fresh like count.
func (r *PostgresPostRepository) Unlike(ctx context.Context, postID, userID string) (int, error) {
	return r.updateLikes(ctx, postID, `
        DELETE FROM post_likes
        WHERE post_id = $1 AND user_id = $2
    `, userID)
}

func (r *PostgresPostRepository) updateLikes(ctx context.Context, postID, statement, userID string) (int, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin like transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, statement, postID, userID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("write like: %w", err)
	}

	var count int
	err = tx.QueryRow(ctx, `
        UPDATE posts
        SET like_count = (SELECT COUNT(*) FROM post_likes WHERE post_id = $1)
        WHERE id = $1
        RETURNING like_count
    `, postID).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("refresh like count: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit like transaction: %w", err)
	}

	return count, nil
}

// Comments returns a post's comments oldest first.
func (r *PostgresPostRepository) Comments(ctx context.Context, postID string) ([]models.Comment, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, post_id, author_id, content, created_at
        FROM post_comments
        WHERE post_id = $1
        ORDER BY created_at
    `, postID)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		var comment models.Comment
		if err := rows.Scan(&comment.ID, &comment.PostID, &comment.AuthorID, &comment.Content, &comment.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, comment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}

	return comments, nil
}

// AddComment stores a new comment on a post.
func (r *PostgresPostRepository) AddComment(ctx context.Context, comment models.Comment) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO post_comments (id, post_id, author_id, content, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `, comment.ID, comment.PostID, comment.AuthorID, comment.Content, comment.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrNotFound
		}
		return fmt.Errorf("insert comment: %w", err)
	}

	return nil
}

var _ PostRepository = (*PostgresPostRepository)(nil)
