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

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, username, email, password_hash, bio, avatar_url, theme, location, website, profession, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
    `, user.ID, user.Username, user.Email, user.Password, user.Bio, user.AvatarURL, user.Theme,
		user.Location, user.Website, user.Profession, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByID fetches a user by their identifier.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	return r.findOne(ctx, `WHERE id = $1`, id)
}

// FindByEmail fetches a user by their email address.
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return r.findOne(ctx, `WHERE email = $1`, email)
}

func (r *PostgresUserRepository) findOne(ctx context.Context, where string, arg any) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, username, email, password_hash, bio, avatar_url, theme, location, website, profession, created_at, updated_at
        FROM users
    `+where, arg)

	var user models.User
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.Password, &user.Bio, &user.AvatarURL,
		&user.Theme, &user.Location, &user.Website, &user.Profession, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user: %w", err)
	}

	return user, nil
}

// UpdateProfile modifies an existing user's profile fields. The friends
// relation lives in its own table and is never writable through here.
func (r *PostgresUserRepository) UpdateProfile(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET bio = $2, avatar_url = $3, theme = $4, location = $5, website = $6, profession = $7, updated_at = $8
        WHERE id = $1
    `, user.ID, user.Bio, user.AvatarURL, user.Theme, user.Location, user.Website, user.Profession, user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update user profile: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Search returns users whose username or email contains the query,
// case-insensitively.
func (r *PostgresUserRepository) Search(ctx context.Context, query string, limit int) ([]models.UserSummary, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, username, avatar_url, bio
        FROM users
        WHERE username ILIKE '%' || $1 || '%' OR email ILIKE '%' || $1 || '%'
        ORDER BY username
        LIMIT $2
    `, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	defer rows.Close()

	var results []models.UserSummary
	for rows.Next() {
		var summary models.UserSummary
		if err := rows.Scan(&summary.ID, &summary.Username, &summary.AvatarURL, &summary.Bio); err != nil {
			return nil, fmt.Errorf("scan user summary: %w", err)
		}
		results = append(results, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user search: %w", err)
	}

	return results, nil
}

// Profile returns the public display fields for a user.
func (r *PostgresUserRepository) Profile(ctx context.Context, userID string) (models.UserSummary, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.UserSummary{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, username, avatar_url, bio
        FROM users
        WHERE id = $1
    `, userID)

	var summary models.UserSummary
	if err := row.Scan(&summary.ID, &summary.Username, &summary.AvatarURL, &summary.Bio); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.UserSummary{}, ErrNotFound
		}
		return models.UserSummary{}, fmt.Errorf("select user profile: %w", err)
	}

	return summary, nil
}

// Exists reports whether a user with the given id exists.
func (r *PostgresUserRepository) Exists(ctx context.Context, userID string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var exists bool
	if err := conn.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check user existence: %w", err)
	}

	return exists, nil
}

var _ UserRepository = (*PostgresUserRepository)(nil)
