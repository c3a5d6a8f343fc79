package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tradepulse/tradepulse-go/internal/models"
)

// ErrUserNotFound is returned when no telegram user matches the lookup.
var ErrUserNotFound = errors.New("telegram user not found")

// DatabasePool defines the pool operations the repositories need.
// This interface allows for both real pool and mock pool implementations.
type DatabasePool interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// UserRepository handles database operations for telegram bot users.
type UserRepository struct {
	pool DatabasePool
}

// NewUserRepository creates a new user repository.
func NewUserRepository(pool DatabasePool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, telegram_id, username, first_name, language_code, is_approved, is_admin, is_moderator, created_at, updated_at`

// Register inserts a new pending user or refreshes the profile fields of an
// existing one, returning the stored row either way.
func (r *UserRepository) Register(ctx context.Context, telegramID int64, username, firstName, languageCode string) (*models.TelegramUser, error) {
	query := fmt.Sprintf(`
		INSERT INTO telegram_users (telegram_id, username, first_name, language_code, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (telegram_id) DO UPDATE
		SET username = EXCLUDED.username,
		    first_name = EXCLUDED.first_name,
		    updated_at = EXCLUDED.updated_at
		RETURNING %s`, userColumns)

	row := r.pool.QueryRow(ctx, query, telegramID, username, firstName, languageCode, time.Now())
	return scanUser(row)
}

// GetByTelegramID fetches a user by their Telegram account ID.
func (r *UserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*models.TelegramUser, error) {
	query := fmt.Sprintf(`SELECT %s FROM telegram_users WHERE telegram_id = $1`, userColumns)
	user, err := scanUser(r.pool.QueryRow(ctx, query, telegramID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return user, err
}

// SetLanguage updates the user's display language.
func (r *UserRepository) SetLanguage(ctx context.Context, telegramID int64, languageCode string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE telegram_users SET language_code = $1, updated_at = $2 WHERE telegram_id = $3`,
		languageCode, time.Now(), telegramID)
	if err != nil {
		return fmt.Errorf("failed to update language: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetApproval flips the approval flag: approving grants signal access,
// rejecting revokes it.
func (r *UserRepository) SetApproval(ctx context.Context, telegramID int64, approved bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE telegram_users SET is_approved = $1, updated_at = $2 WHERE telegram_id = $3`,
		approved, time.Now(), telegramID)
	if err != nil {
		return fmt.Errorf("failed to update approval: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetAdmin grants or revokes the admin flag.
func (r *UserRepository) SetAdmin(ctx context.Context, telegramID int64, admin bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE telegram_users SET is_admin = $1, updated_at = $2 WHERE telegram_id = $3`,
		admin, time.Now(), telegramID)
	if err != nil {
		return fmt.Errorf("failed to update admin flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ListPending returns users still waiting for approval, oldest first.
func (r *UserRepository) ListPending(ctx context.Context, limit int) ([]models.TelegramUser, error) {
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(
		`SELECT %s FROM telegram_users WHERE is_approved = FALSE ORDER BY created_at ASC LIMIT $1`,
		userColumns)

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending users: %w", err)
	}
	defer rows.Close()

	return collectUsers(rows)
}

// ListApproved returns every approved user, for broadcast delivery.
func (r *UserRepository) ListApproved(ctx context.Context) ([]models.TelegramUser, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM telegram_users WHERE is_approved = TRUE ORDER BY created_at ASC`,
		userColumns)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list approved users: %w", err)
	}
	defer rows.Close()

	return collectUsers(rows)
}

func scanUser(row pgx.Row) (*models.TelegramUser, error) {
	var u models.TelegramUser
	err := row.Scan(&u.ID, &u.TelegramID, &u.Username, &u.FirstName, &u.LanguageCode,
		&u.IsApproved, &u.IsAdmin, &u.IsModerator, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func collectUsers(rows pgx.Rows) ([]models.TelegramUser, error) {
	var users []models.TelegramUser
	for rows.Next() {
		var u models.TelegramUser
		if err := rows.Scan(&u.ID, &u.TelegramID, &u.Username, &u.FirstName, &u.LanguageCode,
			&u.IsApproved, &u.IsAdmin, &u.IsModerator, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
