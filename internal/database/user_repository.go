package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/lessonhub/pkg/models"
)

const userColumns = `telegram_id, username, first_name, last_name, language_code, premium_access, subscribed,
	subscription_started_at, subscription_verified_at, subscription_expires_at, created_at, last_active`

// UserRepository handles database operations for users
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new repository instance
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByTelegramID returns a user by Telegram id or apperr.ErrNotFound
func (r *UserRepository) FindByTelegramID(ctx context.Context, telegramID int64) (models.User, error) {
	var user models.User
	query := r.db.Rebind("SELECT " + userColumns + " FROM users WHERE telegram_id = ?")
	if err := r.db.GetContext(ctx, &user, query, telegramID); err != nil {
		return models.User{}, notFound(err, "user %d", telegramID)
	}
	return user, nil
}

// Upsert stores the given snapshot and returns the stored row
func (r *UserRepository) Upsert(ctx context.Context, user models.User) (models.User, error) {
	user.CreatedAt = utc(user.CreatedAt)
	user.LastActive = utc(user.LastActive)
	user.SubscriptionStartedAt = utcPtr(user.SubscriptionStartedAt)
	user.SubscriptionVerifiedAt = utcPtr(user.SubscriptionVerifiedAt)
	user.SubscriptionExpiresAt = utcPtr(user.SubscriptionExpiresAt)
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	if user.LastActive.IsZero() {
		user.LastActive = user.CreatedAt
	}

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (:telegram_id, :username, :first_name, :last_name, :language_code, :premium_access, :subscribed,
			:subscription_started_at, :subscription_verified_at, :subscription_expires_at, :created_at, :last_active)
		ON CONFLICT (telegram_id) DO UPDATE SET
			username = excluded.username,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			language_code = excluded.language_code,
			premium_access = excluded.premium_access,
			subscribed = excluded.subscribed,
			subscription_started_at = excluded.subscription_started_at,
			subscription_verified_at = excluded.subscription_verified_at,
			subscription_expires_at = excluded.subscription_expires_at,
			last_active = excluded.last_active`, user)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to upsert user %d: %w", user.ID, err)
	}
	return r.FindByTelegramID(ctx, user.ID)
}

// ListAll returns all users, oldest first
func (r *UserRepository) ListAll(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	if err := r.db.SelectContext(ctx, &users, "SELECT "+userColumns+" FROM users ORDER BY created_at, telegram_id"); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// ListActiveBetween returns users whose last activity falls in [from, to)
func (r *UserRepository) ListActiveBetween(ctx context.Context, from, to time.Time) ([]models.User, error) {
	users := []models.User{}
	query := r.db.Rebind("SELECT " + userColumns + " FROM users WHERE last_active >= ? AND last_active < ? ORDER BY telegram_id")
	if err := r.db.SelectContext(ctx, &users, query, utc(from), utc(to)); err != nil {
		return nil, fmt.Errorf("failed to list active users: %w", err)
	}
	return users, nil
}
