package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/lessonhub/pkg/models"
)

const progressColumns = `id, user_id, lesson_path, time_spent, scroll_progress, reading_speed, completion_score,
	engagement_level, visits, last_visited, completed, completed_at, created_at, updated_at`

// UserProgressRepository handles database operations for reading progress
type UserProgressRepository struct {
	db *sqlx.DB
}

// NewUserProgressRepository creates a new repository instance
func NewUserProgressRepository(db *sqlx.DB) *UserProgressRepository {
	return &UserProgressRepository{db: db}
}

// FindByUser returns every progress row of the user, most recent visit first
func (r *UserProgressRepository) FindByUser(ctx context.Context, userID int64) ([]models.UserProgress, error) {
	rows := []models.UserProgress{}
	query := r.db.Rebind("SELECT " + progressColumns + " FROM user_progress WHERE user_id = ? ORDER BY last_visited DESC, id")
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get progress of user %d: %w", userID, err)
	}
	return rows, nil
}

// FindByUserAndLesson returns one row or apperr.ErrNotFound
func (r *UserProgressRepository) FindByUserAndLesson(ctx context.Context, userID int64, lessonPath string) (models.UserProgress, error) {
	var progress models.UserProgress
	query := r.db.Rebind("SELECT " + progressColumns + " FROM user_progress WHERE user_id = ? AND lesson_path = ?")
	if err := r.db.GetContext(ctx, &progress, query, userID, lessonPath); err != nil {
		return models.UserProgress{}, notFound(err, "progress of user %d for %q", userID, lessonPath)
	}
	return progress, nil
}

// Upsert stores the snapshot keyed by (user_id, lesson_path) and returns the stored row
func (r *UserProgressRepository) Upsert(ctx context.Context, progress models.UserProgress) (models.UserProgress, error) {
	progress.LastVisited = utc(progress.LastVisited)
	progress.CompletedAt = utcPtr(progress.CompletedAt)
	progress.CreatedAt = utc(progress.CreatedAt)
	progress.UpdatedAt = utc(progress.UpdatedAt)
	if progress.CreatedAt.IsZero() {
		progress.CreatedAt = progress.LastVisited
	}
	if progress.UpdatedAt.IsZero() {
		progress.UpdatedAt = progress.LastVisited
	}

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO user_progress (user_id, lesson_path, time_spent, scroll_progress, reading_speed, completion_score,
			engagement_level, visits, last_visited, completed, completed_at, created_at, updated_at)
		VALUES (:user_id, :lesson_path, :time_spent, :scroll_progress, :reading_speed, :completion_score,
			:engagement_level, :visits, :last_visited, :completed, :completed_at, :created_at, :updated_at)
		ON CONFLICT (user_id, lesson_path) DO UPDATE SET
			time_spent = excluded.time_spent,
			scroll_progress = excluded.scroll_progress,
			reading_speed = excluded.reading_speed,
			completion_score = excluded.completion_score,
			engagement_level = excluded.engagement_level,
			visits = excluded.visits,
			last_visited = excluded.last_visited,
			completed = excluded.completed,
			completed_at = excluded.completed_at,
			updated_at = excluded.updated_at`, progress)
	if err != nil {
		return models.UserProgress{}, fmt.Errorf("failed to upsert progress of user %d for %q: %w", progress.UserID, progress.LessonPath, err)
	}
	return r.FindByUserAndLesson(ctx, progress.UserID, progress.LessonPath)
}
