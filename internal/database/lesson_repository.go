package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/lessonhub/pkg/models"
)

const lessonColumns = `id, path, title, content, html_content, frontmatter, word_count, parent_folder,
	lesson_number, file_hash, created_at, updated_at`

// LessonRepository handles database operations for lessons
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository creates a new repository instance
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

// FindByPath returns a lesson by its path or apperr.ErrNotFound
func (r *LessonRepository) FindByPath(ctx context.Context, path string) (models.Lesson, error) {
	var lesson models.Lesson
	query := r.db.Rebind("SELECT " + lessonColumns + " FROM lessons WHERE path = ?")
	if err := r.db.GetContext(ctx, &lesson, query, path); err != nil {
		return models.Lesson{}, notFound(err, "lesson %q", path)
	}
	return lesson, nil
}

// ListAll returns every lesson ordered by path
func (r *LessonRepository) ListAll(ctx context.Context) ([]models.Lesson, error) {
	lessons := []models.Lesson{}
	if err := r.db.SelectContext(ctx, &lessons, "SELECT "+lessonColumns+" FROM lessons ORDER BY path"); err != nil {
		return nil, fmt.Errorf("failed to list lessons: %w", err)
	}
	return lessons, nil
}

// Upsert stores the lesson keyed by path and returns the stored row
func (r *LessonRepository) Upsert(ctx context.Context, lesson models.Lesson) (models.Lesson, error) {
	now := time.Now().UTC()
	lesson.CreatedAt = utc(lesson.CreatedAt)
	lesson.UpdatedAt = utc(lesson.UpdatedAt)
	if lesson.CreatedAt.IsZero() {
		lesson.CreatedAt = now
	}
	if lesson.UpdatedAt.IsZero() {
		lesson.UpdatedAt = now
	}
	if lesson.Frontmatter == nil {
		lesson.Frontmatter = models.JSONMap{}
	}

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO lessons (path, title, content, html_content, frontmatter, word_count, parent_folder,
			lesson_number, file_hash, created_at, updated_at)
		VALUES (:path, :title, :content, :html_content, :frontmatter, :word_count, :parent_folder,
			:lesson_number, :file_hash, :created_at, :updated_at)
		ON CONFLICT (path) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			html_content = excluded.html_content,
			frontmatter = excluded.frontmatter,
			word_count = excluded.word_count,
			parent_folder = excluded.parent_folder,
			lesson_number = excluded.lesson_number,
			file_hash = excluded.file_hash,
			updated_at = excluded.updated_at`, lesson)
	if err != nil {
		return models.Lesson{}, fmt.Errorf("failed to upsert lesson %q: %w", lesson.Path, err)
	}
	return r.FindByPath(ctx, lesson.Path)
}

// Delete removes one lesson and its progress rows. Returns false when the lesson did not exist.
func (r *LessonRepository) Delete(ctx context.Context, path string) (bool, error) {
	deleted := false
	err := r.inTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM lessons WHERE path = ?"), path)
		if err != nil {
			return fmt.Errorf("failed to delete lesson %q: %w", path, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to delete lesson %q: %w", path, err)
		}
		if n == 0 {
			return nil
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM user_progress WHERE lesson_path = ?"), path); err != nil {
			return fmt.Errorf("failed to delete progress for %q: %w", path, err)
		}
		deleted = true
		return nil
	})
	return deleted, err
}

// DeleteFolder removes every lesson of a folder and their progress rows. Returns the number of lessons removed.
func (r *LessonRepository) DeleteFolder(ctx context.Context, folder string) (int, error) {
	var count int
	err := r.inTx(ctx, func(tx *sqlx.Tx) error {
		var paths []string
		if err := tx.SelectContext(ctx, &paths, tx.Rebind("SELECT path FROM lessons WHERE parent_folder = ?"), folder); err != nil {
			return fmt.Errorf("failed to list folder %q: %w", folder, err)
		}
		if len(paths) == 0 {
			return nil
		}
		query, args, err := sqlx.In("DELETE FROM user_progress WHERE lesson_path IN (?)", paths)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			return fmt.Errorf("failed to delete progress for folder %q: %w", folder, err)
		}
		res, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM lessons WHERE parent_folder = ?"), folder)
		if err != nil {
			return fmt.Errorf("failed to delete folder %q: %w", folder, err)
		}
		n, _ := res.RowsAffected()
		count = int(n)
		return nil
	})
	return count, err
}

func (r *LessonRepository) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
