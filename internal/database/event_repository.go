package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/lessonhub/pkg/models"
)

// EventRepository stores analytics events
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository creates a new repository instance
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Insert appends an event and returns it with its id
func (r *EventRepository) Insert(ctx context.Context, event models.AnalyticsEvent) (models.AnalyticsEvent, error) {
	event.Timestamp = utc(event.Timestamp)
	if event.Data == nil {
		event.Data = models.JSONMap{}
	}
	query := r.db.Rebind(`INSERT INTO analytics_events (user_id, event_type, lesson_path, data, timestamp)
		VALUES (?, ?, ?, ?, ?) RETURNING id`)
	if err := r.db.GetContext(ctx, &event.ID, query, event.UserID, event.EventType, event.LessonPath, event.Data, event.Timestamp); err != nil {
		return models.AnalyticsEvent{}, fmt.Errorf("failed to insert %s event for user %d: %w", event.EventType, event.UserID, err)
	}
	return event, nil
}

// ListByUser returns the user's events, newest first
func (r *EventRepository) ListByUser(ctx context.Context, userID int64) ([]models.AnalyticsEvent, error) {
	events := []models.AnalyticsEvent{}
	query := r.db.Rebind("SELECT id, user_id, event_type, lesson_path, data, timestamp FROM analytics_events WHERE user_id = ? ORDER BY timestamp DESC, id DESC")
	if err := r.db.SelectContext(ctx, &events, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list events of user %d: %w", userID, err)
	}
	return events, nil
}
