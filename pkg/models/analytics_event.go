package models

import "time"

// AnalyticsEvent is a raw client-side event kept for later analysis
type AnalyticsEvent struct {
	ID         int64     `json:"id" db:"id"`
	UserID     int64     `json:"telegramId" db:"user_id"`
	EventType  string    `json:"eventType" db:"event_type"`
	LessonPath string    `json:"lessonPath" db:"lesson_path"`
	Data       JSONMap   `json:"data" db:"data"`
	Timestamp  time.Time `json:"timestamp" db:"timestamp"`
}
