package models

import "time"

// Engagement labels stored on a progress row
const (
	EngagementNew    = "new"
	EngagementLow    = "low"
	EngagementMedium = "medium"
	EngagementHigh   = "high"
)

// UserProgress tracks a user's reading progress for one lesson
type UserProgress struct {
	ID              int64      `json:"id" db:"id"`
	UserID          int64      `json:"telegramId" db:"user_id"` // Telegram User ID
	LessonPath      string     `json:"lessonPath" db:"lesson_path"`
	TimeSpent       int64      `json:"timeSpent" db:"time_spent"`           // Cumulative milliseconds
	ScrollProgress  int        `json:"scrollProgress" db:"scroll_progress"` // 0-100
	ReadingSpeed    float64    `json:"readingSpeed" db:"reading_speed"`     // Words per minute
	CompletionScore float64    `json:"completionScore" db:"completion_score"`
	EngagementLevel string     `json:"engagementLevel" db:"engagement_level"`
	Visits          int        `json:"visits" db:"visits"`
	LastVisited     time.Time  `json:"lastVisited" db:"last_visited"`
	Completed       bool       `json:"completed" db:"completed"`
	CompletedAt     *time.Time `json:"completedAt,omitempty" db:"completed_at"`
	CreatedAt       time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time  `json:"updatedAt" db:"updated_at"`
}

// NewUserProgress returns the empty row created lazily for a (user, lesson) pair
func NewUserProgress(userID int64, lessonPath string, now time.Time) UserProgress {
	return UserProgress{
		UserID:          userID,
		LessonPath:      lessonPath,
		EngagementLevel: EngagementNew,
		LastVisited:     now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// MarkCompleted sets the completion flag. Once set it is never cleared.
func (p UserProgress) MarkCompleted(completed bool, now time.Time) UserProgress {
	if p.Completed || !completed {
		return p
	}
	p.Completed = true
	p.CompletedAt = &now
	return p
}
