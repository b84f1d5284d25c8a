package progress

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/lessonhub/internal/apperr"
	"github.com/example/lessonhub/internal/cache"
	"github.com/example/lessonhub/internal/engagement"
	"github.com/example/lessonhub/internal/logger"
	"github.com/example/lessonhub/pkg/models"
)

// ErrSessionNotFound is returned by EndSession when no session is active for the key.
var ErrSessionNotFound = fmt.Errorf("reading session: %w", apperr.ErrNotFound)

type ProgressStore interface {
	FindByUser(ctx context.Context, userID int64) ([]models.UserProgress, error)
	FindByUserAndLesson(ctx context.Context, userID int64, lessonPath string) (models.UserProgress, error)
	Upsert(ctx context.Context, progress models.UserProgress) (models.UserProgress, error)
}

type UserStore interface {
	FindByTelegramID(ctx context.Context, telegramID int64) (models.User, error)
	Upsert(ctx context.Context, user models.User) (models.User, error)
}

type EventStore interface {
	Insert(ctx context.Context, event models.AnalyticsEvent) (models.AnalyticsEvent, error)
}

type LessonFinder interface {
	FindByPath(ctx context.Context, path string) (models.Lesson, error)
}

type Notifier interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Metrics is the outcome of a reading session or the last stored state of a lesson.
type Metrics struct {
	TimeSpent       int64   `json:"timeSpent"`
	ScrollProgress  int     `json:"scrollProgress"`
	ReadingSpeed    float64 `json:"readingSpeed"`
	CompletionScore float64 `json:"completionScore"`
	EngagementLevel string  `json:"engagementLevel"`
	Visits          int     `json:"visits"`
	Completed       bool    `json:"completed"`
}

// Update is a direct progress report that bypasses the session tracker.
type Update struct {
	LessonPath      string  `json:"lessonPath"`
	TimeSpent       int64   `json:"timeSpent"`
	ScrollProgress  int     `json:"scrollProgress"`
	ReadingSpeed    float64 `json:"readingSpeed"`
	CompletionScore float64 `json:"completionScore"`
	EngagementLevel string  `json:"engagementLevel"`
}

type Deps struct {
	Progress ProgressStore
	Users    UserStore
	Events   EventStore
	Lessons  LessonFinder
	Notifier Notifier
	Cache    cache.Cache
	Log      *logger.Logger
	Now      func() time.Time
}

type Service struct {
	progress ProgressStore
	users    UserStore
	events   EventStore
	lessons  LessonFinder
	notifier Notifier
	cache    cache.Cache
	log      *logger.Logger
	now      func() time.Time
	tracker  *Tracker
}

func NewService(d Deps) *Service {
	if d.Cache == nil {
		d.Cache = cache.Noop{}
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Notifier == nil {
		d.Notifier = silentNotifier{}
	}
	if d.Lessons == nil {
		d.Lessons = noLessons{}
	}
	return &Service{
		progress: d.Progress,
		users:    d.Users,
		events:   d.Events,
		lessons:  d.Lessons,
		notifier: d.Notifier,
		cache:    d.Cache,
		log:      d.Log.With("service", "ProgressService"),
		now:      d.Now,
		tracker:  NewTracker(d.Now),
	}
}

// StartSession opens a reading session and counts the visit.
func (s *Service) StartSession(ctx context.Context, userID int64, lessonPath string, wordCount int) (Session, error) {
	lessonPath, err := validateKey(userID, lessonPath)
	if err != nil {
		return Session{}, err
	}
	if wordCount < 0 {
		return Session{}, apperr.Invalid("word count %d is negative", wordCount)
	}

	now := s.now()
	if err := s.touchUser(ctx, userID, now); err != nil {
		return Session{}, err
	}
	row, err := s.loadRow(ctx, userID, lessonPath, now)
	if err != nil {
		return Session{}, err
	}
	row.Visits++
	row.LastVisited = now
	row.UpdatedAt = now
	if _, err := s.progress.Upsert(ctx, row); err != nil {
		return Session{}, err
	}
	s.invalidateStats(ctx, userID)

	session := s.tracker.Start(userID, lessonPath, wordCount)
	s.log.Debug("reading session started", "user_id", userID, "lesson_path", lessonPath, "word_count", wordCount)
	return session, nil
}

// UpdateScroll records a scroll report. Missing sessions are ignored.
func (s *Service) UpdateScroll(ctx context.Context, userID int64, lessonPath string, scrollPercent int) error {
	lessonPath, err := validateKey(userID, lessonPath)
	if err != nil {
		return err
	}
	if scrollPercent < 0 || scrollPercent > 100 {
		return apperr.Invalid("scroll progress %d out of range", scrollPercent)
	}
	if _, ok := s.tracker.UpdateScroll(userID, lessonPath, scrollPercent); !ok {
		s.log.Debug("scroll update without session", "user_id", userID, "lesson_path", lessonPath)
	}
	return nil
}

// EndSession closes the session, scores it and stores the result.
func (s *Service) EndSession(ctx context.Context, userID int64, lessonPath string) (Metrics, error) {
	lessonPath, err := validateKey(userID, lessonPath)
	if err != nil {
		return Metrics{}, err
	}
	session, ok := s.tracker.End(userID, lessonPath)
	if !ok {
		return Metrics{}, ErrSessionNotFound
	}

	speed := engagement.ReadingSpeed(session.WordCount, session.ActiveTime)
	score := engagement.CompletionScore(session.ActiveTime, session.ScrollProgress, session.EngagementPoints, session.WordCount)
	level := engagement.Level(score)

	now := s.now()
	if err := s.touchUser(ctx, userID, now); err != nil {
		return Metrics{}, err
	}
	row, err := s.loadRow(ctx, userID, lessonPath, now)
	if err != nil {
		return Metrics{}, err
	}
	wasCompleted := row.Completed
	row.TimeSpent += session.ActiveTime
	row.ScrollProgress = session.ScrollProgress
	row.ReadingSpeed = speed
	row.CompletionScore = score
	row.EngagementLevel = level
	row.LastVisited = now
	row.UpdatedAt = now
	row = row.MarkCompleted(engagement.IsCompleted(score), now)

	stored, err := s.progress.Upsert(ctx, row)
	if err != nil {
		return Metrics{}, err
	}
	s.invalidateStats(ctx, userID)

	if !wasCompleted && stored.Completed {
		s.notifyCompleted(ctx, userID, lessonPath)
	}

	s.log.Info("reading session ended",
		"user_id", userID,
		"lesson_path", lessonPath,
		"active_ms", session.ActiveTime,
		"completion_score", score,
		"engagement_level", level,
	)
	return Metrics{
		TimeSpent:       session.ActiveTime,
		ScrollProgress:  session.ScrollProgress,
		ReadingSpeed:    speed,
		CompletionScore: score,
		EngagementLevel: level,
		Visits:          stored.Visits,
		Completed:       stored.Completed,
	}, nil
}

// GetMetrics returns the stored metrics or the "new" placeholder when nothing was recorded.
func (s *Service) GetMetrics(ctx context.Context, userID int64, lessonPath string) (Metrics, error) {
	lessonPath, err := validateKey(userID, lessonPath)
	if err != nil {
		return Metrics{}, err
	}
	row, err := s.progress.FindByUserAndLesson(ctx, userID, lessonPath)
	if errors.Is(err, apperr.ErrNotFound) {
		return Metrics{EngagementLevel: models.EngagementNew}, nil
	}
	if err != nil {
		return Metrics{}, err
	}
	return metricsFromRow(row), nil
}

// RecordProgress applies a direct progress report.
func (s *Service) RecordProgress(ctx context.Context, userID int64, u Update) (models.UserProgress, error) {
	lessonPath, err := validateKey(userID, u.LessonPath)
	if err != nil {
		return models.UserProgress{}, err
	}
	switch {
	case u.TimeSpent < 0:
		return models.UserProgress{}, apperr.Invalid("time spent %d is negative", u.TimeSpent)
	case u.ScrollProgress < 0 || u.ScrollProgress > 100:
		return models.UserProgress{}, apperr.Invalid("scroll progress %d out of range", u.ScrollProgress)
	case u.ReadingSpeed < 0:
		return models.UserProgress{}, apperr.Invalid("reading speed %v is negative", u.ReadingSpeed)
	case u.CompletionScore < 0 || u.CompletionScore > 1:
		return models.UserProgress{}, apperr.Invalid("completion score %v out of range", u.CompletionScore)
	}
	level := u.EngagementLevel
	if level == "" {
		level = engagement.Level(u.CompletionScore)
	}

	now := s.now()
	if err := s.touchUser(ctx, userID, now); err != nil {
		return models.UserProgress{}, err
	}
	row, err := s.loadRow(ctx, userID, lessonPath, now)
	if err != nil {
		return models.UserProgress{}, err
	}
	wasCompleted := row.Completed
	row.TimeSpent += u.TimeSpent
	row.ScrollProgress = u.ScrollProgress
	row.ReadingSpeed = u.ReadingSpeed
	row.CompletionScore = u.CompletionScore
	row.EngagementLevel = level
	row.Visits++
	row.LastVisited = now
	row.UpdatedAt = now
	row = row.MarkCompleted(engagement.IsCompleted(u.CompletionScore), now)

	stored, err := s.progress.Upsert(ctx, row)
	if err != nil {
		return models.UserProgress{}, err
	}
	s.invalidateStats(ctx, userID)
	if !wasCompleted && stored.Completed {
		s.notifyCompleted(ctx, userID, lessonPath)
	}
	return stored, nil
}

// ListProgress returns every progress row of the user.
func (s *Service) ListProgress(ctx context.Context, userID int64) ([]models.UserProgress, error) {
	if userID <= 0 {
		return nil, apperr.Invalid("telegram id %d", userID)
	}
	return s.progress.FindByUser(ctx, userID)
}

// TrackEvent stores an analytics event.
func (s *Service) TrackEvent(ctx context.Context, userID int64, eventType, lessonPath string, data map[string]any) (models.AnalyticsEvent, error) {
	if userID <= 0 {
		return models.AnalyticsEvent{}, apperr.Invalid("telegram id %d", userID)
	}
	eventType = strings.TrimSpace(eventType)
	if eventType == "" {
		return models.AnalyticsEvent{}, apperr.Invalid("event type is empty")
	}
	now := s.now()
	if err := s.touchUser(ctx, userID, now); err != nil {
		return models.AnalyticsEvent{}, err
	}
	return s.events.Insert(ctx, models.AnalyticsEvent{
		UserID:     userID,
		EventType:  eventType,
		LessonPath: strings.TrimSpace(lessonPath),
		Data:       models.JSONMap(data),
		Timestamp:  now,
	})
}

// ReapIdle drops sessions idle for longer than ttl. Their data is discarded.
func (s *Service) ReapIdle(ttl time.Duration) int {
	n := s.tracker.Reap(ttl)
	if n > 0 {
		s.log.Info("reaped idle reading sessions", "count", n, "ttl", ttl.String())
	}
	return n
}

// ActiveSessions returns the number of sessions in memory.
func (s *Service) ActiveSessions() int {
	return s.tracker.Len()
}

func (s *Service) loadRow(ctx context.Context, userID int64, lessonPath string, now time.Time) (models.UserProgress, error) {
	row, err := s.progress.FindByUserAndLesson(ctx, userID, lessonPath)
	if errors.Is(err, apperr.ErrNotFound) {
		return models.NewUserProgress(userID, lessonPath, now), nil
	}
	return row, err
}

// touchUser creates unknown users and refreshes lastActive.
func (s *Service) touchUser(ctx context.Context, userID int64, now time.Time) error {
	user, err := s.users.FindByTelegramID(ctx, userID)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		user = models.NewUser(userID, now)
	case err != nil:
		return err
	}
	user.LastActive = now
	_, err = s.users.Upsert(ctx, user)
	return err
}

func (s *Service) invalidateStats(ctx context.Context, userID int64) {
	if err := s.cache.Delete(ctx, cache.UserStatsKey(userID)); err != nil {
		s.log.Warn("failed to invalidate statistics cache", "user_id", userID, "error", err)
	}
}

func (s *Service) notifyCompleted(ctx context.Context, userID int64, lessonPath string) {
	title := lessonPath
	if lesson, err := s.lessons.FindByPath(ctx, lessonPath); err == nil && lesson.Title != "" {
		title = lesson.Title
	}
	text := fmt.Sprintf("🎉 Поздравляем! Урок «%s» пройден.", title)
	if err := s.notifier.SendMessage(ctx, userID, text); err != nil {
		s.log.Warn("failed to send completion notification", "user_id", userID, "error", err)
	}
}

type silentNotifier struct{}

func (silentNotifier) SendMessage(context.Context, int64, string) error { return nil }

type noLessons struct{}

func (noLessons) FindByPath(_ context.Context, path string) (models.Lesson, error) {
	return models.Lesson{}, apperr.NotFound("lesson %q", path)
}

func metricsFromRow(row models.UserProgress) Metrics {
	return Metrics{
		TimeSpent:       row.TimeSpent,
		ScrollProgress:  row.ScrollProgress,
		ReadingSpeed:    row.ReadingSpeed,
		CompletionScore: row.CompletionScore,
		EngagementLevel: row.EngagementLevel,
		Visits:          row.Visits,
		Completed:       row.Completed,
	}
}

func validateKey(userID int64, lessonPath string) (string, error) {
	if userID <= 0 {
		return "", apperr.Invalid("telegram id %d", userID)
	}
	lessonPath = strings.TrimSpace(lessonPath)
	if lessonPath == "" {
		return "", apperr.Invalid("lesson path is empty")
	}
	return lessonPath, nil
}
