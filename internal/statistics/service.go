package statistics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/lessonhub/internal/apperr"
	"github.com/example/lessonhub/internal/cache"
	"github.com/example/lessonhub/internal/logger"
	"github.com/example/lessonhub/pkg/models"
)

type ProgressReader interface {
	FindByUser(ctx context.Context, userID int64) ([]models.UserProgress, error)
}

type UserReader interface {
	FindByTelegramID(ctx context.Context, telegramID int64) (models.User, error)
	ListAll(ctx context.Context) ([]models.User, error)
}

// UserSummary pairs a user with their statistics.
type UserSummary struct {
	User    models.User
	Summary Summary
}

type Service struct {
	progress ProgressReader
	users    UserReader
	cache    cache.Cache
	cacheTTL time.Duration
	levels   []models.Level
	loc      *time.Location
	now      func() time.Time
	log      *logger.Logger
}

type Options struct {
	Cache    cache.Cache
	CacheTTL time.Duration
	Levels   []models.Level
	Location *time.Location
	Now      func() time.Time
}

func NewService(progress ProgressReader, users UserReader, log *logger.Logger, opts Options) *Service {
	if opts.Cache == nil {
		opts.Cache = cache.Noop{}
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		progress: progress,
		users:    users,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		levels:   opts.Levels,
		loc:      opts.Location,
		now:      opts.Now,
		log:      log.With("service", "StatisticsService"),
	}
}

// UserStatistics returns the full summary. Unknown users get a zero placeholder.
func (s *Service) UserStatistics(ctx context.Context, userID int64) (Summary, error) {
	if userID <= 0 {
		return Summary{}, apperr.Invalid("telegram id %d", userID)
	}

	key := cache.UserStatsKey(userID)
	var cached Summary
	if ok, err := s.cache.Get(ctx, key, &cached); err != nil {
		s.log.Warn("statistics cache read failed", "user_id", userID, "error", err)
	} else if ok {
		return cached, nil
	}

	if _, err := s.users.FindByTelegramID(ctx, userID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Compute(nil, s.now(), s.loc, s.levels), nil
		}
		return Summary{}, err
	}

	rows, err := s.progress.FindByUser(ctx, userID)
	if err != nil {
		return Summary{}, fmt.Errorf("load progress: %w", err)
	}
	summary := Compute(rows, s.now(), s.loc, s.levels)

	if err := s.cache.Set(ctx, key, summary, s.cacheTTL); err != nil {
		s.log.Warn("statistics cache write failed", "user_id", userID, "error", err)
	}
	return summary, nil
}

func (s *Service) CurrentStreak(ctx context.Context, userID int64) (int, error) {
	summary, err := s.UserStatistics(ctx, userID)
	if err != nil {
		return 0, err
	}
	return summary.CurrentStreak, nil
}

func (s *Service) LevelProgress(ctx context.Context, userID int64) (map[string]float64, error) {
	summary, err := s.UserStatistics(ctx, userID)
	if err != nil {
		return nil, err
	}
	return summary.LevelProgress, nil
}

func (s *Service) Achievements(ctx context.Context, userID int64) (AchievementsSummary, error) {
	summary, err := s.UserStatistics(ctx, userID)
	if err != nil {
		return AchievementsSummary{}, err
	}
	return BuildAchievementsSummary(summary), nil
}

func (s *Service) Insights(ctx context.Context, userID int64) (Insights, error) {
	summary, err := s.UserStatistics(ctx, userID)
	if err != nil {
		return Insights{}, err
	}
	return BuildInsights(summary), nil
}

// AllUsers returns the statistics of every known user, for reports.
func (s *Service) AllUsers(ctx context.Context) ([]UserSummary, error) {
	users, err := s.users.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]UserSummary, 0, len(users))
	for _, u := range users {
		summary, err := s.UserStatistics(ctx, u.ID)
		if err != nil {
			return nil, fmt.Errorf("statistics of user %d: %w", u.ID, err)
		}
		out = append(out, UserSummary{User: u, Summary: summary})
	}
	return out, nil
}
