package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/example/lessonhub/internal/logger"
	"github.com/example/lessonhub/pkg/models"
	"github.com/go-co-op/gocron"
)

// ReapInterval is how often idle reading sessions are discarded
const ReapInterval = 5 * time.Minute

// SessionReaper drops reading sessions idle longer than ttl
type SessionReaper interface {
	ReapIdle(ttl time.Duration) int
}

// ActiveUsers lists users by last activity
type ActiveUsers interface {
	ListActiveBetween(ctx context.Context, from, to time.Time) ([]models.User, error)
}

// Notifier sends reminders to users
type Notifier interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

type Options struct {
	SessionIdleTTL time.Duration
	StartHour      int
	EndHour        int
	Location       *time.Location
	Now            func() time.Time
}

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	reaper    SessionReaper
	users     ActiveUsers
	notifier  Notifier
	log       *logger.Logger
	opts      Options

	mu       sync.Mutex
	reminded map[int64]string
}

func New(reaper SessionReaper, users ActiveUsers, notifier Notifier, log *logger.Logger, opts Options) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(opts.Location),
		reaper:    reaper,
		users:     users,
		notifier:  notifier,
		log:       log.With("service", "Scheduler"),
		opts:      opts,
		reminded:  make(map[int64]string),
	}
}

// Start registers the jobs and runs them in the background
func (s *Scheduler) Start() error {
	if _, err := s.scheduler.Every(ReapInterval).Do(s.reapSessions); err != nil {
		return fmt.Errorf("schedule session reaper: %w", err)
	}
	if _, err := s.scheduler.Every(1).Hour().Do(s.sendStreakReminders, context.Background()); err != nil {
		return fmt.Errorf("schedule streak reminders: %w", err)
	}
	s.scheduler.StartAsync()
	s.log.Info("scheduler started", "jobs", len(s.scheduler.Jobs()))
	return nil
}

// Run starts the scheduler and stops it when ctx is done
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) reapSessions() {
	if n := s.reaper.ReapIdle(s.opts.SessionIdleTTL); n > 0 {
		s.log.Info("reaped idle sessions", "count", n)
	}
}

// InWindow reports whether hour falls inside the notification window
func (s *Scheduler) InWindow(hour int) bool {
	return hour >= s.opts.StartHour && hour <= s.opts.EndHour
}

// sendStreakReminders nudges users whose last activity was yesterday. Each user is reminded once per day.
func (s *Scheduler) sendStreakReminders(ctx context.Context) int {
	now := s.opts.Now().In(s.opts.Location)
	if !s.InWindow(now.Hour()) {
		s.log.Debug("outside notification hours, skipping reminders", "hour", now.Hour(),
			"start", s.opts.StartHour, "end", s.opts.EndHour)
		return 0
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.opts.Location)
	yesterday := today.AddDate(0, 0, -1)
	users, err := s.users.ListActiveBetween(ctx, yesterday, today)
	if err != nil {
		s.log.Error("list users for reminders", "error", err)
		return 0
	}

	dayKey := today.Format(time.DateOnly)
	sent := 0
	for _, u := range users {
		if !s.markReminded(u.ID, dayKey) {
			continue
		}
		if err := s.notifier.SendMessage(ctx, u.ID, streakReminderText); err != nil {
			s.log.Warn("streak reminder failed", "user", u.ID, "error", err)
			continue
		}
		sent++
	}
	if sent > 0 {
		s.log.Info("streak reminders sent", "count", sent)
	}
	return sent
}

func (s *Scheduler) markReminded(userID int64, dayKey string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reminded[userID] == dayKey {
		return false
	}
	for id, d := range s.reminded {
		if d != dayKey {
			delete(s.reminded, id)
		}
	}
	s.reminded[userID] = dayKey
	return true
}

const streakReminderText = "🔥 Ваша серия чтения под угрозой! Откройте урок сегодня, чтобы её сохранить."
