package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/lessonhub/internal/apperr"
	"github.com/example/lessonhub/internal/logger"
	"github.com/example/lessonhub/internal/statistics"
	"github.com/example/lessonhub/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// UserStore is what the bot needs to register users
type UserStore interface {
	FindByTelegramID(ctx context.Context, telegramID int64) (models.User, error)
	Upsert(ctx context.Context, user models.User) (models.User, error)
}

// StatsProvider returns the statistics summary shown by /stats
type StatsProvider interface {
	UserStatistics(ctx context.Context, userID int64) (statistics.Summary, error)
}

// Bot answers the chat commands /start, /stats and /help
type Bot struct {
	api   API
	users UserStore
	stats StatsProvider
	log   *logger.Logger
	now   func() time.Time
}

func New(api API, users UserStore, stats StatsProvider, log *logger.Logger) *Bot {
	if log == nil {
		log = logger.Nop()
	}
	return &Bot{
		api:   api,
		users: users,
		stats: stats,
		log:   log.With("service", "Bot"),
		now:   time.Now,
	}
}

// Run polls updates until ctx is cancelled
func (b *Bot) Run(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)
	b.log.Info("bot started")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.log.Info("bot stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || !msg.IsCommand() {
		return
	}

	var reply string
	switch msg.Command() {
	case "start":
		reply = b.handleStart(ctx, msg)
	case "stats":
		reply = b.handleStats(ctx, msg)
	case "help":
		reply = helpText
	default:
		reply = "Неизвестная команда. Используйте /help, чтобы увидеть список команд."
	}

	out := tgbotapi.NewMessage(msg.Chat.ID, reply)
	out.ParseMode = "Markdown"
	if _, err := b.api.Send(out); err != nil {
		b.log.Warn("reply failed", "chat", msg.Chat.ID, "command", msg.Command(), "error", err)
	}
}

const helpText = `📖 *Команды*

/start - регистрация и приветствие
/stats - ваша статистика чтения
/help - эта справка`

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) string {
	now := b.now().UTC()
	user, err := b.users.FindByTelegramID(ctx, msg.From.ID)
	if errors.Is(err, apperr.ErrNotFound) {
		user = models.NewUser(msg.From.ID, now)
	} else if err != nil {
		b.log.Error("load user", "user", msg.From.ID, "error", err)
		return "Сервис временно недоступен. Попробуйте позже."
	}
	user.Username = msg.From.UserName
	user.FirstName = msg.From.FirstName
	user.LastName = msg.From.LastName
	user.LanguageCode = msg.From.LanguageCode
	user.LastActive = now
	if _, err := b.users.Upsert(ctx, user); err != nil {
		b.log.Error("register user", "user", msg.From.ID, "error", err)
		return "Сервис временно недоступен. Попробуйте позже."
	}

	name := msg.From.FirstName
	if name == "" {
		name = "друг"
	}
	return fmt.Sprintf("Привет, %s! 🎓\n\nОткройте приложение, чтобы читать уроки.\n\n%s", name, helpText)
}

func (b *Bot) handleStats(ctx context.Context, msg *tgbotapi.Message) string {
	s, err := b.stats.UserStatistics(ctx, msg.From.ID)
	if err != nil {
		b.log.Error("user statistics", "user", msg.From.ID, "error", err)
		return "Статистика пока недоступна."
	}
	if s.TotalLessonsViewed == 0 {
		return "Вы ещё не открыли ни одного урока. Начните чтение, чтобы увидеть свой прогресс!"
	}
	return FormatStats(s)
}

// FormatStats renders a summary as a Markdown chat message
func FormatStats(s statistics.Summary) string {
	var sb strings.Builder
	sb.WriteString("📊 *Ваша статистика*\n\n")
	fmt.Fprintf(&sb, "Просмотрено уроков: %d\n", s.TotalLessonsViewed)
	fmt.Fprintf(&sb, "Завершено уроков: %d (%.0f%%)\n", s.TotalLessonsCompleted, s.CompletionRate)
	fmt.Fprintf(&sb, "Время чтения: %d мин\n", s.TotalTimeSpent/60000)
	fmt.Fprintf(&sb, "Серия: %d дн. (рекорд %d)\n", s.CurrentStreak, s.LongestStreak)
	if s.AverageReadingSpeed > 0 {
		fmt.Fprintf(&sb, "Скорость чтения: %.0f слов/мин\n", s.AverageReadingSpeed)
	}
	if len(s.Achievements) > 0 {
		fmt.Fprintf(&sb, "Достижения: %d\n", len(s.Achievements))
	}
	return sb.String()
}
