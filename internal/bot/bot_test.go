package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/example/lessonhub/internal/apperr"
	"github.com/example/lessonhub/internal/statistics"
	"github.com/example/lessonhub/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type fakeAPI struct {
	mu      sync.Mutex
	sent    []tgbotapi.MessageConfig
	sendErr error
	member  tgbotapi.ChatMember
	lastCfg tgbotapi.GetChatMemberConfig
	memErr  error
	updates chan tgbotapi.Update
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, m)
	}
	return tgbotapi.Message{}, f.sendErr
}

func (f *fakeAPI) GetChatMember(cfg tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error) {
	f.lastCfg = cfg
	return f.member, f.memErr
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {}

func (f *fakeAPI) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tgbotapi.MessageConfig(nil), f.sent...)
}

func TestTelegramQueuesAndDelivers(t *testing.T) {
	api := &fakeAPI{}
	tg := NewTelegram(api, "-1001", nil)
	ctx := context.Background()

	if err := tg.SendMessage(ctx, 42, "hi"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if err := tg.SendToChannel(ctx, "news"); err != nil {
		t.Fatalf("SendToChannel: %v", err)
	}
	if got := len(api.messages()); got != 0 {
		t.Fatalf("messages sent before Run: %d", got)
	}

	runCtx, cancel := context.WithCancel(ctx)
	cancel()
	if err := tg.Run(runCtx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	msgs := api.messages()
	if len(msgs) != 2 {
		t.Fatalf("delivered %d messages, want 2", len(msgs))
	}
	if msgs[0].ChatID != 42 || msgs[0].Text != "hi" || msgs[0].ParseMode != "Markdown" {
		t.Errorf("private message = %+v", msgs[0])
	}
	if msgs[1].ChatID != -1001 {
		t.Errorf("channel message chat = %d", msgs[1].ChatID)
	}
}

func TestTelegramChannelUsername(t *testing.T) {
	api := &fakeAPI{}
	tg := NewTelegram(api, "@lessons", nil)
	_ = tg.SendToChannel(context.Background(), "x")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = tg.Run(ctx)
	msgs := api.messages()
	if len(msgs) != 1 || msgs[0].ChannelUsername != "@lessons" {
		t.Fatalf("messages = %+v", msgs)
	}
}

func TestTelegramOutboxFull(t *testing.T) {
	tg := NewTelegram(&fakeAPI{}, "", nil)
	for i := 0; i < outboxSize; i++ {
		if err := tg.SendMessage(context.Background(), 1, "x"); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	if err := tg.SendMessage(context.Background(), 1, "x"); !errors.Is(err, apperr.ErrUnavailable) {
		t.Fatalf("expected unavailable when full, got %v", err)
	}
}

func TestIsChannelMember(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{"creator", true},
		{"administrator", true},
		{"member", true},
		{"left", false},
		{"kicked", false},
		{"restricted", false},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			api := &fakeAPI{member: tgbotapi.ChatMember{Status: tt.status}}
			got, err := NewTelegram(api, "@lessons", nil).IsChannelMember(context.Background(), 7)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("member = %v, want %v", got, tt.want)
			}
			if api.lastCfg.SuperGroupUsername != "@lessons" || api.lastCfg.UserID != 7 {
				t.Errorf("config = %+v", api.lastCfg)
			}
		})
	}
}

func TestIsChannelMemberErrors(t *testing.T) {
	api := &fakeAPI{memErr: errors.New("boom")}
	if _, err := NewTelegram(api, "-100", nil).IsChannelMember(context.Background(), 1); !errors.Is(err, apperr.ErrUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if _, err := NewTelegram(api, "", nil).IsChannelMember(context.Background(), 1); !errors.Is(err, apperr.ErrUnavailable) {
		t.Fatalf("expected unavailable without channel, got %v", err)
	}
	if _, err := (Noop{}).IsChannelMember(context.Background(), 1); !errors.Is(err, apperr.ErrUnavailable) {
		t.Fatalf("noop should report unavailable, got %v", err)
	}
}

type fakeUsers struct {
	users map[int64]models.User
}

func (f *fakeUsers) FindByTelegramID(_ context.Context, id int64) (models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return models.User{}, apperr.NotFound("user %d", id)
	}
	return u, nil
}

func (f *fakeUsers) Upsert(_ context.Context, u models.User) (models.User, error) {
	f.users[u.ID] = u
	return u, nil
}

type fakeStats struct {
	summary statistics.Summary
}

func (f fakeStats) UserStatistics(context.Context, int64) (statistics.Summary, error) {
	return f.summary, nil
}

func command(chatID int64, text string) tgbotapi.Update {
	cmd := strings.SplitN(text, " ", 2)[0]
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: chatID},
		From:     &tgbotapi.User{ID: chatID, FirstName: "Ann", UserName: "ann"},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
	}}
}

func TestBotCommands(t *testing.T) {
	api := &fakeAPI{}
	users := &fakeUsers{users: map[int64]models.User{}}
	stats := fakeStats{summary: statistics.Summary{TotalLessonsViewed: 3, TotalLessonsCompleted: 1, CompletionRate: 33.3, TotalTimeSpent: 180000}}
	b := New(api, users, stats, nil)
	b.now = func() time.Time { return time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	b.handleUpdate(ctx, command(5, "/start"))
	u, ok := users.users[5]
	if !ok {
		t.Fatal("/start did not register the user")
	}
	if u.Username != "ann" || u.FirstName != "Ann" {
		t.Errorf("registered user = %+v", u)
	}

	b.handleUpdate(ctx, command(5, "/stats"))
	b.handleUpdate(ctx, command(5, "/help"))
	b.handleUpdate(ctx, command(5, "/unknown"))

	msgs := api.messages()
	if len(msgs) != 4 {
		t.Fatalf("replies = %d, want 4", len(msgs))
	}
	if !strings.Contains(msgs[0].Text, "Привет, Ann") {
		t.Errorf("welcome = %q", msgs[0].Text)
	}
	if !strings.Contains(msgs[1].Text, "Просмотрено уроков: 3") || !strings.Contains(msgs[1].Text, "Время чтения: 3 мин") {
		t.Errorf("stats = %q", msgs[1].Text)
	}
	if msgs[2].Text != helpText {
		t.Errorf("help = %q", msgs[2].Text)
	}
	if !strings.Contains(msgs[3].Text, "/help") {
		t.Errorf("unknown = %q", msgs[3].Text)
	}
}

func TestBotIgnoresPlainText(t *testing.T) {
	api := &fakeAPI{}
	b := New(api, &fakeUsers{users: map[int64]models.User{}}, fakeStats{}, nil)
	b.handleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{
		Text: "hello",
		Chat: &tgbotapi.Chat{ID: 1},
		From: &tgbotapi.User{ID: 1},
	}})
	if len(api.messages()) != 0 {
		t.Fatal("plain text should not be answered")
	}
}

func TestBotRunStopsOnCancel(t *testing.T) {
	api := &fakeAPI{updates: make(chan tgbotapi.Update, 1)}
	b := New(api, &fakeUsers{users: map[int64]models.User{}}, fakeStats{}, nil)
	api.updates <- command(9, "/help")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for len(api.messages()) == 0 {
		select {
		case <-deadline:
			t.Fatal("update not handled")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
}
