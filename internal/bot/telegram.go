package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/example/lessonhub/internal/apperr"
	"github.com/example/lessonhub/internal/logger"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// API is the subset of *tgbotapi.BotAPI the package uses
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

const outboxSize = 256

type outgoing struct {
	msg  tgbotapi.MessageConfig
	desc string
}

// Telegram delivers notifications and checks channel membership through the Bot API.
// Messages are queued and sent by Run so callers never wait on Telegram.
type Telegram struct {
	api     API
	channel string
	outbox  chan outgoing
	log     *logger.Logger
}

// NewBotAPI authorizes the token against Telegram
func NewBotAPI(token string) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("unable to create bot: %v: %w", err, apperr.ErrUnavailable)
	}
	return api, nil
}

func NewTelegram(api API, channel string, log *logger.Logger) *Telegram {
	if log == nil {
		log = logger.Nop()
	}
	return &Telegram{
		api:     api,
		channel: strings.TrimSpace(channel),
		outbox:  make(chan outgoing, outboxSize),
		log:     log.With("service", "TelegramNotifier"),
	}
}

// SendMessage queues a Markdown message for a private chat
func (t *Telegram) SendMessage(_ context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	return t.enqueue(outgoing{msg: msg, desc: strconv.FormatInt(chatID, 10)})
}

// SendToChannel queues a message for the configured channel
func (t *Telegram) SendToChannel(_ context.Context, text string) error {
	if t.channel == "" {
		return fmt.Errorf("channel not configured: %w", apperr.ErrUnavailable)
	}
	var msg tgbotapi.MessageConfig
	if id, err := strconv.ParseInt(t.channel, 10, 64); err == nil {
		msg = tgbotapi.NewMessage(id, text)
	} else {
		msg = tgbotapi.NewMessageToChannel(t.channel, text)
	}
	return t.enqueue(outgoing{msg: msg, desc: t.channel})
}

func (t *Telegram) enqueue(o outgoing) error {
	select {
	case t.outbox <- o:
		return nil
	default:
		return fmt.Errorf("telegram outbox full: %w", apperr.ErrUnavailable)
	}
}

// Run sends queued messages until ctx is cancelled, then drains what is left
func (t *Telegram) Run(ctx context.Context) error {
	for {
		select {
		case o := <-t.outbox:
			t.deliver(o)
		case <-ctx.Done():
			for {
				select {
				case o := <-t.outbox:
					t.deliver(o)
				default:
					return nil
				}
			}
		}
	}
}

func (t *Telegram) deliver(o outgoing) {
	if _, err := t.api.Send(o.msg); err != nil {
		t.log.Warn("send failed", "chat", o.desc, "error", err)
		return
	}
	t.log.Debug("message sent", "chat", o.desc)
}

// IsChannelMember reports whether the user belongs to the configured channel
func (t *Telegram) IsChannelMember(_ context.Context, userID int64) (bool, error) {
	if t.channel == "" {
		return false, fmt.Errorf("channel not configured: %w", apperr.ErrUnavailable)
	}
	cfg := tgbotapi.GetChatMemberConfig{ChatConfigWithUser: tgbotapi.ChatConfigWithUser{UserID: userID}}
	if id, err := strconv.ParseInt(t.channel, 10, 64); err == nil {
		cfg.ChatID = id
	} else {
		cfg.SuperGroupUsername = t.channel
	}
	member, err := t.api.GetChatMember(cfg)
	if err != nil {
		return false, fmt.Errorf("get chat member %d: %v: %w", userID, err, apperr.ErrUnavailable)
	}
	switch member.Status {
	case "creator", "administrator", "member":
		return true, nil
	}
	return false, nil
}

// Noop stands in for Telegram when no bot token is configured
type Noop struct{}

func (Noop) SendMessage(context.Context, int64, string) error { return nil }

func (Noop) SendToChannel(context.Context, string) error { return nil }

func (Noop) IsChannelMember(context.Context, int64) (bool, error) {
	return false, fmt.Errorf("telegram disabled: %w", apperr.ErrUnavailable)
}
