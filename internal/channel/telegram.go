package channel

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"wabot/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	telegramHistory     = 50
	telegramPollTimeout = 30
	// Long polls hold the request open for telegramPollTimeout seconds.
	telegramHTTPTimeout = (telegramPollTimeout + 15) * time.Second
)

// Telegram is a chat surface backed by the Bot API. Updates for the target
// chat are buffered so Inbound can be polled like a rendered history.
type Telegram struct {
	token    string
	endpoint string
	chat     string // numeric chat id or chat title
	history  int
	logger   *slog.Logger

	bot *tgbotapi.BotAPI

	mu     sync.Mutex
	chatID int64
	recent []string
	done   chan struct{}
}

type TelegramConfig struct {
	Token string
	// APIEndpoint is a format string taking the token and method name.
	// Defaults to the public Bot API.
	APIEndpoint string
	Chat        string
	History     int
	Logger      *slog.Logger
}

func NewTelegram(cfg TelegramConfig) *Telegram {
	if cfg.History <= 0 {
		cfg.History = telegramHistory
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.APIEndpoint == "" {
		cfg.APIEndpoint = tgbotapi.APIEndpoint
	}
	t := &Telegram{
		token:    cfg.Token,
		endpoint: cfg.APIEndpoint,
		chat:     strings.TrimSpace(cfg.Chat),
		history:  cfg.History,
		logger:   cfg.Logger,
	}
	if id, err := strconv.ParseInt(t.chat, 10, 64); err == nil {
		t.chatID = id
	}
	return t
}

// Start connects the bot and begins long polling until ctx is cancelled.
// A numeric chat id is verified up front.
func (t *Telegram) Start(ctx context.Context) error {
	client := &http.Client{Timeout: telegramHTTPTimeout}
	bot, err := tgbotapi.NewBotAPIWithClient(t.token, t.endpoint, client)
	if err != nil {
		return fmt.Errorf("telegram bot init: %w", err)
	}
	t.bot = bot
	t.logger.Info("telegram bot connected", "username", bot.Self.UserName, "id", bot.Self.ID)

	if id := t.currentChatID(); id != 0 {
		chat, err := bot.GetChat(tgbotapi.ChatInfoConfig{ChatConfig: tgbotapi.ChatConfig{ChatID: id}})
		if err != nil {
			return fmt.Errorf("%w: %d: %w", domain.ErrChatNotFound, id, err)
		}
		t.logger.Info("opened chat", "chat", chat.Title, "id", chat.ID)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = telegramPollTimeout
	updates := bot.GetUpdatesChan(u)

	t.done = make(chan struct{})
	go func() {
		defer close(t.done)
		for {
			select {
			case <-ctx.Done():
				bot.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.Message != nil {
					t.observe(update.Message)
				}
			}
		}
	}()
	return nil
}

// Wait blocks until the polling goroutine has exited.
func (t *Telegram) Wait() {
	if t.done != nil {
		<-t.done
	}
}

// observe records msg if it belongs to the target chat.
func (t *Telegram) observe(msg *tgbotapi.Message) {
	if msg.Chat == nil {
		return
	}
	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	if text == "" {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.matches(msg.Chat) {
		return
	}
	if t.chatID == 0 {
		t.chatID = msg.Chat.ID
		t.logger.Info("resolved chat", "chat", t.chat, "id", msg.Chat.ID)
	}

	t.recent = append(t.recent, text)
	if over := len(t.recent) - t.history; over > 0 {
		t.recent = append([]string(nil), t.recent[over:]...)
	}
}

func (t *Telegram) matches(c *tgbotapi.Chat) bool {
	if t.chatID != 0 {
		return c.ID == t.chatID
	}
	return strings.EqualFold(c.Title, t.chat) || strings.EqualFold(c.UserName, strings.TrimPrefix(t.chat, "@"))
}

func (t *Telegram) currentChatID() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.chatID
}

// Inbound implements domain.Inbox.
func (t *Telegram) Inbound(ctx context.Context) ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.recent...), nil
}

// Strategies returns the delivery strategies this surface supports.
func (t *Telegram) Strategies() []domain.DeliveryStrategy {
	return []domain.DeliveryStrategy{&telegramSend{t: t}}
}

// telegramSend posts through sendMessage.
type telegramSend struct {
	t *Telegram
}

func (s *telegramSend) Name() string { return "telegram-api" }

func (s *telegramSend) Deliver(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.t.bot == nil {
		return fmt.Errorf("telegram bot not started")
	}
	id := s.t.currentChatID()
	if id == 0 {
		return fmt.Errorf("%w: %q has not been seen yet", domain.ErrChatNotFound, s.t.chat)
	}
	if _, err := s.t.bot.Send(tgbotapi.NewMessage(id, text)); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
