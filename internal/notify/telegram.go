// internal/notify/telegram.go
package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// TelegramConfig contains Telegram bot configuration
type TelegramConfig struct {
	Token       string
	ChatID      int64
	APIEndpoint string // defaults to tgbotapi.APIEndpoint
	HTTPTimeout time.Duration
}

// Telegram sends alert text to one chat.
type Telegram struct {
	api     *tgbotapi.BotAPI
	chatID  int64
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewTelegram connects to the Bot API. It fails if the token is rejected.
func NewTelegram(cfg TelegramConfig, logger *zap.Logger) (*Telegram, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}
	if cfg.ChatID == 0 {
		return nil, fmt.Errorf("telegram chat id is required")
	}
	if cfg.APIEndpoint == "" {
		cfg.APIEndpoint = tgbotapi.APIEndpoint
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}

	api, err := tgbotapi.NewBotAPIWithClient(cfg.Token, cfg.APIEndpoint, &http.Client{Timeout: cfg.HTTPTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	logger.Info("Telegram notifier ready", zap.String("bot", api.Self.UserName))
	return &Telegram{
		api:    api,
		chatID: cfg.ChatID,
		// One message per second per chat is Telegram's documented limit.
		limiter: rate.NewLimiter(rate.Every(time.Second), 3),
		logger:  logger.Named("telegram"),
	}, nil
}

func (t *Telegram) Notify(ctx context.Context, message string) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram rate limit: %w", err)
	}

	msg := tgbotapi.NewMessage(t.chatID, message)
	msg.DisableWebPagePreview = true
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
