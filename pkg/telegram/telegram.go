package telegram

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"trading-dashboard/config"
	"trading-dashboard/pkg/logger"
	"trading-dashboard/pkg/utils"

	"golang.org/x/time/rate"
	"gopkg.in/telebot.v3"
)

const (
	chatMessagesPerSecond   = 1
	chatLimiterExpire       = 30 * time.Minute
	chatLimiterCleanupEvery = 10 * time.Minute
)

// Sender is the part of *telebot.Bot the limiter needs.
type Sender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// MessageSender is implemented by *TelegramRateLimiter.
type MessageSender interface {
	SendMessage(ctx context.Context, chatID int64, message string, opts ...interface{}) error
}

type chatLimiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// TelegramRateLimiter sends outbound messages while honouring the global
// and per-chat limits of the Bot API.
type TelegramRateLimiter struct {
	cfg           *config.TelegramConfig
	log           *logger.Logger
	globalLimiter *rate.Limiter
	chatLimiters  map[int64]*chatLimiterEntry
	sender        Sender
	mu            sync.Mutex
	wg            sync.WaitGroup
	stopCleanup   context.CancelFunc
}

// NewBot creates a send-only bot; it never polls for updates.
func NewBot(cfg *config.TelegramConfig) (*telebot.Bot, error) {
	bot, err := telebot.NewBot(telebot.Settings{
		Token:   cfg.BotToken,
		Offline: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return bot, nil
}

func NewTelegramRateLimiter(cfg *config.TelegramConfig, log *logger.Logger, sender Sender) *TelegramRateLimiter {
	perSecond := cfg.MaxGlobalRequestPerSecond
	if perSecond <= 0 {
		perSecond = 30
	}
	return &TelegramRateLimiter{
		cfg:           cfg,
		log:           log,
		sender:        sender,
		globalLimiter: rate.NewLimiter(rate.Limit(perSecond), perSecond),
		chatLimiters:  make(map[int64]*chatLimiterEntry),
	}
}

// SendMessage delivers text to chatID once both limiters allow it.
func (t *TelegramRateLimiter) SendMessage(ctx context.Context, chatID int64, message string, opts ...interface{}) error {
	if err := t.checkRateLimit(ctx, chatID); err != nil {
		return err
	}
	if _, err := t.sender.Send(chatRecipient(chatID), message, opts...); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}

// SendAlert posts a log alert to the configured chat.
func (t *TelegramRateLimiter) SendAlert(ctx context.Context, message string) error {
	return t.SendMessage(ctx, t.cfg.ChatID, message, telebot.ModeMarkdown)
}

func (r *TelegramRateLimiter) getChatLimiter(chatID int64) *chatLimiterEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, exists := r.chatLimiters[chatID]; exists {
		entry.lastAccess = time.Now()
		return entry
	}

	entry := &chatLimiterEntry{
		limiter:    rate.NewLimiter(rate.Limit(chatMessagesPerSecond), chatMessagesPerSecond),
		lastAccess: time.Now(),
	}
	r.chatLimiters[chatID] = entry
	return entry
}

func (r *TelegramRateLimiter) checkRateLimit(ctx context.Context, chatID int64) error {
	chatLimiter := r.getChatLimiter(chatID)

	if err := r.globalLimiter.Wait(ctx); err != nil {
		r.log.ErrorContext(ctx, "Failed to wait for global rate limit", logger.ErrorField(err))
		return err
	}
	if err := chatLimiter.limiter.Wait(ctx); err != nil {
		r.log.ErrorContext(ctx, "Failed to wait for chat rate limit", logger.ErrorField(err))
		return err
	}
	return nil
}

// StartCleanupExpired evicts idle per-chat limiters until ctx is done or
// StopCleanupExpired is called.
func (r *TelegramRateLimiter) StartCleanupExpired(ctx context.Context) {
	ctx, r.stopCleanup = context.WithCancel(ctx)
	r.wg.Add(1)
	utils.GoSafe(r.log, func() {
		defer r.wg.Done()
		ticker := time.NewTicker(chatLimiterCleanupEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				r.log.Info("Received signal to stop Telegram rate limiter cleanup expired")
				return
			case <-ticker.C:
				r.mu.Lock()
				now := time.Now()
				for chatID, entry := range r.chatLimiters {
					if now.Sub(entry.lastAccess) > chatLimiterExpire {
						delete(r.chatLimiters, chatID)
					}
				}
				r.mu.Unlock()
			}
		}
	})
}

func (r *TelegramRateLimiter) StopCleanupExpired() {
	if r.stopCleanup != nil {
		r.stopCleanup()
	}
	r.wg.Wait()
	r.log.Info("Telegram rate limiter stopped")
}

type chatRecipient int64

func (c chatRecipient) Recipient() string {
	return strconv.FormatInt(int64(c), 10)
}
