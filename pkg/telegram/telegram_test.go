package telegram

import (
	"context"
	"testing"
	"time"

	"trading-dashboard/config"
	"trading-dashboard/pkg/logger"
	"trading-dashboard/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v3"
)

type fakeSender struct {
	to   []string
	what []interface{}
}

func (f *fakeSender) Send(to telebot.Recipient, what interface{}, _ ...interface{}) (*telebot.Message, error) {
	f.to = append(f.to, to.Recipient())
	f.what = append(f.what, what)
	return &telebot.Message{}, nil
}

func TestTelegramRateLimiter_SendAlert(t *testing.T) {
	sender := &fakeSender{}
	limiter := NewTelegramRateLimiter(&config.TelegramConfig{ChatID: -1001234, MaxGlobalRequestPerSecond: 30}, logger.NewNop(), sender)

	require.NoError(t, limiter.SendAlert(context.Background(), "*Error Alert*"))
	assert.Equal(t, []string{"-1001234"}, sender.to)
	assert.Equal(t, []interface{}{"*Error Alert*"}, sender.what)
}

func TestTelegramRateLimiter_RespectsContext(t *testing.T) {
	sender := &fakeSender{}
	limiter := NewTelegramRateLimiter(&config.TelegramConfig{ChatID: 1, MaxGlobalRequestPerSecond: 30}, logger.NewNop(), sender)

	require.NoError(t, limiter.SendMessage(context.Background(), 1, "first"))

	// the per-chat bucket is empty now and the deadline is shorter than its refill
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.Error(t, limiter.SendMessage(ctx, 1, "second"))
	assert.Len(t, sender.what, 1)
}

func TestFormatSignalsMessage(t *testing.T) {
	msg := FormatSignalsMessage([]Signal{
		{Symbol: "EURUSD", Direction: "LONG", ConfidenceScore: 82, EntryPrice: utils.ToPointer(1.085), StopLoss: utils.ToPointer(1.08), AnalyzedAt: time.Date(2025, 1, 2, 3, 4, 0, 0, time.UTC)},
		{Symbol: "XAU_USD", Direction: "SHORT", ConfidenceScore: 75},
	})

	assert.Contains(t, msg, "🟢 *EURUSD* LONG \\(82%\\)")
	assert.Contains(t, msg, "Entry: 1\\.085")
	assert.Contains(t, msg, "SL: 1\\.08")
	assert.Contains(t, msg, "🔴 *XAU\\_USD* SHORT \\(75%\\)")
	assert.NotContains(t, msg, "TP:")
}
