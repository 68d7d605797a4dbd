package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"trading-dashboard/config"
	"trading-dashboard/internal/model"
	"trading-dashboard/internal/strategy"
	"trading-dashboard/pkg/cache"
	"trading-dashboard/pkg/common"
	"trading-dashboard/pkg/logger"
	"trading-dashboard/pkg/telegram"

	"gopkg.in/telebot.v3"
)

type SendSignalService interface {
	strategy.SignalNotifier
}

type sendSignalService struct {
	cfg           *config.Config
	log           *logger.Logger
	telegram      telegram.MessageSender
	inmemoryCache cache.Cache
}

// NewSendSignalService returns a notifier that posts directional signals to
// the configured chat. With telegram disabled or no sender it does nothing.
func NewSendSignalService(
	cfg *config.Config,
	log *logger.Logger,
	telegram telegram.MessageSender,
	inmemoryCache cache.Cache,
) SendSignalService {
	return &sendSignalService{
		cfg:           cfg,
		log:           log,
		telegram:      telegram,
		inmemoryCache: inmemoryCache,
	}
}

func (s *sendSignalService) NotifySignals(ctx context.Context, signals []model.ScheduledAnalysis) error {
	if !s.cfg.Telegram.Enabled || s.telegram == nil || s.cfg.Telegram.ChatID == 0 {
		return nil
	}

	fresh := make([]telegram.Signal, 0, len(signals))
	for _, sig := range signals {
		if !sig.IsDirectional() {
			continue
		}
		key := fmt.Sprintf(common.KEY_LAST_SEND_SIGNAL, s.GenerateHashIdentifier(sig))
		if s.inmemoryCache != nil {
			if _, alreadySent := s.inmemoryCache.Get(key); alreadySent {
				s.log.DebugContext(ctx, "Signal already sent", logger.StringField("symbol", sig.Symbol))
				continue
			}
			s.inmemoryCache.Set(key, true, s.cfg.Telegram.SignalCacheDuration)
		}
		fresh = append(fresh, telegram.Signal{
			Symbol:          sig.Symbol,
			Direction:       sig.Direction,
			ConfidenceScore: sig.ConfidenceScore,
			EntryPrice:      sig.EntryPrice,
			StopLoss:        sig.StopLoss,
			TakeProfit:      sig.TakeProfit1,
			AnalyzedAt:      sig.AnalyzedAt,
		})
	}

	if len(fresh) == 0 {
		return nil
	}
	sort.SliceStable(fresh, func(i, j int) bool {
		return fresh[i].ConfidenceScore > fresh[j].ConfidenceScore
	})

	message := telegram.FormatSignalsMessage(fresh)
	if err := s.telegram.SendMessage(ctx, s.cfg.Telegram.ChatID, message, telebot.ModeMarkdownV2); err != nil {
		s.log.ErrorContext(ctx, "Failed to send signals", logger.ErrorField(err), logger.IntField("signals", len(fresh)))
		return err
	}
	s.log.InfoContext(ctx, "Signals sent", logger.IntField("signals", len(fresh)))
	return nil
}

// GenerateHashIdentifier identifies a signal by symbol, direction and levels,
// so an unchanged recommendation is not sent twice.
func (s *sendSignalService) GenerateHashIdentifier(sig model.ScheduledAnalysis) string {
	parts := []string{
		sig.Symbol,
		sig.Direction,
		formatLevel(sig.EntryPrice),
		formatLevel(sig.StopLoss),
		formatLevel(sig.TakeProfit1),
	}

	hashInput := strings.Join(parts, "|")
	hash := sha256.Sum256([]byte(hashInput))
	return hex.EncodeToString(hash[:])
}

func formatLevel(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%f", *v)
}
