package logger

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"trading-dashboard/pkg/common"

	"go.uber.org/zap/zapcore"
)

const alertSendTimeout = 10 * time.Second

// AlertSender delivers an already formatted alert text somewhere a human reads it.
type AlertSender interface {
	SendAlert(ctx context.Context, message string) error
}

type AlertCore struct {
	core     zapcore.Core
	sender   AlertSender
	minLevel zapcore.Level
}

func NewAlertCore(core zapcore.Core, sender AlertSender, minLevel zapcore.Level) *AlertCore {
	return &AlertCore{core: core, sender: sender, minLevel: minLevel}
}

func (a *AlertCore) Enabled(lvl zapcore.Level) bool {
	return a.core.Enabled(lvl)
}

func (a *AlertCore) With(fields []zapcore.Field) zapcore.Core {
	return &AlertCore{
		core:     a.core.With(fields),
		sender:   a.sender,
		minLevel: a.minLevel,
	}
}

func (a *AlertCore) Check(entry zapcore.Entry, checkedEntry *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if a.Enabled(entry.Level) {
		return checkedEntry.AddCore(entry, a)
	}
	return checkedEntry
}

func (a *AlertCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	shouldSend := false
	for _, f := range fields {
		if f.Key == common.KEY_LOG_HOOK_SEND_ALERT && f.Type == zapcore.BoolType && f.Integer == 1 {
			shouldSend = true
			break
		}
	}
	if a.sender != nil && entry.Level >= a.minLevel && shouldSend {
		go a.sendAlert(entry, fields) // async so logging never blocks on the network
	}
	return a.core.Write(entry, fields)
}

func (a *AlertCore) Sync() error {
	return a.core.Sync()
}

func (a *AlertCore) sendAlert(entry zapcore.Entry, fields []zapcore.Field) {
	ctx, cancel := context.WithTimeout(context.Background(), alertSendTimeout)
	defer cancel()
	_ = a.sender.SendAlert(ctx, FormatAlert(entry, fields))
}

// FormatAlert renders an entry and its fields as a Markdown message.
func FormatAlert(entry zapcore.Entry, fields []zapcore.Field) string {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range fields {
		if f.Key == common.KEY_LOG_HOOK_SEND_ALERT {
			continue
		}
		f.AddTo(enc)
	}

	keys := make([]string, 0, len(enc.Fields))
	for k := range enc.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var fieldStr strings.Builder
	for _, k := range keys {
		fieldStr.WriteString(fmt.Sprintf("• %s: %v\n", k, enc.Fields[k]))
	}

	return fmt.Sprintf(
		"🚨 *%s Alert*\n\n*Message:* %s\n\n*Fields:*\n%s\n*Time:* %s",
		entry.Level.CapitalString(),
		entry.Message,
		fieldStr.String(),
		entry.Time.UTC().Format("2006-01-02 15:04:05 UTC"),
	)
}
