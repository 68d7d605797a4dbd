package dto

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"trading-dashboard/internal/model"
)

// Recommendation is the recommendation service's answer normalised to one shape.
type Recommendation struct {
	Symbol          string                 `json:"symbol"`
	Direction       string                 `json:"direction"`
	ConfidenceScore int                    `json:"confidence_score"`
	EntryPrice      *float64               `json:"entry_price"`
	StopLoss        *float64               `json:"stop_loss"`
	TakeProfit1     *float64               `json:"take_profit_1"`
	TakeProfit2     *float64               `json:"take_profit_2"`
	TakeProfit3     *float64               `json:"take_profit_3"`
	RiskRewardRatio *float64               `json:"risk_reward_ratio"`
	Rationale       string                 `json:"rationale"`
	KeyLevels       string                 `json:"key_levels"`
	Risks           []string               `json:"risks"`
	Indicators      map[string]interface{} `json:"indicators"`
}

type RecommendationParam struct {
	Symbol     string
	UseLLM     bool
	StrategyID string
}

type ForecastModel struct {
	Symbol    string `json:"symbol"`
	ModelType string `json:"model_type"`
}

var (
	rsiTextRegex     = regexp.MustCompile(`(?i)RSI\s*(?:bei|at|:)?\s*([\d.]+)`)
	trendTextRegex   = regexp.MustCompile(`(?i)Trend:\s*(\w+)`)
	bbUpperTextRegex = regexp.MustCompile(`(?i)BB Upper:\s*([\d.]+)`)
	bbLowerTextRegex = regexp.MustCompile(`(?i)BB Lower:\s*([\d.]+)`)
	sma200TextRegex  = regexp.MustCompile(`(?i)SMA200:\s*([\d.]+)`)
)

// indicatorFields maps display names to the raw keys the service has used for them.
var indicatorFields = []struct {
	name string
	keys []string
}{
	{"RSI", []string{"rsi", "RSI"}},
	{"MACD", []string{"macd", "MACD"}},
	{"SMA 20", []string{"sma_20", "SMA_20"}},
	{"SMA 50", []string{"sma_50", "SMA_50"}},
	{"EMA 12", []string{"ema_12", "EMA_12"}},
	{"EMA 26", []string{"ema_26", "EMA_26"}},
	{"ATR", []string{"atr", "ATR"}},
	{"Volume", []string{"volume"}},
	{"Trend", []string{"trend"}},
}

// NormalizeRecommendation maps the loosely typed payload of GET /recommendation.
// direction falls back to signal; confidence_score falls back to the textual
// confidence (high/medium/low); key_levels may be a list; indicators may be
// missing and are then rebuilt from individual fields or the trend text.
func NormalizeRecommendation(symbol string, data map[string]interface{}) Recommendation {
	rec := Recommendation{
		Symbol:          symbol,
		Direction:       normalizeDirection(firstString(data, "direction", "signal")),
		ConfidenceScore: normalizeConfidence(data),
		EntryPrice:      floatPtr(data["entry_price"]),
		StopLoss:        floatPtr(data["stop_loss"]),
		TakeProfit1:     floatPtr(data["take_profit_1"]),
		TakeProfit2:     floatPtr(data["take_profit_2"]),
		TakeProfit3:     floatPtr(data["take_profit_3"]),
		RiskRewardRatio: floatPtr(data["risk_reward_ratio"]),
		Rationale:       firstString(data, "rationale", "reasoning", "trade_rationale"),
		KeyLevels:       normalizeKeyLevels(data["key_levels"]),
		Risks:           stringList(data["risks"]),
		Indicators:      normalizeIndicators(data),
	}
	return rec
}

func normalizeDirection(direction string) string {
	direction = strings.ToUpper(strings.TrimSpace(direction))
	switch direction {
	case model.DirectionLong, "BUY", "STRONG_BUY":
		return model.DirectionLong
	case model.DirectionShort, "SELL", "STRONG_SELL":
		return model.DirectionShort
	default:
		return model.DirectionNeutral
	}
}

func normalizeConfidence(data map[string]interface{}) int {
	if score := floatPtr(data["confidence_score"]); score != nil {
		return clampConfidence(int(*score))
	}

	switch v := data["confidence"].(type) {
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "high":
			return ConfidenceHigh
		case "medium":
			return ConfidenceMedium
		case "low":
			return ConfidenceLow
		default:
			return ConfidenceDefault
		}
	case float64:
		return clampConfidence(int(v))
	case nil:
		// absent textual confidence reads as "medium"
		return ConfidenceMedium
	default:
		return ConfidenceDefault
	}
}

func clampConfidence(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func normalizeKeyLevels(v interface{}) string {
	switch levels := v.(type) {
	case string:
		return levels
	case []interface{}:
		parts := make([]string, 0, len(levels))
		for _, l := range levels {
			parts = append(parts, fmt.Sprint(l))
		}
		return strings.Join(parts, ", ")
	default:
		return ""
	}
}

func normalizeIndicators(data map[string]interface{}) map[string]interface{} {
	for _, key := range []string{"indicators", "technical_indicators"} {
		if m, ok := data[key].(map[string]interface{}); ok && len(m) > 0 {
			return m
		}
	}

	indicators := map[string]interface{}{}
	for _, f := range indicatorFields {
		for _, k := range f.keys {
			if v, ok := data[k]; ok && v != nil {
				indicators[f.name] = v
				break
			}
		}
	}
	if len(indicators) > 0 {
		return indicators
	}

	trendText, _ := data["trend_analysis"].(string)
	keyLevelsText, _ := data["key_levels"].(string)

	if v, ok := matchFloat(rsiTextRegex, trendText); ok {
		indicators["RSI"] = v
	}
	if m := trendTextRegex.FindStringSubmatch(trendText); m != nil {
		indicators["Trend"] = capitalize(m[1])
	}
	if v, ok := matchFloat(bbUpperTextRegex, keyLevelsText); ok {
		indicators["BB Upper"] = v
	}
	if v, ok := matchFloat(bbLowerTextRegex, keyLevelsText); ok {
		indicators["BB Lower"] = v
	}
	if v, ok := matchFloat(sma200TextRegex, keyLevelsText); ok {
		indicators["SMA 200"] = v
	}
	if signal, ok := data["signal"].(string); ok && signal != "" {
		indicators["Signal"] = strings.ToUpper(signal)
	}
	if timeframe, ok := data["timeframe"].(string); ok && timeframe != "" {
		indicators["Timeframe"] = timeframe
	}

	if len(indicators) == 0 {
		return nil
	}
	return indicators
}

func matchFloat(re *regexp.Regexp, text string) (float64, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimRight(m[1], "."), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

func firstString(data map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if s, ok := data[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func floatPtr(v interface{}) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case int:
		f := float64(n)
		return &f
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}

func stringList(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, fmt.Sprint(item))
	}
	return out
}
