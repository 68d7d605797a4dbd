package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"trading-dashboard/config"
	"trading-dashboard/internal/apperror"
	"trading-dashboard/internal/dto"
	"trading-dashboard/pkg/httpclient"
	"trading-dashboard/pkg/logger"

	"golang.org/x/time/rate"
)

// KITradingRepository talks to the recommendation and forecast service.
type KITradingRepository interface {
	GetRecommendation(ctx context.Context, param dto.RecommendationParam) (*dto.Recommendation, error)
	GetForecastModels(ctx context.Context) ([]dto.ForecastModel, error)
	Health(ctx context.Context) error
}

type kiTradingRepository struct {
	httpClient     httpclient.HTTPClient
	cfg            *config.Config
	logger         *logger.Logger
	requestLimiter *rate.Limiter
}

func NewKITradingRepository(cfg *config.Config, log *logger.Logger) KITradingRepository {
	return newKITradingRepository(cfg, log, httpclient.New(cfg.KITrading.BaseURL, cfg.KITrading.Timeout,
		httpclient.WithUserAgent("trading-dashboard/1.0"),
		httpclient.WithBearerToken(cfg.KITrading.APIKey),
	))
}

func newKITradingRepository(cfg *config.Config, log *logger.Logger, client httpclient.HTTPClient) *kiTradingRepository {
	perRequest := time.Minute / time.Duration(cfg.KITrading.MaxRequestPerMinute)
	return &kiTradingRepository{
		httpClient:     client,
		cfg:            cfg,
		logger:         log,
		requestLimiter: rate.NewLimiter(rate.Every(perRequest), 1),
	}
}

func (r *kiTradingRepository) wait(ctx context.Context) error {
	if r.requestLimiter.Tokens() < 1 {
		r.logger.DebugContext(ctx, "KITrading request limit reached, waiting",
			logger.IntField("max_request_per_minute", r.cfg.KITrading.MaxRequestPerMinute),
		)
	}
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return apperror.Upstream(err, "kitrading rate limiter")
	}
	return nil
}

func (r *kiTradingRepository) GetRecommendation(ctx context.Context, param dto.RecommendationParam) (*dto.Recommendation, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}

	queryParams := map[string]string{
		"use_llm": strconv.FormatBool(param.UseLLM),
	}
	if param.StrategyID != "" {
		queryParams["strategy_id"] = param.StrategyID
	}

	var data map[string]interface{}
	endpoint := "/recommendation/" + url.PathEscape(param.Symbol)
	resp, err := r.httpClient.Get(ctx, endpoint, queryParams, nil, &data)
	if err != nil {
		return nil, apperror.Upstream(err, "failed to fetch recommendation for %s", param.Symbol)
	}

	if !resp.IsSuccess() {
		r.logger.WarnContext(ctx, "KITrading returned non-OK status",
			logger.StringField("symbol", param.Symbol),
			logger.IntField("status_code", resp.StatusCode),
			logger.StringField("body", truncateBody(resp.Body)))
		return nil, apperror.Upstream(nil, "recommendation service returned status %d for %s", resp.StatusCode, param.Symbol)
	}

	if data == nil {
		if err := json.Unmarshal(resp.Body, &data); err != nil || data == nil {
			return nil, apperror.Upstream(err, "unreadable recommendation for %s", param.Symbol)
		}
	}

	rec := dto.NormalizeRecommendation(param.Symbol, data)
	return &rec, nil
}

// GetForecastModels accepts either a bare list or {"models": [...]}; entries
// may be identifiers or objects carrying a symbol field.
func (r *kiTradingRepository) GetForecastModels(ctx context.Context) ([]dto.ForecastModel, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}

	resp, err := r.httpClient.Get(ctx, "/forecast/models", nil, nil, nil)
	if err != nil {
		return nil, apperror.Upstream(err, "failed to fetch forecast models")
	}
	if !resp.IsSuccess() {
		return nil, apperror.Upstream(nil, "forecast models returned status %d", resp.StatusCode)
	}

	var raw interface{}
	if err := json.Unmarshal(resp.Body, &raw); err != nil {
		return nil, apperror.Upstream(err, "unreadable forecast models")
	}

	var entries []interface{}
	switch v := raw.(type) {
	case []interface{}:
		entries = v
	case map[string]interface{}:
		entries, _ = v["models"].([]interface{})
	}

	models := make([]dto.ForecastModel, 0, len(entries))
	for _, entry := range entries {
		switch e := entry.(type) {
		case string:
			models = append(models, dto.ForecastModel{Symbol: strings.ToUpper(e)})
		case map[string]interface{}:
			symbol, _ := e["symbol"].(string)
			if symbol == "" {
				continue
			}
			modelType, _ := e["model_type"].(string)
			models = append(models, dto.ForecastModel{Symbol: strings.ToUpper(symbol), ModelType: modelType})
		}
	}
	return models, nil
}

func (r *kiTradingRepository) Health(ctx context.Context) error {
	resp, err := r.httpClient.Get(ctx, "/health", nil, nil, nil)
	if err != nil {
		return apperror.Upstream(err, "kitrading health check failed")
	}
	if !resp.IsSuccess() {
		return apperror.Upstream(nil, "kitrading health returned status %d", resp.StatusCode)
	}
	return nil
}

func truncateBody(body []byte) string {
	const max = 512
	if len(body) > max {
		return fmt.Sprintf("%s...", body[:max])
	}
	return string(body)
}
