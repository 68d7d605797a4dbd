package cmd

import (
	"context"
	"database/sql"
	"fmt"

	"trading-dashboard/config"
	httpDelivery "trading-dashboard/internal/delivery/http"
	"trading-dashboard/internal/repository"
	"trading-dashboard/internal/service"
	"trading-dashboard/pkg/cache"
	"trading-dashboard/pkg/logger"
	"trading-dashboard/pkg/middleware"
	"trading-dashboard/pkg/postgres"
	"trading-dashboard/pkg/secrets"
	"trading-dashboard/pkg/telegram"
	"trading-dashboard/pkg/wshub"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap/zapcore"
)

type AppDependency struct {
	db        *postgres.DB
	tsDB      *sql.DB
	cfg       *config.Config
	log       *logger.Logger
	validator *goValidator.Validate
	echo      *echo.Echo
	cache     cache.Cache
	telegram  *telegram.TelegramRateLimiter
	hub       *wshub.Hub
}

// loadConfig reads the configuration and swaps SSM parameter names for the
// passwords they hold.
func loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if secrets.NeedsResolve(cfg) {
		resolver, err := secrets.NewSSMResolver(ctx)
		if err != nil {
			return nil, err
		}
		if err := resolver.ResolvePasswords(ctx, cfg); err != nil {
			return nil, fmt.Errorf("failed to resolve database passwords: %w", err)
		}
	}
	return cfg, nil
}

func NewAppDependency(ctx context.Context) (*AppDependency, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	var rateLimiter *telegram.TelegramRateLimiter
	if cfg.Telegram.Enabled {
		bot, err := telegram.NewBot(&cfg.Telegram)
		if err != nil {
			log.Error("Failed to create telegram bot", logger.ErrorField(err))
			return nil, err
		}
		rateLimiter = telegram.NewTelegramRateLimiter(&cfg.Telegram, log, bot)
		rateLimiter.StartCleanupExpired(ctx)
		log = log.WithAlertSender(rateLimiter, zapcore.ErrorLevel)
	}

	db, err := postgres.NewDB(cfg.DB, log)
	if err != nil {
		log.Error("Failed to connect to database", logger.ErrorField(err))
		return nil, err
	}

	tsDB, err := postgres.OpenTimeSeries(ctx, cfg.TimeSeries, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &AppDependency{
		cfg:       cfg,
		log:       log,
		validator: httpDelivery.NewValidator(),
		db:        db,
		tsDB:      tsDB,
		echo:      newEcho(cfg, log),
		cache:     cache.NewCache(cfg.Cache.DefaultExpiration, cfg.Cache.CleanupInterval),
		telegram:  rateLimiter,
		hub:       wshub.New(log, cfg.API.AllowedOrigins),
	}, nil
}

func newEcho(cfg *config.Config, log *logger.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{
		AllowOrigins: cfg.API.AllowedOrigins,
	}))
	e.Use(middleware.NewRateLimiterMiddleware(cfg.API.RateLimit, cfg.API.RateBurst))
	e.Use(middleware.NewRequestLogger(func(c echo.Context, v echoMiddleware.RequestLoggerValues) {
		fields := []zapcore.Field{
			logger.StringField("method", v.Method),
			logger.StringField("uri", v.URI),
			logger.IntField("status", v.Status),
			logger.StringField("latency", v.Latency.String()),
			logger.StringField("remote_ip", v.RemoteIP),
		}
		if v.Error != nil {
			log.WarnContext(c.Request().Context(), "Request failed", append(fields, logger.ErrorField(v.Error))...)
			return
		}
		log.DebugContext(c.Request().Context(), "Request handled", fields...)
	}))
	return e
}

// Repository builds the repositories on top of the opened stores.
func (d *AppDependency) Repository() *repository.Repository {
	return repository.NewRepository(d.cfg, d.cache, d.db.DB, d.tsDB, d.log)
}

// Services wires the service layer. Signals go to telegram only when it is enabled.
func (d *AppDependency) Services(repo *repository.Repository) *service.Service {
	var sender telegram.MessageSender
	if d.telegram != nil {
		sender = d.telegram
	}
	return service.NewService(d.cfg, d.log, repo, d.cache, sender, d.hub)
}

// HealthChecks lists the dependencies reported by /api/v1/health.
func (d *AppDependency) HealthChecks(repo *repository.Repository) map[string]httpDelivery.HealthCheck {
	return map[string]httpDelivery.HealthCheck{
		"database":   d.db.Ping,
		"timeseries": repo.TimeSeriesRepo.Ping,
		"kitrading":  repo.KITradingRepo.Health,
	}
}

func (d *AppDependency) Close() error {
	d.log.Info("Closing app dependency")
	if d.hub != nil {
		d.hub.Close()
	}
	if d.telegram != nil {
		d.telegram.StopCleanupExpired()
	}
	if d.tsDB != nil {
		if err := d.tsDB.Close(); err != nil {
			d.log.Warn("Failed to close time-series store", logger.ErrorField(err))
		}
	}
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}
