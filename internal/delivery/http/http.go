package http

import (
	"context"

	"trading-dashboard/internal/service"
	"trading-dashboard/pkg/logger"
	"trading-dashboard/pkg/wshub"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

type HttpAPIHandler struct {
	echo      *echo.Echo
	validator *goValidator.Validate
	service   *service.Service
	log       *logger.Logger
	hub       *wshub.Hub
	checks    map[string]HealthCheck
}

func NewHttpAPIHandler(
	ctx context.Context,
	echo *echo.Echo,
	validator *goValidator.Validate,
	service *service.Service,
	log *logger.Logger,
	hub *wshub.Hub,
	checks map[string]HealthCheck,
) *HttpAPIHandler {
	return &HttpAPIHandler{
		echo:      echo,
		validator: validator,
		service:   service,
		log:       log,
		hub:       hub,
		checks:    checks,
	}
}

func (h *HttpAPIHandler) SetupRoutes() {
	base := h.echo.Group("/api/v1")
	h.SetupSymbols(base)
	h.SetupScheduler(base)
	h.SetupBackup(base)
	h.SetupHealth(base)
}

// bindAndValidate decodes the request into req and runs struct validation.
func (h *HttpAPIHandler) bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return errBadRequest("invalid request: " + err.Error())
	}
	if err := h.validator.Struct(req); err != nil {
		return errBadRequest(err.Error())
	}
	return nil
}
