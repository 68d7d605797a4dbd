package http

import (
	"context"
	"net/http"
	"sort"
	"time"

	"trading-dashboard/internal/dto"

	"github.com/labstack/echo/v4"
)

const healthCheckTimeout = 5 * time.Second

type healthStatus struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func (h *HttpAPIHandler) SetupHealth(base *echo.Group) {
	base.GET("/health", h.health)
}

// health reports ok only when every dependency answers. A failing
// dependency degrades the status without failing the request.
func (h *HttpAPIHandler) health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthCheckTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	result := healthStatus{Status: "ok", Checks: map[string]string{}}
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			result.Status = "degraded"
			result.Checks[name] = err.Error()
			continue
		}
		result.Checks[name] = "ok"
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse(result.Status, result))
}
