package http

import (
	"net/http"
	"strconv"

	"trading-dashboard/internal/dto"
	"trading-dashboard/pkg/logger"
	"trading-dashboard/pkg/utils"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupScheduler(base *echo.Group) {
	scheduler := base.Group("/scheduler")
	{
		scheduler.GET("/analyses", h.listAnalyses)
		scheduler.GET("/analyses/:symbol", h.getAnalysis)
		scheduler.GET("/status", h.schedulerStatus)
		scheduler.GET("/history", h.schedulerHistory)
		scheduler.POST("/run", h.runNow)
		scheduler.POST("/start", h.startScheduler)
		scheduler.POST("/stop", h.stopScheduler)
		scheduler.PUT("/interval", h.setInterval)
		scheduler.GET("/ws", h.schedulerWS)
	}
}

func (h *HttpAPIHandler) listAnalyses(c echo.Context) error {
	rows, err := h.service.SchedulerService.Results(c.Request().Context())
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("OK", rows))
}

func (h *HttpAPIHandler) getAnalysis(c echo.Context) error {
	row, err := h.service.SchedulerService.Result(c.Request().Context(), c.Param("symbol"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("OK", row))
}

func (h *HttpAPIHandler) schedulerStatus(c echo.Context) error {
	status, err := h.service.SchedulerService.Status(c.Request().Context())
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("OK", status))
}

func (h *HttpAPIHandler) schedulerHistory(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return h.respondError(c, errBadRequest("limit must be a non-negative integer"))
		}
		limit = n
	}

	runs, err := h.service.SchedulerService.History(c.Request().Context(), limit)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("OK", runs))
}

func (h *HttpAPIHandler) runNow(c echo.Context) error {
	outcome, err := h.service.SchedulerService.RunNow(c.Request().Context())
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Analysis run completed", outcome))
}

func (h *HttpAPIHandler) startScheduler(c echo.Context) error {
	status, err := h.service.SchedulerService.Start(c.Request().Context())
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Scheduler started", status))
}

func (h *HttpAPIHandler) stopScheduler(c echo.Context) error {
	status, err := h.service.SchedulerService.Stop(c.Request().Context())
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Scheduler stopped", status))
}

func (h *HttpAPIHandler) setInterval(c echo.Context) error {
	req := new(dto.SetIntervalRequest)
	if err := h.bindAndValidate(c, req); err != nil {
		return h.respondError(c, err)
	}

	status, err := h.service.SchedulerService.SetInterval(c.Request().Context(), req.Minutes)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Interval updated", status))
}

// schedulerWS streams scheduler events, starting with the current status.
func (h *HttpAPIHandler) schedulerWS(c echo.Context) error {
	ctx := c.Request().Context()
	status, err := h.service.SchedulerService.Status(ctx)
	if err != nil {
		return h.respondError(c, err)
	}
	greeting := dto.SchedulerEvent{Type: dto.EventStatusChanged, Status: status, Timestamp: utils.TimeNowUTC()}

	if err := h.hub.ServeWS(c.Response(), c.Request(), greeting); err != nil {
		// the upgrader has already written the error response
		h.log.WarnContext(ctx, "Websocket upgrade failed", logger.ErrorField(err))
	}
	return nil
}
