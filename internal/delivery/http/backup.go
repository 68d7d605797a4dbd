package http

import (
	"fmt"
	"net/http"

	"trading-dashboard/internal/dto"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupBackup(base *echo.Group) {
	backup := base.Group("/backup")
	{
		backup.GET("/export", h.exportBackup)
		backup.POST("/restore", h.restoreBackup)
	}
}

func (h *HttpAPIHandler) exportBackup(c echo.Context) error {
	doc, err := h.service.BackupService.CreateBackup(c.Request().Context())
	if err != nil {
		return h.respondError(c, err)
	}

	filename := fmt.Sprintf("trading-dashboard-backup-%s.json", doc.Metadata.CreatedAt.Format("20060102-150405"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.JSON(http.StatusOK, doc)
}

func (h *HttpAPIHandler) restoreBackup(c echo.Context) error {
	req := new(dto.RestoreRequest)
	if err := h.bindAndValidate(c, req); err != nil {
		return h.respondError(c, err)
	}

	result, err := h.service.BackupService.RestoreBackup(c.Request().Context(), *req)
	if err != nil {
		return h.respondError(c, err)
	}
	if !result.Success {
		return c.JSON(http.StatusMultiStatus, dto.NewBaseResponse(http.StatusMultiStatus, "Backup restored with errors", result))
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Backup restored", result))
}
