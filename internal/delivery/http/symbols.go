package http

import (
	"net/http"

	"trading-dashboard/internal/dto"
	"trading-dashboard/internal/model"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupSymbols(base *echo.Group) {
	symbols := base.Group("/symbols")
	{
		symbols.GET("", h.listSymbols)
		symbols.POST("", h.createSymbol)
		symbols.GET("/stats", h.symbolStats)
		symbols.GET("/search", h.searchSymbols)
		symbols.POST("/import", h.importSymbols)
		symbols.GET("/:symbol", h.getSymbol)
		symbols.PUT("/:symbol", h.updateSymbol)
		symbols.DELETE("/:symbol", h.deleteSymbol)
		symbols.POST("/:symbol/favorite", h.toggleFavorite)
		symbols.POST("/:symbol/refresh", h.refreshSymbol)
	}
}

func (h *HttpAPIHandler) listSymbols(c echo.Context) error {
	query := new(dto.SymbolListQuery)
	if err := h.bindAndValidate(c, query); err != nil {
		return h.respondError(c, err)
	}

	rows, total, err := h.service.SymbolService.ListSymbols(c.Request().Context(), model.SymbolFilter{
		Query:         query.Query,
		Category:      query.Category,
		Subcategory:   query.Subcategory,
		Status:        query.Status,
		FavoritesOnly: query.FavoritesOnly,
		WithDataOnly:  query.WithDataOnly,
		Limit:         query.Limit,
		Offset:        query.Offset,
	})
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("OK", dto.PagedData{Items: rows, Total: total}))
}

func (h *HttpAPIHandler) createSymbol(c echo.Context) error {
	req := new(dto.CreateSymbolRequest)
	if err := h.bindAndValidate(c, req); err != nil {
		return h.respondError(c, err)
	}

	symbol, err := h.service.SymbolService.CreateSymbol(c.Request().Context(), *req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusCreated, dto.NewBaseResponse(http.StatusCreated, "Symbol created", symbol))
}

func (h *HttpAPIHandler) symbolStats(c echo.Context) error {
	stats, err := h.service.SymbolService.GetStats(c.Request().Context())
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("OK", stats))
}

func (h *HttpAPIHandler) searchSymbols(c echo.Context) error {
	query := new(dto.SymbolSearchQuery)
	if err := h.bindAndValidate(c, query); err != nil {
		return h.respondError(c, err)
	}

	rows, err := h.service.SymbolService.SearchSymbols(c.Request().Context(), query.Query, query.Limit)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("OK", rows))
}

func (h *HttpAPIHandler) importSymbols(c echo.Context) error {
	result, err := h.service.SymbolService.ImportSymbols(c.Request().Context())
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Import completed", result))
}

func (h *HttpAPIHandler) getSymbol(c echo.Context) error {
	symbol, err := h.service.SymbolService.GetSymbol(c.Request().Context(), c.Param("symbol"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("OK", symbol))
}

func (h *HttpAPIHandler) updateSymbol(c echo.Context) error {
	req := new(dto.UpdateSymbolRequest)
	if err := h.bindAndValidate(c, req); err != nil {
		return h.respondError(c, err)
	}

	symbol, err := h.service.SymbolService.UpdateSymbol(c.Request().Context(), c.Param("symbol"), *req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Symbol updated", symbol))
}

func (h *HttpAPIHandler) deleteSymbol(c echo.Context) error {
	if err := h.service.SymbolService.DeleteSymbol(c.Request().Context(), c.Param("symbol")); err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Symbol deleted", nil))
}

func (h *HttpAPIHandler) toggleFavorite(c echo.Context) error {
	symbol, err := h.service.SymbolService.ToggleFavorite(c.Request().Context(), c.Param("symbol"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Favorite toggled", symbol))
}

func (h *HttpAPIHandler) refreshSymbol(c echo.Context) error {
	symbol, err := h.service.SymbolService.RefreshSymbol(c.Request().Context(), c.Param("symbol"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Symbol refreshed", symbol))
}
