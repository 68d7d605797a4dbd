package http

import (
	"net/http"

	"trading-dashboard/internal/apperror"
	"trading-dashboard/internal/dto"
	"trading-dashboard/pkg/logger"

	"github.com/labstack/echo/v4"
)

var kindStatus = map[apperror.Kind]int{
	apperror.KindValidation:          http.StatusBadRequest,
	apperror.KindDuplicate:           http.StatusConflict,
	apperror.KindNotFound:            http.StatusNotFound,
	apperror.KindUpstreamUnavailable: http.StatusBadGateway,
	apperror.KindInvalidDocument:     http.StatusUnprocessableEntity,
	apperror.KindPartialFailure:      http.StatusMultiStatus,
	apperror.KindConflict:            http.StatusConflict,
}

func errBadRequest(message string) error {
	return apperror.Validation("%s", message)
}

// StatusCode maps an error kind to its HTTP status.
func StatusCode(err error) int {
	if code, ok := kindStatus[apperror.KindOf(err)]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// respondError writes err inside the BaseResponse envelope. Internal errors
// are logged and their details hidden.
func (h *HttpAPIHandler) respondError(c echo.Context, err error) error {
	code := StatusCode(err)
	message := err.Error()
	if code == http.StatusInternalServerError {
		h.log.ErrorContext(c.Request().Context(), "Request failed",
			logger.ErrorField(err),
			logger.StringField("method", c.Request().Method),
			logger.StringField("path", c.Path()),
		)
		message = "internal server error"
	}
	return c.JSON(code, dto.NewBaseResponse(code, message, nil))
}
