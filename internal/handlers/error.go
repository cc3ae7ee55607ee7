// internal/handlers/error.go
package handlers

import (
	"errors"
	"net/http"

	"solar-sync/internal/devicesync"
	"solar-sync/internal/store"
	"solar-sync/internal/utils"
	"solar-sync/internal/weather"

	"github.com/labstack/echo/v4"
)

// CustomHTTPErrorHandler Echo 중앙 오류 처리기
func CustomHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var appErr *utils.AppError
	if !errors.As(err, &appErr) {
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			message, ok := httpErr.Message.(string)
			if !ok {
				message = http.StatusText(httpErr.Code)
			}
			c.JSON(httpErr.Code, utils.ErrorResponse(message))
			return
		}

		utils.Logger.Errorf("❌ Unhandled error (%T): %v", err, err)
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("An unexpected internal error occurred."))
		return
	}

	if internalErr := appErr.Unwrap(); internalErr != nil {
		utils.Logger.Infof("Error handled (code=%d): %s - %v", appErr.Code, appErr.Message, internalErr)
	}

	c.JSON(appErr.Code, utils.ErrorResponse(appErr.Message))
}

// toAppError 도메인 오류를 HTTP 오류로 변환
func toAppError(err error) *utils.AppError {
	switch {
	case errors.Is(err, devicesync.ErrInvalidArgument),
		errors.Is(err, weather.ErrUnknownProvider):
		return utils.NewBadRequestError(err.Error(), err)
	case errors.Is(err, devicesync.ErrDeviceNotFound),
		errors.Is(err, store.ErrNotFound):
		return utils.NewNotFoundError(err.Error(), err)
	case errors.Is(err, devicesync.ErrDeviceNotOwned):
		return utils.NewForbiddenError(err.Error(), err)
	case errors.Is(err, devicesync.ErrInvalidTransition):
		return utils.NewConflictError(err.Error(), err)
	case errors.Is(err, weather.ErrNotConfigured):
		return utils.NewAppError(http.StatusUnprocessableEntity, err.Error(), err)
	case errors.Is(err, weather.ErrEmptyResponse):
		return utils.NewAppError(http.StatusBadGateway, err.Error(), err)
	default:
		return utils.NewInternalServerError("An unexpected internal error occurred.", err)
	}
}

// bindError 요청 본문 파싱 실패
func bindError(err error) *utils.AppError {
	return utils.NewBadRequestError("Invalid request body", err)
}
