// internal/handlers/cleaning.go
package handlers

import (
	"net/http"

	"solar-sync/internal/models"
	"solar-sync/internal/utils"

	"github.com/labstack/echo/v4"
)

// SendCommand 청소 시작/정지 명령
func (h *APIHandler) SendCommand(c echo.Context) error {
	var cmd models.CleaningCommand
	if err := c.Bind(&cmd); err != nil {
		return bindError(err)
	}
	if err := h.sync.SendCleaningCommand(c.Request().Context(), c.Param("id"), cmd); err != nil {
		return toAppError(err)
	}

	message := "Cleaning stopped"
	if cmd.Trigger == 1 {
		message = "Cleaning started"
	}
	return c.JSON(http.StatusOK, utils.SuccessResponse(message, nil))
}

// GetAutoCleaningDecision 자동 청소 판단 결과와 권장 방식
func (h *APIHandler) GetAutoCleaningDecision(c echo.Context) error {
	ctx := c.Request().Context()
	deviceID := c.Param("id")

	if _, err := h.sync.GetDevice(ctx, deviceID); err != nil {
		return toAppError(err)
	}

	data := map[string]interface{}{
		"shouldTrigger": h.sync.ShouldTriggerAutoCleaning(ctx, deviceID),
		"method":        h.sync.SelectCleaningMethod(ctx, deviceID),
	}
	return c.JSON(http.StatusOK, utils.SuccessResponse("Auto-cleaning decision evaluated", data))
}

// RefreshDust 외부 제공자에서 먼지 수치 갱신
func (h *APIHandler) RefreshDust(c echo.Context) error {
	status, err := h.ingestor.Refresh(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toAppError(err)
	}
	return c.JSON(http.StatusOK, utils.SuccessResponse("Dust level refreshed", status))
}

// SetWeatherConfig 먼지 데이터 제공자 설정
func (h *APIHandler) SetWeatherConfig(c echo.Context) error {
	var cfg models.WeatherConfig
	if err := c.Bind(&cfg); err != nil {
		return bindError(err)
	}
	if err := h.ingestor.SetConfig(c.Request().Context(), cfg); err != nil {
		return toAppError(err)
	}
	return c.JSON(http.StatusOK, utils.SuccessResponse("Weather provider set to: "+cfg.Provider, nil))
}
