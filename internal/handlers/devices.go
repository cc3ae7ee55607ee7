// internal/handlers/devices.go
package handlers

import (
	"net/http"
	"strconv"

	"solar-sync/internal/models"
	"solar-sync/internal/utils"

	"github.com/labstack/echo/v4"
)

// ===================================================================
// DEVICE PROVISIONING
// ===================================================================

// ProvisionDevice 기본 트리로 디바이스 등록
func (h *APIHandler) ProvisionDevice(c echo.Context) error {
	var info models.DeviceInfo
	if err := c.Bind(&info); err != nil {
		return bindError(err)
	}

	deviceID, err := h.sync.ProvisionDevice(c.Request().Context(), c.Param("uid"), info)
	if err != nil {
		return toAppError(err)
	}

	data := map[string]interface{}{"deviceId": deviceID}
	return c.JSON(http.StatusCreated, utils.SuccessResponse("Device provisioned successfully", data))
}

// ListDevices 소유자의 디바이스 목록
func (h *APIHandler) ListDevices(c echo.Context) error {
	devices, err := h.sync.ListDevices(c.Request().Context(), c.Param("uid"))
	if err != nil {
		return toAppError(err)
	}

	data := map[string]interface{}{
		"devices": devices,
		"count":   len(devices),
	}
	return c.JSON(http.StatusOK, utils.SuccessResponse("Devices retrieved successfully", data))
}

// DeleteDevice 디바이스 삭제 (소유자만)
func (h *APIHandler) DeleteDevice(c echo.Context) error {
	deviceID := c.Param("id")
	if err := h.sync.DeleteDevice(c.Request().Context(), c.Param("uid"), deviceID); err != nil {
		return toAppError(err)
	}
	return c.JSON(http.StatusOK, utils.SuccessResponse("Device "+deviceID+" deleted successfully", nil))
}

// ===================================================================
// DEVICE STATE AND SETTINGS
// ===================================================================

// GetDevice 디바이스 전체 상태
func (h *APIHandler) GetDevice(c echo.Context) error {
	device, err := h.sync.GetDevice(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toAppError(err)
	}
	return c.JSON(http.StatusOK, utils.SuccessResponse("Device retrieved successfully", device))
}

// UpdateDeviceInfo 설치 정보 수정
func (h *APIHandler) UpdateDeviceInfo(c echo.Context) error {
	var info models.DeviceInfo
	if err := c.Bind(&info); err != nil {
		return bindError(err)
	}
	if err := h.sync.UpdateDeviceInfo(c.Request().Context(), c.Param("id"), info); err != nil {
		return toAppError(err)
	}
	return c.JSON(http.StatusOK, utils.SuccessResponse("Device info updated successfully", nil))
}

// UpdateAutoSettings 자동 청소 설정 수정 (보낸 필드만 반영)
func (h *APIHandler) UpdateAutoSettings(c echo.Context) error {
	var patch models.AutoSettingsPatch
	if err := c.Bind(&patch); err != nil {
		return bindError(err)
	}
	if err := h.sync.PatchAutoSettings(c.Request().Context(), c.Param("id"), patch); err != nil {
		return toAppError(err)
	}
	return c.JSON(http.StatusOK, utils.SuccessResponse("Auto settings updated successfully", nil))
}

// SetMode 수동/자동 모드 전환
func (h *APIHandler) SetMode(c echo.Context) error {
	var request struct {
		Mode string `json:"mode"`
	}
	if err := c.Bind(&request); err != nil {
		return bindError(err)
	}
	if err := h.sync.SetMode(c.Request().Context(), c.Param("id"), request.Mode); err != nil {
		return toAppError(err)
	}
	return c.JSON(http.StatusOK, utils.SuccessResponse("Mode set to: "+request.Mode, nil))
}

// SetPWM 방식별 PWM 기본값 수정
func (h *APIHandler) SetPWM(c echo.Context) error {
	var request struct {
		Method string `json:"method"`
		PWM    int    `json:"pwm"`
	}
	if err := c.Bind(&request); err != nil {
		return bindError(err)
	}
	if err := h.sync.SetPWM(c.Request().Context(), c.Param("id"), request.Method, request.PWM); err != nil {
		return toAppError(err)
	}
	return c.JSON(http.StatusOK, utils.SuccessResponse("PWM updated successfully", nil))
}

// GetCleaningHistory 청소 작업 이력 (?limit=)
func (h *APIHandler) GetCleaningHistory(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return utils.NewBadRequestError("limit must be a non-negative integer", err)
		}
		limit = parsed
	}

	logs, err := h.sync.CleaningHistory(c.Request().Context(), c.Param("id"), limit)
	if err != nil {
		return toAppError(err)
	}

	data := map[string]interface{}{
		"items": logs,
		"count": len(logs),
	}
	return c.JSON(http.StatusOK, utils.SuccessResponse("Cleaning history retrieved successfully", data))
}

// ===================================================================
// HARDWARE REPORTS
// ===================================================================

// IngestReport 센서 보고 수신
func (h *APIHandler) IngestReport(c echo.Context) error {
	var report models.Report
	if err := c.Bind(&report); err != nil {
		return bindError(err)
	}
	if err := h.sync.IngestReport(c.Request().Context(), c.Param("id"), report); err != nil {
		return toAppError(err)
	}
	return c.JSON(http.StatusOK, utils.SuccessResponse("Report ingested successfully", nil))
}

// ReportProgress 청소 진행률 수신
func (h *APIHandler) ReportProgress(c echo.Context) error {
	var report models.ProgressReport
	if err := c.Bind(&report); err != nil {
		return bindError(err)
	}
	if err := h.sync.UpdateCleaningProgress(c.Request().Context(), c.Param("id"), report.Progress, report.WaterUsed); err != nil {
		return toAppError(err)
	}
	return c.JSON(http.StatusOK, utils.SuccessResponse("Progress updated successfully", nil))
}

// ReportError 디바이스 오류 수신
func (h *APIHandler) ReportError(c echo.Context) error {
	var report models.ErrorReport
	if err := c.Bind(&report); err != nil {
		return bindError(err)
	}
	if err := h.sync.ReportError(c.Request().Context(), c.Param("id"), report.Message); err != nil {
		return toAppError(err)
	}
	return c.JSON(http.StatusOK, utils.SuccessResponse("Error recorded", nil))
}
