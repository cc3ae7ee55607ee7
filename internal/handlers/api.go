// internal/handlers/api.go
package handlers

import (
	"net/http"
	"time"

	"solar-sync/internal/devicesync"
	"solar-sync/internal/utils"
	"solar-sync/internal/weather"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// APIHandler 대시보드 HTTP API 핸들러
type APIHandler struct {
	sync     *devicesync.Service
	ingestor *weather.DustIngestor
	health   func() map[string]interface{}
}

// NewAPIHandler 새 API 핸들러 생성
func NewAPIHandler(sync *devicesync.Service, ingestor *weather.DustIngestor) *APIHandler {
	return &APIHandler{
		sync:     sync,
		ingestor: ingestor,
	}
}

// SetHealthProbe 헬스 체크에 포함할 인프라 상태 함수 설정
func (h *APIHandler) SetHealthProbe(probe func() map[string]interface{}) {
	h.health = probe
}

// NewEcho 미들웨어와 오류 처리기가 설정된 Echo 인스턴스 생성
func NewEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = CustomHTTPErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			utils.Logger.Debugf("%s %s %d %v", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))

	return e
}

// RegisterRoutes /api/v1 라우트 등록
func (h *APIHandler) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api/v1")

	api.GET("/health", h.HealthCheck)

	// Device provisioning
	api.POST("/users/:uid/devices", h.ProvisionDevice)
	api.GET("/users/:uid/devices", h.ListDevices)
	api.DELETE("/users/:uid/devices/:id", h.DeleteDevice)

	// Device state and settings
	api.GET("/devices/:id", h.GetDevice)
	api.PUT("/devices/:id/info", h.UpdateDeviceInfo)
	api.PUT("/devices/:id/auto-settings", h.UpdateAutoSettings)
	api.PUT("/devices/:id/mode", h.SetMode)
	api.PUT("/devices/:id/pwm", h.SetPWM)
	api.GET("/devices/:id/history", h.GetCleaningHistory)

	// Hardware reports (HTTP fallback of the MQTT topics)
	api.POST("/devices/:id/report", h.IngestReport)
	api.POST("/devices/:id/progress", h.ReportProgress)
	api.POST("/devices/:id/error", h.ReportError)

	// Cleaning control
	api.POST("/devices/:id/command", h.SendCommand)
	api.GET("/devices/:id/auto-cleaning", h.GetAutoCleaningDecision)
	api.POST("/devices/:id/dust/refresh", h.RefreshDust)

	api.PUT("/config/weather", h.SetWeatherConfig)

	api.GET("/ws", h.DashboardSession)
}

// HealthCheck 서비스 상태
func (h *APIHandler) HealthCheck(c echo.Context) error {
	data := map[string]interface{}{
		"service":   "solar-sync",
		"timestamp": time.Now().UnixMilli(),
	}
	if h.health != nil {
		for k, v := range h.health() {
			data[k] = v
		}
	}
	return c.JSON(http.StatusOK, utils.SuccessResponse("Service is healthy", data))
}
