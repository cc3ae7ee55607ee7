// internal/weather/ingestor.go
package weather

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"solar-sync/internal/cache"
	"solar-sync/internal/common/constants"
	"solar-sync/internal/common/paths"
	"solar-sync/internal/interfaces"
	"solar-sync/internal/models"
	"solar-sync/internal/store"
)

// DustIngestor 디바이스 좌표의 대기질을 조회해 panelStatus에 기록
//
// 재시도는 하지 않는다. 호출자의 주기 타이머가 유일한 재시도 수단이다.
type DustIngestor struct {
	store     store.DeviceStore
	cache     *cache.EnvelopeCache
	cacheTTL  time.Duration
	telemetry interfaces.TelemetryArchive
	transport *HTTPTransport
	config    interfaces.ConfigProvider
	logger    interfaces.Logger
	now       func() time.Time

	mu       sync.RWMutex
	baseURLs map[string]string
}

// NewDustIngestor 새 먼지 데이터 수집기 생성 (cache, telemetry는 nil 허용)
func NewDustIngestor(
	st store.DeviceStore,
	envelopeCache *cache.EnvelopeCache,
	cacheTTL time.Duration,
	telemetry interfaces.TelemetryArchive,
	transport *HTTPTransport,
	config interfaces.ConfigProvider,
	logger interfaces.Logger,
) *DustIngestor {
	return &DustIngestor{
		store:     st,
		cache:     envelopeCache,
		cacheTTL:  cacheTTL,
		telemetry: telemetry,
		transport: transport,
		config:    config,
		logger:    logger,
		now:       time.Now,
		baseURLs:  make(map[string]string),
	}
}

// SetBaseURL 제공자 주소 교체 (테스트 서버 등)
func (d *DustIngestor) SetBaseURL(provider, baseURL string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.baseURLs[strings.ToLower(provider)] = baseURL
}

// SetClock 타임스탬프 기준 시계 교체 (테스트용)
func (d *DustIngestor) SetClock(now func() time.Time) {
	d.now = now
}

// Categorize 먼지 농도 등급 (<50 light, 50~150 moderate, >150 high)
func Categorize(level float64) string {
	return constants.DustCategory(level)
}

// ActiveConfig 저장소의 config/weatherAPI, 없으면 환경 설정 값
func (d *DustIngestor) ActiveConfig(ctx context.Context) models.WeatherConfig {
	cfg := models.WeatherConfig{
		Provider: d.config.GetWeatherProvider(),
		APIKey:   d.config.GetWeatherAPIKey(),
	}

	var stored models.WeatherConfig
	if err := store.GetInto(ctx, d.store, paths.WeatherConfig, &stored); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			d.logger.Warnf("failed to read weather config, using defaults: %v", err)
		}
		return cfg
	}
	if stored.Provider != "" {
		cfg.Provider = stored.Provider
	}
	if stored.APIKey != "" {
		cfg.APIKey = stored.APIKey
	}
	return cfg
}

// SetConfig 제공자 설정 저장 (config/weatherAPI)
func (d *DustIngestor) SetConfig(ctx context.Context, cfg models.WeatherConfig) error {
	if !IsValidProvider(cfg.Provider) {
		return fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}
	cfg.Provider = strings.ToLower(cfg.Provider)
	if err := d.store.Set(ctx, paths.WeatherConfig, cfg); err != nil {
		return fmt.Errorf("failed to save weather config: %w", err)
	}
	d.logger.Infof("🌤️ Weather provider set to %s", cfg.Provider)
	return nil
}

// Refresh 디바이스 좌표의 먼지 농도를 조회해 panelStatus에 기록
//
// 좌표나 API 키가 없으면 ErrNotConfigured를 반환하고 아무것도 쓰지 않는다.
func (d *DustIngestor) Refresh(ctx context.Context, deviceID string) (models.PanelStatus, error) {
	var info models.DeviceInfo
	if err := store.GetInto(ctx, d.store, paths.DeviceInfo(deviceID), &info); err != nil {
		return models.PanelStatus{}, fmt.Errorf("failed to read device %s: %w", deviceID, err)
	}
	if !info.HasCoordinates() {
		d.logger.Debugf("dust refresh skipped for %s: no coordinates", deviceID)
		return models.PanelStatus{}, fmt.Errorf("%w: device %s has no coordinates", ErrNotConfigured, deviceID)
	}

	cfg := d.ActiveConfig(ctx)
	d.mu.RLock()
	baseURL := d.baseURLs[strings.ToLower(cfg.Provider)]
	d.mu.RUnlock()

	provider, err := NewProvider(cfg.Provider, cfg.APIKey, baseURL, d.transport)
	if err != nil {
		d.logger.Debugf("dust refresh skipped for %s: %v", deviceID, err)
		return models.PanelStatus{}, err
	}

	reading, err := d.fetch(ctx, provider, info.Latitude, info.Longitude)
	if err != nil {
		d.logger.Errorf("❌ Dust fetch failed for %s via %s: %v", deviceID, provider.Name(), err)
		return models.PanelStatus{}, err
	}

	level := reading.DustLevel()
	status := models.PanelStatus{
		DustLevel:    level,
		DustCategory: Categorize(level),
		PM25:         reading.PM25,
		PM10:         reading.PM10,
		AQI:          reading.AQI,
		Timestamp:    d.now().UnixMilli(),
	}

	fields := map[string]interface{}{
		"dustLevel":    status.DustLevel,
		"dustCategory": status.DustCategory,
		"pm25":         status.PM25,
		"pm10":         status.PM10,
		"aqi":          status.AQI,
		"timestamp":    status.Timestamp,
	}
	if err := d.store.Update(ctx, paths.PanelStatus(deviceID), fields); err != nil {
		return models.PanelStatus{}, fmt.Errorf("failed to write dust level for %s: %w", deviceID, err)
	}

	d.logger.Infof("🌫️ Dust level for %s: %.1f (%s)", deviceID, status.DustLevel, status.DustCategory)

	if d.telemetry != nil {
		if err := d.telemetry.WriteDust(ctx, deviceID, status); err != nil {
			d.logger.Warnf("telemetry archive write failed for %s: %v", deviceID, err)
		}
	}
	return status, nil
}

// fetch 캐시를 거쳐 제공자 조회
func (d *DustIngestor) fetch(ctx context.Context, provider Provider, lat, lon float64) (Reading, error) {
	key := fmt.Sprintf("air_%s_%.4f_%.4f", provider.Name(), lat, lon)

	if d.cache != nil {
		var cached Reading
		ok, err := d.cache.Get(ctx, key, &cached)
		if err != nil {
			d.logger.Warnf("air quality cache read failed: %v", err)
		} else if ok {
			return cached, nil
		}
	}

	reading, err := provider.Fetch(ctx, lat, lon)
	if err != nil {
		return Reading{}, err
	}

	if d.cache != nil {
		if err := d.cache.Set(ctx, key, reading, d.cacheTTL); err != nil {
			d.logger.Warnf("air quality cache write failed: %v", err)
		}
	}
	return reading, nil
}
