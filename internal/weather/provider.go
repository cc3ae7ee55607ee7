// internal/weather/provider.go
package weather

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Provider 이름
const (
	ProviderOpenWeatherMap = "openweathermap"
	ProviderWeatherbit     = "weatherbit"
)

var (
	// ErrNotConfigured API 키 또는 디바이스 좌표 없음 (업데이트를 건너뜀)
	ErrNotConfigured = errors.New("weather: not configured")
	// ErrUnknownProvider 지원하지 않는 제공자
	ErrUnknownProvider = errors.New("weather: unknown provider")
	// ErrEmptyResponse 제공자 응답에 측정값이 없음
	ErrEmptyResponse = errors.New("weather: empty provider response")
)

// Reading 제공자별 응답을 정규화한 대기질 측정값
type Reading struct {
	PM25 float64 `json:"pm25"`
	PM10 float64 `json:"pm10"`
	AQI  float64 `json:"aqi"`
}

// DustLevel PM2.5와 PM10의 평균
func (r Reading) DustLevel() float64 {
	return (r.PM25 + r.PM10) / 2
}

// Provider 대기질 제공자 어댑터
type Provider interface {
	Name() string
	Fetch(ctx context.Context, lat, lon float64) (Reading, error)
}

// IsValidProvider 지원하는 제공자인지 확인
func IsValidProvider(name string) bool {
	switch strings.ToLower(name) {
	case ProviderOpenWeatherMap, ProviderWeatherbit:
		return true
	default:
		return false
	}
}

// NewProvider 이름으로 제공자 생성 (baseURL이 비어 있으면 기본 주소)
func NewProvider(name, apiKey, baseURL string, transport *HTTPTransport) (Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: api key for %s is empty", ErrNotConfigured, name)
	}

	switch strings.ToLower(name) {
	case ProviderOpenWeatherMap:
		if baseURL == "" {
			baseURL = OpenWeatherMapBaseURL
		}
		return &OpenWeatherMap{apiKey: apiKey, baseURL: baseURL, transport: transport}, nil
	case ProviderWeatherbit:
		if baseURL == "" {
			baseURL = WeatherbitBaseURL
		}
		return &Weatherbit{apiKey: apiKey, baseURL: baseURL, transport: transport}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
}
