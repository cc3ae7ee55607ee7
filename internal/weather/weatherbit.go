// internal/weather/weatherbit.go
package weather

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const WeatherbitBaseURL = "https://api.weatherbit.io"

// Weatherbit /v2.0/current/airquality 어댑터
type Weatherbit struct {
	apiKey    string
	baseURL   string
	transport *HTTPTransport
}

type weatherbitResponse struct {
	Data []struct {
		AQI  float64 `json:"aqi"`
		PM25 float64 `json:"pm25"`
		PM10 float64 `json:"pm10"`
	} `json:"data"`
}

func (w *Weatherbit) Name() string {
	return ProviderWeatherbit
}

func (w *Weatherbit) Fetch(ctx context.Context, lat, lon float64) (Reading, error) {
	query := url.Values{}
	query.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	query.Set("key", w.apiKey)

	var resp weatherbitResponse
	if err := w.transport.GetJSON(ctx, strings.TrimRight(w.baseURL, "/")+"/v2.0/current/airquality", query, &resp); err != nil {
		return Reading{}, fmt.Errorf("weatherbit: %w", err)
	}
	if len(resp.Data) == 0 {
		return Reading{}, fmt.Errorf("weatherbit: %w", ErrEmptyResponse)
	}

	item := resp.Data[0]
	return Reading{PM25: item.PM25, PM10: item.PM10, AQI: item.AQI}, nil
}
