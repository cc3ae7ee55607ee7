// internal/weather/openweather.go
package weather

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const OpenWeatherMapBaseURL = "https://api.openweathermap.org"

// OpenWeatherMap /data/2.5/air_pollution 어댑터
type OpenWeatherMap struct {
	apiKey    string
	baseURL   string
	transport *HTTPTransport
}

type openWeatherResponse struct {
	List []struct {
		Main struct {
			AQI float64 `json:"aqi"`
		} `json:"main"`
		Components struct {
			PM25 float64 `json:"pm2_5"`
			PM10 float64 `json:"pm10"`
		} `json:"components"`
		Dt int64 `json:"dt"`
	} `json:"list"`
}

func (o *OpenWeatherMap) Name() string {
	return ProviderOpenWeatherMap
}

func (o *OpenWeatherMap) Fetch(ctx context.Context, lat, lon float64) (Reading, error) {
	query := url.Values{}
	query.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	query.Set("appid", o.apiKey)

	var resp openWeatherResponse
	if err := o.transport.GetJSON(ctx, strings.TrimRight(o.baseURL, "/")+"/data/2.5/air_pollution", query, &resp); err != nil {
		return Reading{}, fmt.Errorf("openweathermap: %w", err)
	}
	if len(resp.List) == 0 {
		return Reading{}, fmt.Errorf("openweathermap: %w", ErrEmptyResponse)
	}

	item := resp.List[0]
	return Reading{
		PM25: item.Components.PM25,
		PM10: item.Components.PM10,
		AQI:  item.Main.AQI,
	}, nil
}
