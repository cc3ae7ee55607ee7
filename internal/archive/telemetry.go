// internal/archive/telemetry.go
package archive

import (
	"context"
	"fmt"
	"time"

	"solar-sync/internal/config"
	"solar-sync/internal/models"

	influxdb3 "github.com/InfluxCommunity/influxdb3-go/v2/influxdb3"
)

// InfluxDB measurement 이름
const (
	MeasurementEnvironment = "solar_environment"
	MeasurementPanel       = "solar_panel"
	MeasurementDust        = "solar_dust"
)

// PointWriter influxdb3.Client의 쓰기 부분
type PointWriter interface {
	WritePoints(ctx context.Context, points []*influxdb3.Point, options ...influxdb3.WriteOption) error
}

// TelemetryWriter 센서 보고와 먼지 농도를 InfluxDB 포인트로 기록
type TelemetryWriter struct {
	writer  PointWriter
	timeout time.Duration
}

func NewTelemetryWriter(writer PointWriter, timeout time.Duration) *TelemetryWriter {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TelemetryWriter{writer: writer, timeout: timeout}
}

// NewInfluxClient 설정으로 InfluxDB v3 클라이언트 생성
func NewInfluxClient(cfg *config.Config) (*influxdb3.Client, error) {
	if cfg.InfluxURL == "" {
		return nil, fmt.Errorf("INFLUXDB_URL is required")
	}
	if cfg.InfluxDatabase == "" {
		return nil, fmt.Errorf("INFLUXDB_DATABASE is required")
	}

	clientConfig := influxdb3.ClientConfig{
		Host:     cfg.InfluxURL,
		Database: cfg.InfluxDatabase,
		WriteOptions: &influxdb3.WriteOptions{
			DefaultTags: map[string]string{
				"source": "solar_sync",
			},
		},
	}
	if cfg.InfluxToken != "" {
		clientConfig.Token = cfg.InfluxToken
	}

	client, err := influxdb3.New(clientConfig)
	if err != nil {
		return nil, fmt.Errorf("influx client creation failed: %w", err)
	}
	return client, nil
}

// ReportPoints 센서 보고를 포인트로 변환
func ReportPoints(deviceID string, env *models.Environment, params *models.PanelParameters) []*influxdb3.Point {
	tags := map[string]string{"device_id": deviceID}
	points := make([]*influxdb3.Point, 0, 2)

	if env != nil {
		points = append(points, influxdb3.NewPoint(MeasurementEnvironment, tags, map[string]interface{}{
			"humidity":      env.Humidity,
			"temperature":   env.Temperature,
			"dust_presence": env.DustPresence,
		}, time.UnixMilli(env.Timestamp)))
	}
	if params != nil {
		points = append(points, influxdb3.NewPoint(MeasurementPanel, tags, map[string]interface{}{
			"voltage": params.Voltage,
			"current": params.Current,
			"power":   params.Power,
		}, time.UnixMilli(params.Timestamp)))
	}
	return points
}

// DustPoint 먼지 농도를 포인트로 변환
func DustPoint(deviceID string, status models.PanelStatus) *influxdb3.Point {
	return influxdb3.NewPointWithMeasurement(MeasurementDust).
		SetTag("device_id", deviceID).
		SetTag("category", status.DustCategory).
		SetDoubleField("dust_level", status.DustLevel).
		SetDoubleField("pm25", status.PM25).
		SetDoubleField("pm10", status.PM10).
		SetDoubleField("aqi", status.AQI).
		SetTimestamp(time.UnixMilli(status.Timestamp))
}

func (w *TelemetryWriter) WriteReport(ctx context.Context, deviceID string, env *models.Environment, params *models.PanelParameters) error {
	points := ReportPoints(deviceID, env, params)
	if len(points) == 0 {
		return nil
	}
	return w.write(ctx, points)
}

func (w *TelemetryWriter) WriteDust(ctx context.Context, deviceID string, status models.PanelStatus) error {
	return w.write(ctx, []*influxdb3.Point{DustPoint(deviceID, status)})
}

func (w *TelemetryWriter) write(ctx context.Context, points []*influxdb3.Point) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	if err := w.writer.WritePoints(ctx, points); err != nil {
		return fmt.Errorf("WritePoints failed: %w (points: %d)", err, len(points))
	}
	return nil
}
