// internal/devicesync/ingest.go
package devicesync

import (
	"context"
	"errors"
	"fmt"

	"solar-sync/internal/common/constants"
	"solar-sync/internal/common/paths"
	"solar-sync/internal/models"
	"solar-sync/internal/store"
)

// IngestReport 하드웨어 센서 보고를 디바이스 상태에 병합
//
// 범위 검증이나 순서 검증은 하지 않는다. 오래된 보고도 그대로 덮어쓴다.
// 전력은 보고에 없으면 전압 × 전류로 계산하고, 모든 섹션에 서버 타임스탬프를 찍는다.
func (s *Service) IngestReport(ctx context.Context, deviceID string, report models.Report) error {
	if deviceID == "" {
		return fmt.Errorf("%w: device id is required", ErrInvalidArgument)
	}

	now := s.nowMillis()
	var env *models.Environment
	if report.Environment != nil {
		env = &models.Environment{
			Humidity:     report.Environment.Humidity,
			Temperature:  report.Environment.Temperature,
			DustPresence: report.Environment.DustPresence,
			Timestamp:    now,
		}
	}

	var params *models.PanelParameters
	if report.Parameters != nil {
		power := report.Parameters.Voltage * report.Parameters.Current
		if report.Parameters.Power != nil {
			power = *report.Parameters.Power
		}
		params = &models.PanelParameters{
			Voltage:   report.Parameters.Voltage,
			Current:   report.Parameters.Current,
			Power:     power,
			Timestamp: now,
		}
	}

	// 오늘 기록은 같은 트랜잭션 안에서 읽고 접어야 완료 보고와 겹쳐도 유실되지 않는다
	err := s.store.Transact(ctx, paths.Device(deviceID), func(current store.Snapshot) ([]store.Op, error) {
		device, err := decodeDevice(current, deviceID)
		if err != nil {
			return nil, err
		}

		fields := map[string]interface{}{
			"info/status":      constants.DeviceStatusOnline,
			"info/lastUpdated": now,
		}
		if env != nil {
			fields["environment"] = env
		}
		if params != nil {
			fields["panelParameters"] = params

			var efficiency *float64
			if device.Info.PanelRating > 0 {
				eff := params.Power / device.Info.PanelRating * 100
				efficiency = &eff
				fields["panelStatus/efficiency"] = eff
			}

			day := s.today()
			history := device.History
			if history == nil {
				history = make(map[string]models.DailyRecord)
			}
			history[day] = foldTelemetry(history[day], params.Power, efficiency)
			losses := ComputeLosses(history, s.now())

			fields[paths.Join("history", day)] = history[day]
			fields["panelStatus/dailyLoss"] = losses.Daily
			fields["panelStatus/weeklyLoss"] = losses.Weekly
			fields["panelStatus/monthlyLoss"] = losses.Monthly
		}
		return []store.Op{store.UpdateOp(paths.Device(deviceID), fields)}, nil
	})
	if err != nil {
		if errors.Is(err, ErrDeviceNotFound) {
			return err
		}
		s.logger.Errorf("❌ Report ingestion failed for %s: %v", deviceID, err)
		return fmt.Errorf("failed to ingest report: %w", err)
	}

	s.logger.Debugf("📥 Report ingested for %s (environment=%v, parameters=%v)", deviceID, env != nil, params != nil)

	if s.telemetry != nil && (env != nil || params != nil) {
		if err := s.telemetry.WriteReport(ctx, deviceID, env, params); err != nil {
			s.logger.Warnf("telemetry archive write failed for %s: %v", deviceID, err)
		}
	}
	return nil
}
