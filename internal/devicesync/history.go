// internal/devicesync/history.go
package devicesync

import (
	"context"
	"fmt"
	"time"

	"solar-sync/internal/common/paths"
	"solar-sync/internal/models"
	"solar-sync/internal/store"
)

// Losses 효율 손실 집계 (100 - 평균 효율)
type Losses struct {
	Daily   float64
	Weekly  float64
	Monthly float64
}

// decodeDevice 트랜잭션 스냅샷을 디바이스 트리로 변환 (없으면 ErrDeviceNotFound)
func decodeDevice(snap store.Snapshot, deviceID string) (models.Device, error) {
	var device models.Device
	if !snap.Exists {
		return device, fmt.Errorf("%w: %s", ErrDeviceNotFound, deviceID)
	}
	if err := snap.Decode(&device); err != nil {
		return device, err
	}
	device.ID = deviceID
	return device, nil
}

// ComputeLosses today 기준 최근 1/7/30일 기록의 평균 효율 손실
//
// 효율 샘플이 없는 날은 집계에서 제외된다.
func ComputeLosses(history map[string]models.DailyRecord, today time.Time) Losses {
	day := today.UTC().Truncate(24 * time.Hour)
	window := func(days int) float64 {
		var sum float64
		var n int
		for i := 0; i < days; i++ {
			key := day.AddDate(0, 0, -i).Format(paths.HistoryDateLayout)
			rec, ok := history[key]
			if !ok {
				continue
			}
			mean, ok := rec.MeanEfficiency()
			if !ok {
				continue
			}
			sum += 100 - mean
			n++
		}
		if n == 0 {
			return 0
		}
		return sum / float64(n)
	}

	return Losses{
		Daily:   window(1),
		Weekly:  window(7),
		Monthly: window(30),
	}
}

// foldTelemetry 전기 파라미터 보고를 오늘 기록에 반영
func foldTelemetry(rec models.DailyRecord, power float64, efficiency *float64) models.DailyRecord {
	if power > rec.PeakPower {
		rec.PeakPower = power
	}
	if efficiency != nil {
		rec.EfficiencySum += *efficiency
		rec.Samples++
	}
	return rec
}

// foldCleaning 완료된 청소를 오늘 기록에 반영
func foldCleaning(rec models.DailyRecord, waterUsed float64) models.DailyRecord {
	rec.Cleanings++
	rec.WaterUsed += waterUsed
	return rec
}

// CleaningHistory 청소 작업 이력 (최신순, 보관소가 없으면 빈 목록)
func (s *Service) CleaningHistory(ctx context.Context, deviceID string, limit int) ([]models.CleaningLog, error) {
	if _, err := s.readControl(ctx, deviceID); err != nil {
		return nil, err
	}
	if s.cleaning == nil {
		return []models.CleaningLog{}, nil
	}
	return s.cleaning.History(ctx, deviceID, limit)
}
