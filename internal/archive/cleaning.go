// internal/archive/cleaning.go
package archive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"solar-sync/internal/models"

	"gorm.io/gorm"
)

// CleaningLogRepository PostgreSQL 청소 작업 이력
type CleaningLogRepository struct {
	db *gorm.DB
}

func NewCleaningLogRepository(db *gorm.DB) *CleaningLogRepository {
	return &CleaningLogRepository{db: db}
}

// CleaningStarted 진행 중(RUNNING) 이력 생성
func (r *CleaningLogRepository) CleaningStarted(ctx context.Context, deviceID, method string, pwm int, at time.Time) error {
	log := &models.CleaningLog{
		DeviceID:  deviceID,
		Method:    method,
		PWM:       pwm,
		Status:    models.CleaningLogStatusRunning,
		StartedAt: at,
	}
	if err := r.db.WithContext(ctx).Create(log).Error; err != nil {
		return fmt.Errorf("failed to create cleaning log: %w", err)
	}
	return nil
}

// CleaningFinished 가장 최근 RUNNING 이력 종료 (없으면 종료 상태로 새로 기록)
func (r *CleaningLogRepository) CleaningFinished(ctx context.Context, deviceID, status string, waterUsed float64, errMsg string, at time.Time) error {
	db := r.db.WithContext(ctx)

	var log models.CleaningLog
	err := db.Where("device_id = ? AND status = ?", deviceID, models.CleaningLogStatusRunning).
		Order("started_at DESC").First(&log).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		finished := at
		orphan := &models.CleaningLog{
			DeviceID:     deviceID,
			Status:       status,
			StartedAt:    at,
			FinishedAt:   &finished,
			WaterUsed:    waterUsed,
			ErrorMessage: errMsg,
		}
		return db.Create(orphan).Error
	}
	if err != nil {
		return fmt.Errorf("failed to find running cleaning log: %w", err)
	}

	return db.Model(&log).Updates(map[string]interface{}{
		"status":        status,
		"finished_at":   at,
		"water_used":    waterUsed,
		"error_message": errMsg,
	}).Error
}

// History 최근 이력 (limit <= 0 이면 50)
func (r *CleaningLogRepository) History(ctx context.Context, deviceID string, limit int) ([]models.CleaningLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var logs []models.CleaningLog
	err := r.db.WithContext(ctx).
		Where("device_id = ?", deviceID).
		Order("started_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
