// internal/archive/noop.go
package archive

import (
	"context"
	"time"

	"solar-sync/internal/models"
)

// Noop 저장소가 비활성화된 경우 사용하는 빈 구현
type Noop struct{}

func (Noop) CleaningStarted(ctx context.Context, deviceID, method string, pwm int, at time.Time) error {
	return nil
}

func (Noop) CleaningFinished(ctx context.Context, deviceID, status string, waterUsed float64, errMsg string, at time.Time) error {
	return nil
}

func (Noop) History(ctx context.Context, deviceID string, limit int) ([]models.CleaningLog, error) {
	return []models.CleaningLog{}, nil
}

func (Noop) WriteReport(ctx context.Context, deviceID string, env *models.Environment, params *models.PanelParameters) error {
	return nil
}

func (Noop) WriteDust(ctx context.Context, deviceID string, status models.PanelStatus) error {
	return nil
}
