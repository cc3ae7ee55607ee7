// internal/devicesync/rules.go
package devicesync

import (
	"context"
	"time"

	"solar-sync/internal/common/constants"
	"solar-sync/internal/common/paths"
	"solar-sync/internal/models"
)

// ShouldTriggerAutoCleaning 자동 청소 판단 규칙
//
// 비활성화 상태면 항상 false. 먼지 농도가 임계값 이상이면 true.
// 그 외에는 스케줄 규칙을 적용하며 lastCleaning이 없으면 스케줄 규칙은 동작하지 않는다.
func ShouldTriggerAutoCleaning(settings models.AutoSettings, status models.PanelStatus, now time.Time) bool {
	if !settings.Enabled {
		return false
	}
	if status.DustLevel >= settings.DustThreshold {
		return true
	}
	if !settings.ScheduleEnabled || settings.LastCleaning <= 0 {
		return false
	}

	days := constants.ScheduleDays(settings.Schedule)
	if days == 0 {
		return false
	}
	elapsed := now.Sub(time.UnixMilli(settings.LastCleaning))
	return elapsed >= time.Duration(days)*24*time.Hour
}

// SelectCleaningMethod 먼지 농도와 기온에 따른 청소 방식 선택
//
// 먼지 농도가 100을 넘고 기온이 45°C 미만일 때만 wet. 두 경계값 모두 dry 쪽이다.
func SelectCleaningMethod(status models.PanelStatus, env models.Environment) string {
	if status.DustLevel > constants.WetDustAbove && env.Temperature < constants.WetTemperatureBelow {
		return constants.CleaningMethodWet
	}
	return constants.CleaningMethodDry
}

// ShouldTriggerAutoCleaning 저장된 설정으로 자동 청소 판단 (읽기 실패 시 false)
func (s *Service) ShouldTriggerAutoCleaning(ctx context.Context, deviceID string) bool {
	var control models.CleaningControl
	if err := s.readSection(ctx, paths.CleaningControl(deviceID), deviceID, &control); err != nil {
		s.logger.Debugf("auto-cleaning check skipped for %s: %v", deviceID, err)
		return false
	}
	var status models.PanelStatus
	if err := s.readSection(ctx, paths.PanelStatus(deviceID), deviceID, &status); err != nil {
		s.logger.Debugf("auto-cleaning check skipped for %s: %v", deviceID, err)
		return false
	}
	return ShouldTriggerAutoCleaning(control.AutoSettings, status, s.now())
}

// SelectCleaningMethod 저장된 상태로 청소 방식 선택 (읽기 실패 시 dry)
func (s *Service) SelectCleaningMethod(ctx context.Context, deviceID string) string {
	var status models.PanelStatus
	if err := s.readSection(ctx, paths.PanelStatus(deviceID), deviceID, &status); err != nil {
		return constants.CleaningMethodDry
	}
	var env models.Environment
	if err := s.readSection(ctx, paths.Environment(deviceID), deviceID, &env); err != nil {
		return constants.CleaningMethodDry
	}
	return SelectCleaningMethod(status, env)
}
