// internal/devicesync/provision.go
package devicesync

import (
	"context"
	"fmt"

	"solar-sync/internal/common/constants"
	"solar-sync/internal/common/paths"
	"solar-sync/internal/models"
	"solar-sync/internal/store"
)

// DeviceRef 사용자 하위 디바이스 참조 (users/{uid}/devices/{id})
type DeviceRef struct {
	Name    string `json:"name"`
	AddedAt int64  `json:"addedAt"`
}

// DeviceSummary 디바이스 목록 항목
type DeviceSummary struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	AddedAt int64  `json:"addedAt"`
}

// DefaultDeviceTree 신규 디바이스 기본 상태 트리
func DefaultDeviceTree(ownerID string, info models.DeviceInfo) models.Device {
	info.Status = constants.DeviceStatusOffline
	info.LastUpdated = 0

	return models.Device{
		Owner:           ownerID,
		Info:            info,
		Environment:     models.Environment{},
		PanelParameters: models.PanelParameters{},
		PanelStatus: models.PanelStatus{
			DustCategory: constants.DustCategory(0),
		},
		CleaningControl: models.CleaningControl{
			Mode:    constants.CleaningModeManual,
			Method:  constants.CleaningMethodDry,
			Status:  constants.CleaningStatusIdle,
			PWMDry:  constants.DefaultPWMDry,
			PWMWet:  constants.DefaultPWMWet,
			Trigger: constants.TriggerOff,
			AutoSettings: models.AutoSettings{
				Enabled:         false,
				DustThreshold:   constants.DefaultDustThreshold,
				ScheduleEnabled: false,
				Schedule:        constants.DefaultSchedule,
				LastCleaning:    0,
			},
			CurrentOperation: models.CurrentOperation{},
		},
	}
}

// ProvisionDevice 새 디바이스를 생성하고 소유자에 연결
//
// 디바이스 트리와 소유자 참조는 하나의 배치로 기록된다. 멱등하지 않다.
func (s *Service) ProvisionDevice(ctx context.Context, ownerID string, info models.DeviceInfo) (string, error) {
	if ownerID == "" {
		return "", fmt.Errorf("%w: owner id is required", ErrInvalidArgument)
	}

	deviceID := s.ids.DeviceID()
	tree := DefaultDeviceTree(ownerID, info)
	ref := DeviceRef{Name: info.Name, AddedAt: s.nowMillis()}

	err := s.store.Batch(ctx,
		store.SetOp(paths.Device(deviceID), tree),
		store.SetOp(paths.UserDevice(ownerID, deviceID), ref),
	)
	if err != nil {
		s.logger.Errorf("❌ Device provisioning failed for owner %s: %v", ownerID, err)
		return "", fmt.Errorf("failed to provision device: %w", err)
	}

	s.logger.Infof("✅ Device %s provisioned for owner %s", deviceID, ownerID)
	return deviceID, nil
}

// DeleteDevice 소유자 참조와 디바이스 트리를 함께 삭제
func (s *Service) DeleteDevice(ctx context.Context, ownerID, deviceID string) error {
	if ownerID == "" || deviceID == "" {
		return fmt.Errorf("%w: owner id and device id are required", ErrInvalidArgument)
	}

	snap, err := s.store.Get(ctx, paths.UserDevice(ownerID, deviceID))
	if err != nil {
		return fmt.Errorf("failed to read device reference: %w", err)
	}
	if !snap.Exists {
		return fmt.Errorf("%w: %s", ErrDeviceNotOwned, deviceID)
	}

	err = s.store.Batch(ctx,
		store.RemoveOp(paths.UserDevice(ownerID, deviceID)),
		store.RemoveOp(paths.Device(deviceID)),
	)
	if err != nil {
		return fmt.Errorf("failed to delete device: %w", err)
	}

	s.logger.Infof("🗑️ Device %s deleted by owner %s", deviceID, ownerID)
	return nil
}

// ListDevices 소유자의 디바이스 목록
func (s *Service) ListDevices(ctx context.Context, ownerID string) ([]DeviceSummary, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner id is required", ErrInvalidArgument)
	}

	var refs map[string]DeviceRef
	err := store.GetInto(ctx, s.store, paths.UserDevices(ownerID), &refs)
	if err != nil && !isNotFound(err) {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	ids, err := s.store.Children(ctx, paths.UserDevices(ownerID))
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	summaries := make([]DeviceSummary, 0, len(ids))
	for _, id := range ids {
		ref := refs[id]
		summaries = append(summaries, DeviceSummary{ID: id, Name: ref.Name, AddedAt: ref.AddedAt})
	}
	return summaries, nil
}

// UpdateDeviceInfo 설치 정보 수정 (상태 필드는 보존)
func (s *Service) UpdateDeviceInfo(ctx context.Context, deviceID string, info models.DeviceInfo) error {
	var current models.DeviceInfo
	if err := s.readSection(ctx, paths.DeviceInfo(deviceID), deviceID, &current); err != nil {
		return err
	}

	fields := map[string]interface{}{
		"name":        info.Name,
		"location":    info.Location,
		"installDate": info.InstallDate,
		"panelRating": info.PanelRating,
		"latitude":    info.Latitude,
		"longitude":   info.Longitude,
	}
	if err := s.store.Update(ctx, paths.DeviceInfo(deviceID), fields); err != nil {
		return fmt.Errorf("failed to update device info: %w", err)
	}
	return nil
}

// UpdateAutoSettings 자동 청소 설정 전체 교체 (lastCleaning은 보존, schedule이 비면 유지)
func (s *Service) UpdateAutoSettings(ctx context.Context, deviceID string, settings models.AutoSettings) error {
	patch := models.AutoSettingsPatch{
		Enabled:         &settings.Enabled,
		DustThreshold:   &settings.DustThreshold,
		ScheduleEnabled: &settings.ScheduleEnabled,
	}
	if settings.Schedule != "" {
		patch.Schedule = &settings.Schedule
	}
	return s.PatchAutoSettings(ctx, deviceID, patch)
}

// PatchAutoSettings 지정된 필드만 수정
//
// 임계값은 0보다 커야 한다. 0이면 매 주기 자동 청소가 시작된다.
func (s *Service) PatchAutoSettings(ctx context.Context, deviceID string, patch models.AutoSettingsPatch) error {
	if patch.Schedule != nil && !constants.IsValidSchedule(*patch.Schedule) {
		return fmt.Errorf("%w: unknown schedule %q", ErrInvalidArgument, *patch.Schedule)
	}
	if patch.DustThreshold != nil && *patch.DustThreshold <= 0 {
		return fmt.Errorf("%w: dust threshold must be positive", ErrInvalidArgument)
	}

	if _, err := s.readControl(ctx, deviceID); err != nil {
		return err
	}

	fields := make(map[string]interface{})
	if patch.Enabled != nil {
		fields["autoSettings/enabled"] = *patch.Enabled
	}
	if patch.DustThreshold != nil {
		fields["autoSettings/dustThreshold"] = *patch.DustThreshold
	}
	if patch.ScheduleEnabled != nil {
		fields["autoSettings/scheduleEnabled"] = *patch.ScheduleEnabled
	}
	if patch.Schedule != nil {
		fields["autoSettings/schedule"] = *patch.Schedule
	}
	if len(fields) == 0 {
		return fmt.Errorf("%w: no auto settings fields given", ErrInvalidArgument)
	}

	if err := s.store.Update(ctx, paths.CleaningControl(deviceID), fields); err != nil {
		return fmt.Errorf("failed to update auto settings: %w", err)
	}
	return nil
}

// SetMode 수동/자동 모드 전환
func (s *Service) SetMode(ctx context.Context, deviceID, mode string) error {
	if !constants.IsValidMode(mode) {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidArgument, mode)
	}
	if _, err := s.readControl(ctx, deviceID); err != nil {
		return err
	}
	return s.store.Update(ctx, paths.CleaningControl(deviceID), map[string]interface{}{"mode": mode})
}

// SetPWM 방식별 PWM 기본값 수정
func (s *Service) SetPWM(ctx context.Context, deviceID, method string, pwm int) error {
	if !constants.IsValidMethod(method) {
		return fmt.Errorf("%w: unknown method %q", ErrInvalidArgument, method)
	}
	if pwm <= 0 || pwm > 255 {
		return fmt.Errorf("%w: pwm must be within 1-255", ErrInvalidArgument)
	}
	if _, err := s.readControl(ctx, deviceID); err != nil {
		return err
	}
	return s.store.Update(ctx, paths.CleaningControl(deviceID), map[string]interface{}{pwmField(method): pwm})
}

func pwmField(method string) string {
	if method == constants.CleaningMethodWet {
		return "pwmWet"
	}
	return "pwmDry"
}
