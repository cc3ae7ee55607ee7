// internal/devicesync/service.go
package devicesync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"solar-sync/internal/common/paths"
	"solar-sync/internal/interfaces"
	"solar-sync/internal/models"
	"solar-sync/internal/store"
)

var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrDeviceNotFound    = errors.New("device not found")
	ErrDeviceNotOwned    = errors.New("device not owned by user")
	ErrInvalidTransition = errors.New("invalid cleaning state transition")
)

// Service 디바이스 상태 동기화 계층
//
// 저장소 경로를 읽고 쓰며, 청소 상태 전이와 자동 청소 판단 규칙을 적용한다.
// publisher, cleaning, telemetry는 nil이어도 동작한다.
type Service struct {
	store     store.DeviceStore
	publisher interfaces.CommandPublisher
	cleaning  interfaces.CleaningArchive
	telemetry interfaces.TelemetryArchive
	ids       interfaces.IDGenerator
	logger    interfaces.Logger
	now       func() time.Time
}

// NewService 새 동기화 서비스 생성
func NewService(
	st store.DeviceStore,
	publisher interfaces.CommandPublisher,
	cleaning interfaces.CleaningArchive,
	telemetry interfaces.TelemetryArchive,
	ids interfaces.IDGenerator,
	logger interfaces.Logger,
) *Service {
	return &Service{
		store:     st,
		publisher: publisher,
		cleaning:  cleaning,
		telemetry: telemetry,
		ids:       ids,
		logger:    logger,
		now:       time.Now,
	}
}

// SetClock 서버 타임스탬프 기준 시계 교체 (테스트용)
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Store 기반 저장소 반환
func (s *Service) Store() store.DeviceStore {
	return s.store
}

func (s *Service) nowMillis() int64 {
	return s.now().UnixMilli()
}

func (s *Service) today() string {
	return s.now().UTC().Format(paths.HistoryDateLayout)
}

// GetDevice 디바이스 전체 트리 조회
func (s *Service) GetDevice(ctx context.Context, deviceID string) (*models.Device, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("%w: device id is required", ErrInvalidArgument)
	}
	var device models.Device
	if err := store.GetInto(ctx, s.store, paths.Device(deviceID), &device); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, deviceID)
		}
		return nil, err
	}
	device.ID = deviceID
	return &device, nil
}

// readSection 디바이스 하위 경로 조회 (없으면 ErrDeviceNotFound)
func (s *Service) readSection(ctx context.Context, path, deviceID string, v interface{}) error {
	if deviceID == "" {
		return fmt.Errorf("%w: device id is required", ErrInvalidArgument)
	}
	if err := store.GetInto(ctx, s.store, path, v); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrDeviceNotFound, deviceID)
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	return nil
}

func (s *Service) readControl(ctx context.Context, deviceID string) (models.CleaningControl, error) {
	var control models.CleaningControl
	err := s.readSection(ctx, paths.CleaningControl(deviceID), deviceID, &control)
	return control, err
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
