// internal/devicesync/watch.go
package devicesync

import (
	"context"
	"fmt"
	"sync"

	"solar-sync/internal/common/paths"
	"solar-sync/internal/models"
	"solar-sync/internal/store"
)

// DeviceUpdate 구독 중인 디바이스 섹션의 변경 알림
type DeviceUpdate struct {
	DeviceID string         `json:"deviceId"`
	Section  string         `json:"section"`
	Snapshot store.Snapshot `json:"-"`
	Value    interface{}    `json:"value"`
}

// DeviceWatch 한 디바이스의 섹션 구독 묶음
type DeviceWatch struct {
	deviceID string
	subs     []*store.Subscription
	once     sync.Once
}

// DeviceID 구독 대상 디바이스
func (w *DeviceWatch) DeviceID() string {
	return w.deviceID
}

// Close 모든 섹션 구독 해제
func (w *DeviceWatch) Close() error {
	w.once.Do(func() {
		for _, sub := range w.subs {
			sub.Close()
		}
	})
	return nil
}

// WatchDevice environment, panelParameters, panelStatus, cleaningControl 구독
//
// 없는 디바이스는 ErrDeviceNotFound. 하나라도 실패하면 이미 연결한 구독을 모두 해제하고
// 에러를 반환한다.
func (s *Service) WatchDevice(ctx context.Context, deviceID string, fn func(DeviceUpdate)) (*DeviceWatch, error) {
	if err := s.requireDevice(ctx, deviceID); err != nil {
		return nil, err
	}

	watch := &DeviceWatch{deviceID: deviceID}
	for _, path := range paths.DeviceWatchPaths(deviceID) {
		segs := paths.Split(path)
		section := segs[len(segs)-1]

		sub, err := s.store.Subscribe(ctx, path, func(snap store.Snapshot) {
			fn(DeviceUpdate{DeviceID: deviceID, Section: section, Snapshot: snap, Value: snap.Value})
		})
		if err != nil {
			watch.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", path, err)
		}
		watch.subs = append(watch.subs, sub)
	}

	s.logger.Debugf("👀 Watching device %s (%d sections)", deviceID, len(watch.subs))
	return watch, nil
}

// requireDevice 디바이스 존재 확인
func (s *Service) requireDevice(ctx context.Context, deviceID string) error {
	var info models.DeviceInfo
	return s.readSection(ctx, paths.DeviceInfo(deviceID), deviceID, &info)
}

// Session 대시보드 세션 (한 번에 하나의 디바이스만 구독)
type Session struct {
	svc     *Service
	fn      func(DeviceUpdate)
	mu      sync.Mutex
	current *DeviceWatch
	closed  bool
}

// NewSession 새 대시보드 세션 생성
func (s *Service) NewSession(fn func(DeviceUpdate)) *Session {
	return &Session{svc: s, fn: fn}
}

// Select 디바이스 선택 (이전 디바이스 구독을 먼저 해제한 뒤 새로 구독)
func (se *Session) Select(ctx context.Context, deviceID string) error {
	se.mu.Lock()
	defer se.mu.Unlock()

	if se.closed {
		return fmt.Errorf("%w: session closed", ErrInvalidArgument)
	}
	// 없는 디바이스를 고르면 기존 구독을 유지한다
	if err := se.svc.requireDevice(ctx, deviceID); err != nil {
		return err
	}
	if se.current != nil {
		se.current.Close()
		se.current = nil
	}

	watch, err := se.svc.WatchDevice(ctx, deviceID, se.fn)
	if err != nil {
		return err
	}
	se.current = watch
	return nil
}

// Current 현재 선택된 디바이스 ("" 이면 없음)
func (se *Session) Current() string {
	se.mu.Lock()
	defer se.mu.Unlock()
	if se.current == nil {
		return ""
	}
	return se.current.DeviceID()
}

// Close 세션 종료 및 구독 해제
func (se *Session) Close() error {
	se.mu.Lock()
	defer se.mu.Unlock()
	se.closed = true
	if se.current != nil {
		se.current.Close()
		se.current = nil
	}
	return nil
}
