// internal/worker/autocleaner.go
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"solar-sync/internal/common/constants"
	"solar-sync/internal/common/paths"
	"solar-sync/internal/devicesync"
	"solar-sync/internal/interfaces"
	"solar-sync/internal/models"
	"solar-sync/internal/weather"
)

// DustRefresher 디바이스 먼지 수치 갱신
type DustRefresher interface {
	Refresh(ctx context.Context, deviceID string) (models.PanelStatus, error)
}

// RunStats 한 주기 처리 결과
type RunStats struct {
	Devices   int
	Refreshed int
	Triggered int
}

// AutoCleaner 주기적으로 먼지 수치를 갱신하고 자동 청소를 시작하는 작업자
type AutoCleaner struct {
	sync     *devicesync.Service
	dust     DustRefresher
	interval time.Duration
	throttle *refreshThrottle
	logger   interfaces.Logger
	now      func() time.Time

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
}

// NewAutoCleaner 새 자동 청소 작업자 생성
func NewAutoCleaner(
	svc *devicesync.Service,
	dust DustRefresher,
	interval time.Duration,
	dustInterval time.Duration,
	logger interfaces.Logger,
) *AutoCleaner {
	if interval <= 0 {
		interval = time.Minute
	}
	return &AutoCleaner{
		sync:     svc,
		dust:     dust,
		interval: interval,
		throttle: newRefreshThrottle(dustInterval),
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock 시계 교체 (테스트용)
func (w *AutoCleaner) SetClock(now func() time.Time) {
	w.now = now
}

// Start 백그라운드 주기 실행 (ctx 취소 시 종료)
func (w *AutoCleaner) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return fmt.Errorf("auto cleaner already running")
	}
	w.running = true

	w.wg.Add(1)
	go w.loop(ctx)

	w.logger.Infof("⏱️ Auto cleaner started (interval=%v)", w.interval)
	return nil
}

// Wait 백그라운드 루프 종료 대기
func (w *AutoCleaner) Wait() {
	w.wg.Wait()
}

func (w *AutoCleaner) loop(ctx context.Context) {
	defer w.wg.Done()
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Infof("🛑 Auto cleaner stopped")
			return
		case <-ticker.C:
			stats, err := w.RunOnce(ctx)
			if err != nil {
				w.logger.Errorf("❌ Auto cleaner cycle failed: %v", err)
				continue
			}
			w.logger.Debugf("Auto cleaner cycle: devices=%d refreshed=%d triggered=%d",
				stats.Devices, stats.Refreshed, stats.Triggered)
		}
	}
}

// RunOnce 모든 디바이스에 대해 한 주기 처리
//
// 디바이스별 실패는 기록만 하고 다음 디바이스로 넘어간다.
func (w *AutoCleaner) RunOnce(ctx context.Context) (RunStats, error) {
	var stats RunStats

	ids, err := w.sync.Store().Children(ctx, paths.DevicesRoot)
	if err != nil {
		return stats, fmt.Errorf("failed to list devices: %w", err)
	}
	w.throttle.Retain(ids)

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Devices++

		device, err := w.sync.GetDevice(ctx, id)
		if err != nil {
			w.logger.Warnf("auto cleaner skipped %s: %v", id, err)
			continue
		}

		if w.refreshDust(ctx, device) {
			stats.Refreshed++
		}
		if w.evaluate(ctx, device) {
			stats.Triggered++
		}
	}
	return stats, nil
}

// refreshDust 좌표가 있고 갱신 간격이 지난 디바이스만 갱신
func (w *AutoCleaner) refreshDust(ctx context.Context, device *models.Device) bool {
	if w.dust == nil || !device.Info.HasCoordinates() {
		return false
	}
	if !w.throttle.Allow(device.ID, w.now()) {
		return false
	}

	if _, err := w.dust.Refresh(ctx, device.ID); err != nil {
		if errors.Is(err, weather.ErrNotConfigured) {
			w.logger.Debugf("dust refresh not configured for %s: %v", device.ID, err)
			return false
		}
		w.throttle.Reset(device.ID)
		w.logger.Warnf("dust refresh failed for %s: %v", device.ID, err)
		return false
	}
	return true
}

// evaluate 자동 모드 디바이스의 청소 조건 판단 후 명령 전송
func (w *AutoCleaner) evaluate(ctx context.Context, device *models.Device) bool {
	control := device.CleaningControl
	if control.Mode != constants.CleaningModeAutomatic {
		return false
	}
	// 오류 상태는 사용자가 확인할 때까지 자동으로 재시작하지 않는다
	if control.Status == constants.CleaningStatusError || !devicesync.CanStartCleaning(control.Status) {
		return false
	}
	if !w.sync.ShouldTriggerAutoCleaning(ctx, device.ID) {
		return false
	}

	method := w.sync.SelectCleaningMethod(ctx, device.ID)
	cmd := models.CleaningCommand{Trigger: constants.TriggerOn, Method: method}
	if err := w.sync.SendCleaningCommand(ctx, device.ID, cmd); err != nil {
		w.logger.Errorf("❌ Auto cleaning failed to start on %s: %v", device.ID, err)
		return false
	}

	w.logger.Infof("🤖 Auto cleaning started on %s (method=%s)", device.ID, method)
	return true
}
