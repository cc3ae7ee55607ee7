// internal/devicesync/cleaning.go
package devicesync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"solar-sync/internal/common/constants"
	"solar-sync/internal/common/paths"
	"solar-sync/internal/interfaces"
	"solar-sync/internal/models"
	"solar-sync/internal/store"

	"github.com/looplab/fsm"
)

// 청소 상태 머신 이벤트
const (
	EventStart    = "start"
	EventScan     = "scan"
	EventComplete = "complete"
	EventStop     = "stop"
	EventFail     = "fail"
)

var cleaningEvents = fsm.Events{
	{Name: EventStart, Src: []string{constants.CleaningStatusIdle, constants.CleaningStatusScanning, constants.CleaningStatusCompleted, constants.CleaningStatusError}, Dst: constants.CleaningStatusCleaning},
	{Name: EventScan, Src: []string{constants.CleaningStatusIdle, constants.CleaningStatusCompleted}, Dst: constants.CleaningStatusScanning},
	{Name: EventComplete, Src: []string{constants.CleaningStatusCleaning}, Dst: constants.CleaningStatusCompleted},
	{Name: EventStop, Src: []string{constants.CleaningStatusIdle, constants.CleaningStatusScanning, constants.CleaningStatusCleaning, constants.CleaningStatusCompleted}, Dst: constants.CleaningStatusIdle},
	{Name: EventFail, Src: []string{constants.CleaningStatusIdle, constants.CleaningStatusScanning, constants.CleaningStatusCleaning, constants.CleaningStatusCompleted, constants.CleaningStatusError}, Dst: constants.CleaningStatusError},
}

// newCleaningFSM 저장된 상태에서 시작하는 상태 머신 생성
func newCleaningFSM(deviceID, current string, logger interfaces.Logger) *fsm.FSM {
	if current == "" {
		current = constants.CleaningStatusIdle
	}
	return fsm.NewFSM(current, cleaningEvents, fsm.Callbacks{
		"enter_state": func(ctx context.Context, e *fsm.Event) {
			logger.Infof("DEVICE '%s': cleaning state changed from %s -> %s (Event: %s)", deviceID, e.Src, e.Dst, e.Event)
		},
	})
}

// transition 이벤트 적용 후 다음 상태 반환 (같은 상태로의 전이는 허용)
func (s *Service) transition(ctx context.Context, deviceID, current, event string) (string, error) {
	machine := newCleaningFSM(deviceID, current, s.logger)
	err := machine.Event(ctx, event)
	if err == nil {
		return machine.Current(), nil
	}

	var noTransition fsm.NoTransitionError
	if errors.As(err, &noTransition) {
		return machine.Current(), nil
	}

	s.logger.Warnf("⚠️ DEVICE '%s': rejected '%s' in state '%s'", deviceID, event, machine.Current())
	return current, fmt.Errorf("%w: %s while %s", ErrInvalidTransition, event, machine.Current())
}

// CanStartCleaning 현재 상태에서 청소를 시작할 수 있는지 확인
func CanStartCleaning(status string) bool {
	if status == "" {
		status = constants.CleaningStatusIdle
	}
	return fsm.NewFSM(status, cleaningEvents, fsm.Callbacks{}).Can(EventStart)
}

// SendCleaningCommand 대시보드/자동 청소 명령 적용
//
// trigger=1 은 청소 시작(작업 시작 시간 기록, 진행률/사용 수량 초기화, 방식별 PWM 기록),
// trigger=0 은 정지.
func (s *Service) SendCleaningCommand(ctx context.Context, deviceID string, cmd models.CleaningCommand) error {
	switch cmd.Trigger {
	case constants.TriggerOn:
		return s.startCleaning(ctx, deviceID, cmd)
	case constants.TriggerOff:
		return s.stopCleaning(ctx, deviceID)
	default:
		return fmt.Errorf("%w: trigger must be 0 or 1", ErrInvalidArgument)
	}
}

func (s *Service) startCleaning(ctx context.Context, deviceID string, cmd models.CleaningCommand) error {
	if cmd.PWM < 0 || cmd.PWM > 255 {
		return fmt.Errorf("%w: pwm must be within 0-255", ErrInvalidArgument)
	}

	control, err := s.readControl(ctx, deviceID)
	if err != nil {
		return err
	}

	method := cmd.Method
	if method == "" {
		method = control.Method
	}
	if !constants.IsValidMethod(method) {
		return fmt.Errorf("%w: unknown method %q", ErrInvalidArgument, method)
	}

	pwm := cmd.PWM
	if pwm == 0 {
		pwm = control.PWMFor(method)
	}

	next, err := s.transition(ctx, deviceID, control.Status, EventStart)
	if err != nil {
		return err
	}

	now := s.now()
	fields := map[string]interface{}{
		"trigger":        constants.TriggerOn,
		"status":         next,
		"method":         method,
		"error":          nil,
		pwmField(method): pwm,
		"currentOperation": models.CurrentOperation{
			StartTime: now.UnixMilli(),
			Progress:  0,
			WaterUsed: 0,
		},
	}

	if err := s.store.Update(ctx, paths.CleaningControl(deviceID), fields); err != nil {
		return fmt.Errorf("failed to start cleaning: %w", err)
	}

	s.logger.Infof("🧽 Cleaning started on %s (method=%s, pwm=%d)", deviceID, method, pwm)
	s.publish(deviceID, constants.TriggerOn, method, pwm, now)

	if s.cleaning != nil {
		if err := s.cleaning.CleaningStarted(ctx, deviceID, method, pwm, now); err != nil {
			s.logger.Warnf("cleaning archive write failed for %s: %v", deviceID, err)
		}
	}
	return nil
}

func (s *Service) stopCleaning(ctx context.Context, deviceID string) error {
	control, err := s.readControl(ctx, deviceID)
	if err != nil {
		return err
	}

	next, err := s.transition(ctx, deviceID, control.Status, EventStop)
	if err != nil {
		return err
	}

	fields := map[string]interface{}{
		"trigger": constants.TriggerOff,
		"status":  next,
	}
	if err := s.store.Update(ctx, paths.CleaningControl(deviceID), fields); err != nil {
		return fmt.Errorf("failed to stop cleaning: %w", err)
	}

	now := s.now()
	s.logger.Infof("🛑 Cleaning stopped on %s", deviceID)
	s.publish(deviceID, constants.TriggerOff, control.Method, control.PWMFor(control.Method), now)

	if s.cleaning != nil && control.Status == constants.CleaningStatusCleaning {
		if err := s.cleaning.CleaningFinished(ctx, deviceID, models.CleaningLogStatusStopped, control.CurrentOperation.WaterUsed, "", now); err != nil {
			s.logger.Warnf("cleaning archive write failed for %s: %v", deviceID, err)
		}
	}
	return nil
}

// UpdateCleaningProgress 디바이스 진행률 보고 반영
//
// 진행률이 100 이상이면 completed로 전이하고 trigger를 0으로, autoSettings.lastCleaning을
// 현재 시각으로 기록한다. 청소 중이 아닐 때의 보고는 거부된다.
func (s *Service) UpdateCleaningProgress(ctx context.Context, deviceID string, progress, waterUsed float64) error {
	if deviceID == "" {
		return fmt.Errorf("%w: device id is required", ErrInvalidArgument)
	}

	completed := progress >= constants.CompletedProgress
	now := s.now()

	// 상태 확인과 오늘 기록 누적을 한 트랜잭션으로 처리한다
	err := s.store.Transact(ctx, paths.Device(deviceID), func(current store.Snapshot) ([]store.Op, error) {
		device, err := decodeDevice(current, deviceID)
		if err != nil {
			return nil, err
		}
		control := device.CleaningControl
		if control.Status != constants.CleaningStatusCleaning {
			s.logger.Warnf("⚠️ DEVICE '%s': progress report ignored in state '%s'", deviceID, control.Status)
			return nil, fmt.Errorf("%w: progress while %s", ErrInvalidTransition, control.Status)
		}

		fields := map[string]interface{}{
			"cleaningControl/currentOperation/progress":  progress,
			"cleaningControl/currentOperation/waterUsed": waterUsed,
		}
		if completed {
			next, err := s.transition(ctx, deviceID, control.Status, EventComplete)
			if err != nil {
				return nil, err
			}
			day := s.today()
			fields["cleaningControl/status"] = next
			fields["cleaningControl/trigger"] = constants.TriggerOff
			fields["cleaningControl/autoSettings/lastCleaning"] = now.UnixMilli()
			fields[paths.Join("history", day)] = foldCleaning(device.History[day], waterUsed)
		}
		return []store.Op{store.UpdateOp(paths.Device(deviceID), fields)}, nil
	})
	if err != nil {
		if errors.Is(err, ErrDeviceNotFound) || errors.Is(err, ErrInvalidTransition) {
			return err
		}
		return fmt.Errorf("failed to update cleaning progress: %w", err)
	}

	if completed {
		s.logger.Infof("✅ Cleaning completed on %s (water=%.2f)", deviceID, waterUsed)
		if s.cleaning != nil {
			if err := s.cleaning.CleaningFinished(ctx, deviceID, models.CleaningLogStatusCompleted, waterUsed, "", now); err != nil {
				s.logger.Warnf("cleaning archive write failed for %s: %v", deviceID, err)
			}
		}
	}
	return nil
}

// ReportError 디바이스 오류 반영 (어느 상태에서든 error로 전이, trigger 0)
func (s *Service) ReportError(ctx context.Context, deviceID, message string) error {
	control, err := s.readControl(ctx, deviceID)
	if err != nil {
		return err
	}

	next, err := s.transition(ctx, deviceID, control.Status, EventFail)
	if err != nil {
		return err
	}

	now := s.now()
	fields := map[string]interface{}{
		"status":  next,
		"trigger": constants.TriggerOff,
		"error": models.CleaningError{
			Message:   message,
			Timestamp: now.UnixMilli(),
		},
	}
	if err := s.store.Update(ctx, paths.CleaningControl(deviceID), fields); err != nil {
		return fmt.Errorf("failed to record device error: %w", err)
	}

	s.logger.Errorf("❌ DEVICE '%s' reported error: %s", deviceID, message)

	if s.cleaning != nil && control.Status == constants.CleaningStatusCleaning {
		if err := s.cleaning.CleaningFinished(ctx, deviceID, models.CleaningLogStatusFailed, control.CurrentOperation.WaterUsed, message, now); err != nil {
			s.logger.Warnf("cleaning archive write failed for %s: %v", deviceID, err)
		}
	}
	return nil
}

// ReportScanning 디바이스가 패널 스캔 단계에 들어갔음을 반영
func (s *Service) ReportScanning(ctx context.Context, deviceID string) error {
	control, err := s.readControl(ctx, deviceID)
	if err != nil {
		return err
	}

	next, err := s.transition(ctx, deviceID, control.Status, EventScan)
	if err != nil {
		return err
	}
	return s.store.Update(ctx, paths.CleaningControl(deviceID), map[string]interface{}{"status": next})
}

// publish 디바이스로 명령 발행 (실패는 기록만 하고 저장소 상태를 기준으로 삼음)
func (s *Service) publish(deviceID string, trigger int, method string, pwm int, at time.Time) {
	if s.publisher == nil {
		return
	}
	msg := models.DeviceCommandMessage{
		DeviceID:  deviceID,
		Trigger:   trigger,
		Method:    method,
		PWM:       pwm,
		Timestamp: at.UnixMilli(),
	}
	if err := s.publisher.PublishCommand(msg); err != nil {
		s.logger.Errorf("❌ Failed to publish command to %s: %v", deviceID, err)
	}
}
