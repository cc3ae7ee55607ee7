// internal/messaging/router.go
package messaging

import (
	"context"
	"encoding/json"
	"time"

	"solar-sync/internal/common/constants"
	"solar-sync/internal/models"
	"solar-sync/internal/utils"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// DeviceHandler 디바이스 보고 처리 인터페이스
type DeviceHandler interface {
	IngestReport(ctx context.Context, deviceID string, report models.Report) error
	UpdateCleaningProgress(ctx context.Context, deviceID string, progress, waterUsed float64) error
	ReportError(ctx context.Context, deviceID, message string) error
	ReportScanning(ctx context.Context, deviceID string) error
}

// Router 메시지 라우터
type Router struct {
	topics  Topics
	handler DeviceHandler
	timeout time.Duration
}

// NewRouter 새 메시지 라우터 생성
func NewRouter(topics Topics, handler DeviceHandler, timeout time.Duration) *Router {
	utils.Logger.Infof("🏗️ CREATING Message Router")

	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	router := &Router{
		topics:  topics,
		handler: handler,
		timeout: timeout,
	}

	utils.Logger.Infof("✅ Message Router CREATED")
	return router
}

// RouteMessage 토픽에 따라 메시지 라우팅 (실패는 기록 후 버림)
func (r *Router) RouteMessage(client mqtt.Client, msg mqtt.Message) {
	topic := msg.Topic()
	utils.Logger.Debugf("Routing message from topic: %s", topic)

	deviceID, kind, ok := r.topics.Parse(topic)
	if !ok {
		utils.Logger.Warnf("Unhandled topic: %s", topic)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	var err error
	switch kind {
	case KindReport:
		var report models.Report
		if err = json.Unmarshal(msg.Payload(), &report); err == nil {
			err = r.handler.IngestReport(ctx, deviceID, report)
		}

	case KindProgress:
		var progress models.ProgressReport
		if err = json.Unmarshal(msg.Payload(), &progress); err == nil {
			err = r.handler.UpdateCleaningProgress(ctx, deviceID, progress.Progress, progress.WaterUsed)
		}

	case KindError:
		var report models.ErrorReport
		if err = json.Unmarshal(msg.Payload(), &report); err == nil {
			err = r.handler.ReportError(ctx, deviceID, report.Message)
		}

	case KindStatus:
		var status models.StatusReport
		if err = json.Unmarshal(msg.Payload(), &status); err == nil {
			if status.Status == constants.CleaningStatusScanning {
				err = r.handler.ReportScanning(ctx, deviceID)
			} else {
				utils.Logger.Debugf("Ignoring status '%s' from %s", status.Status, deviceID)
			}
		}

	default:
		utils.Logger.Warnf("Unhandled topic: %s", topic)
		return
	}

	if err != nil {
		utils.Logger.Errorf("❌ Failed to handle %s from %s: %v", kind, deviceID, err)
	}
}
