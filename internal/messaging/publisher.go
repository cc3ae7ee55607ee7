// internal/messaging/publisher.go
package messaging

import (
	"encoding/json"
	"fmt"

	"solar-sync/internal/interfaces"
	"solar-sync/internal/models"
	"solar-sync/internal/utils"
)

// CommandQoS 명령은 최소 한 번 전달
const CommandQoS byte = 1

// DevicePublisher 디바이스 명령 발행자 (interfaces.CommandPublisher)
type DevicePublisher struct {
	client interfaces.MessagePublisher
	topics Topics
}

// NewDevicePublisher 새 명령 발행자 생성
func NewDevicePublisher(client interfaces.MessagePublisher, topics Topics) *DevicePublisher {
	return &DevicePublisher{
		client: client,
		topics: topics,
	}
}

// PublishCommand 청소 명령 발행 (solar/{id}/command)
func (p *DevicePublisher) PublishCommand(msg models.DeviceCommandMessage) error {
	if msg.DeviceID == "" {
		return fmt.Errorf("device id is required")
	}
	return p.publishJSON(p.topics.Command(msg.DeviceID), msg, "command")
}

// publishJSON JSON 메시지 발행 (공통 함수)
func (p *DevicePublisher) publishJSON(topic string, payload interface{}, messageType string) error {
	data, err := json.Marshal(payload)
	if err != nil {
		utils.Logger.Errorf("Failed to marshal %s message: %v", messageType, err)
		return fmt.Errorf("failed to marshal %s message: %w", messageType, err)
	}

	if err := p.client.Publish(topic, CommandQoS, false, data); err != nil {
		utils.Logger.Errorf("Failed to publish %s to %s: %v", messageType, topic, err)
		return err
	}

	utils.Logger.Infof("📤 %s sent to %s", messageType, topic)
	return nil
}
