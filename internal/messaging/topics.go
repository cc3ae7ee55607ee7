// internal/messaging/topics.go
package messaging

import (
	"fmt"
	"strings"
)

// Topic 종류 (solar/{deviceId}/{kind})
const (
	KindReport   = "report"
	KindProgress = "progress"
	KindError    = "error"
	KindStatus   = "status"
	KindCommand  = "command"
)

// InboundKinds 디바이스 → 서비스 토픽 종류
var InboundKinds = []string{KindReport, KindProgress, KindError, KindStatus}

// Topics 디바이스 토픽 생성/해석
type Topics struct {
	prefix string
}

func NewTopics(prefix string) Topics {
	if prefix == "" {
		prefix = "solar"
	}
	return Topics{prefix: strings.Trim(prefix, "/")}
}

// Device 디바이스 토픽
func (t Topics) Device(deviceID, kind string) string {
	return fmt.Sprintf("%s/%s/%s", t.prefix, deviceID, kind)
}

// Command 명령 토픽
func (t Topics) Command(deviceID string) string {
	return t.Device(deviceID, KindCommand)
}

// Wildcard 모든 디바이스의 kind 토픽 구독 패턴
func (t Topics) Wildcard(kind string) string {
	return fmt.Sprintf("%s/+/%s", t.prefix, kind)
}

// Parse 토픽에서 디바이스 ID와 종류 추출
func (t Topics) Parse(topic string) (deviceID, kind string, ok bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != t.prefix || parts[1] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}
