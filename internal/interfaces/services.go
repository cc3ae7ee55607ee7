// internal/interfaces/services.go
package interfaces

import (
	"context"
	"time"

	"solar-sync/internal/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// CacheService Redis 캐시 관련 서비스 인터페이스
type CacheService interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error

	// Keys 패턴에 맞는 키 목록 (네임스페이스 정리용)
	Keys(ctx context.Context, pattern string) ([]string, error)
}

// MessagePublisher MQTT 메시지 발행 인터페이스
type MessagePublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) error
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) error
	IsConnected() bool
	Disconnect(quiesce uint)
}

// ConfigProvider 설정 제공 인터페이스
type ConfigProvider interface {
	GetTopicPrefix() string
	GetLogLevel() string
	GetTimeout() time.Duration
	GetWeatherProvider() string
	GetWeatherAPIKey() string
}

// Logger 로깅 인터페이스
type Logger interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})
}

// IDGenerator 디바이스 ID 생성 인터페이스
type IDGenerator interface {
	DeviceID() string
}

// CommandPublisher 디바이스 명령 발행 인터페이스
type CommandPublisher interface {
	PublishCommand(msg models.DeviceCommandMessage) error
}

// CleaningArchive 청소 작업 이력 저장 인터페이스
type CleaningArchive interface {
	CleaningStarted(ctx context.Context, deviceID, method string, pwm int, at time.Time) error
	CleaningFinished(ctx context.Context, deviceID, status string, waterUsed float64, errMsg string, at time.Time) error
	History(ctx context.Context, deviceID string, limit int) ([]models.CleaningLog, error)
}

// TelemetryArchive 텔레메트리 시계열 저장 인터페이스
type TelemetryArchive interface {
	WriteReport(ctx context.Context, deviceID string, env *models.Environment, params *models.PanelParameters) error
	WriteDust(ctx context.Context, deviceID string, status models.PanelStatus) error
}
