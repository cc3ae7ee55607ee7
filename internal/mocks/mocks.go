// internal/mocks/mocks.go
package mocks

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"solar-sync/internal/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Mock 구현체들 (테스트용)

type MockConfigProvider struct {
	TopicPrefix     string
	LogLevel        string
	Timeout         time.Duration
	WeatherProvider string
	WeatherAPIKey   string
}

func NewMockConfigProvider() *MockConfigProvider {
	return &MockConfigProvider{
		TopicPrefix: "solar",
		LogLevel:    "debug",
		Timeout:     5 * time.Second,
	}
}

func (m *MockConfigProvider) GetTopicPrefix() string     { return m.TopicPrefix }
func (m *MockConfigProvider) GetLogLevel() string        { return m.LogLevel }
func (m *MockConfigProvider) GetTimeout() time.Duration  { return m.Timeout }
func (m *MockConfigProvider) GetWeatherProvider() string { return m.WeatherProvider }
func (m *MockConfigProvider) GetWeatherAPIKey() string   { return m.WeatherAPIKey }

type MockCacheService struct {
	mu   sync.Mutex
	data map[string]string
	ttl  map[string]time.Duration
}

func NewMockCacheService() *MockCacheService {
	return &MockCacheService{
		data: make(map[string]string),
		ttl:  make(map[string]time.Duration),
	}
}

func (m *MockCacheService) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	default:
		m.data[key] = fmt.Sprintf("%v", value)
	}
	m.ttl[key] = expiration
	return nil
}

func (m *MockCacheService) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *MockCacheService) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
		delete(m.ttl, key)
	}
	return nil
}

func (m *MockCacheService) Keys(ctx context.Context, pattern string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0)
	for key := range m.data {
		if ok, _ := path.Match(pattern, key); ok {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Has 키 존재 여부
func (m *MockCacheService) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

// TTL 마지막으로 기록된 만료 시간
func (m *MockCacheService) TTL(key string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ttl[key]
}

type MockMessagePublisher struct {
	mu                sync.Mutex
	publishedMessages []MockMessage
	subscriptions     map[string]mqtt.MessageHandler
	connected         bool
	PublishErr        error
}

type MockMessage struct {
	Topic   string
	Payload interface{}
}

func NewMockMessagePublisher() *MockMessagePublisher {
	return &MockMessagePublisher{
		publishedMessages: make([]MockMessage, 0),
		subscriptions:     make(map[string]mqtt.MessageHandler),
		connected:         true,
	}
}

func (m *MockMessagePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PublishErr != nil {
		return m.PublishErr
	}
	m.publishedMessages = append(m.publishedMessages, MockMessage{
		Topic:   topic,
		Payload: payload,
	})
	return nil
}

func (m *MockMessagePublisher) Subscribe(topic string, qos byte, callback mqtt.MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions[topic] = callback
	return nil
}

func (m *MockMessagePublisher) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *MockMessagePublisher) Disconnect(quiesce uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
}

func (m *MockMessagePublisher) GetLastMessage() *MockMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.publishedMessages) == 0 {
		return nil
	}
	msg := m.publishedMessages[len(m.publishedMessages)-1]
	return &msg
}

func (m *MockMessagePublisher) GetPublishedMessages() []MockMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockMessage(nil), m.publishedMessages...)
}

// GetSubscription 구독된 토픽의 핸들러
func (m *MockMessagePublisher) GetSubscription(topic string) mqtt.MessageHandler {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subscriptions[topic]
}

// MockCommandPublisher 디바이스 명령 발행 기록
type MockCommandPublisher struct {
	mu       sync.Mutex
	commands []models.DeviceCommandMessage
	Err      error
}

func NewMockCommandPublisher() *MockCommandPublisher {
	return &MockCommandPublisher{}
}

func (m *MockCommandPublisher) PublishCommand(msg models.DeviceCommandMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.commands = append(m.commands, msg)
	return nil
}

func (m *MockCommandPublisher) Commands() []models.DeviceCommandMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.DeviceCommandMessage(nil), m.commands...)
}

// MockCleaningArchive 청소 이력 메모리 기록
type MockCleaningArchive struct {
	mu   sync.Mutex
	logs []models.CleaningLog
}

func NewMockCleaningArchive() *MockCleaningArchive {
	return &MockCleaningArchive{}
}

func (m *MockCleaningArchive) CleaningStarted(ctx context.Context, deviceID, method string, pwm int, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, models.CleaningLog{
		DeviceID:  deviceID,
		Method:    method,
		PWM:       pwm,
		Status:    models.CleaningLogStatusRunning,
		StartedAt: at,
	})
	return nil
}

func (m *MockCleaningArchive) CleaningFinished(ctx context.Context, deviceID, status string, waterUsed float64, errMsg string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.logs) - 1; i >= 0; i-- {
		if m.logs[i].DeviceID == deviceID && m.logs[i].Status == models.CleaningLogStatusRunning {
			finished := at
			m.logs[i].Status = status
			m.logs[i].WaterUsed = waterUsed
			m.logs[i].ErrorMessage = errMsg
			m.logs[i].FinishedAt = &finished
			return nil
		}
	}
	return fmt.Errorf("no running cleaning for device %s", deviceID)
}

func (m *MockCleaningArchive) History(ctx context.Context, deviceID string, limit int) ([]models.CleaningLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]models.CleaningLog, 0)
	for i := len(m.logs) - 1; i >= 0 && (limit <= 0 || len(result) < limit); i-- {
		if m.logs[i].DeviceID == deviceID {
			result = append(result, m.logs[i])
		}
	}
	return result, nil
}

// MockTelemetryArchive 텔레메트리 기록 횟수 집계
type MockTelemetryArchive struct {
	mu      sync.Mutex
	Reports int
	Dust    []models.PanelStatus
}

func NewMockTelemetryArchive() *MockTelemetryArchive {
	return &MockTelemetryArchive{}
}

func (m *MockTelemetryArchive) WriteReport(ctx context.Context, deviceID string, env *models.Environment, params *models.PanelParameters) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reports++
	return nil
}

func (m *MockTelemetryArchive) WriteDust(ctx context.Context, deviceID string, status models.PanelStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Dust = append(m.Dust, status)
	return nil
}

// MockIDGenerator 순차 ID 생성
type MockIDGenerator struct {
	mu   sync.Mutex
	next int
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) DeviceID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	return fmt.Sprintf("device%03d", m.next)
}

type MockLogger struct {
	mu   sync.Mutex
	logs []string
}

func NewMockLogger() *MockLogger {
	return &MockLogger{logs: make([]string, 0)}
}

func (m *MockLogger) add(line string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, line)
}

func (m *MockLogger) Debug(args ...interface{}) {
	m.add(fmt.Sprintf("DEBUG: %v", args))
}

func (m *MockLogger) Debugf(format string, args ...interface{}) {
	m.add(fmt.Sprintf("DEBUG: "+format, args...))
}

func (m *MockLogger) Info(args ...interface{}) {
	m.add(fmt.Sprintf("INFO: %v", args))
}

func (m *MockLogger) Infof(format string, args ...interface{}) {
	m.add(fmt.Sprintf("INFO: "+format, args...))
}

func (m *MockLogger) Warn(args ...interface{}) {
	m.add(fmt.Sprintf("WARN: %v", args))
}

func (m *MockLogger) Warnf(format string, args ...interface{}) {
	m.add(fmt.Sprintf("WARN: "+format, args...))
}

func (m *MockLogger) Error(args ...interface{}) {
	m.add(fmt.Sprintf("ERROR: %v", args))
}

func (m *MockLogger) Errorf(format string, args ...interface{}) {
	m.add(fmt.Sprintf("ERROR: "+format, args...))
}

func (m *MockLogger) Fatal(args ...interface{}) {
	m.add(fmt.Sprintf("FATAL: %v", args))
}

func (m *MockLogger) Fatalf(format string, args ...interface{}) {
	m.add(fmt.Sprintf("FATAL: "+format, args...))
}

func (m *MockLogger) ContainsLog(substring string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, log := range m.logs {
		if strings.Contains(log, substring) {
			return true
		}
	}
	return false
}

func (m *MockLogger) GetLogs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.logs...)
}
