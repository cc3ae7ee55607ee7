// internal/models/command.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// Report 하드웨어 센서 보고 (solar/{id}/report)
type Report struct {
	Environment *EnvironmentReport `json:"environment,omitempty"`
	Parameters  *ParametersReport  `json:"parameters,omitempty"`
}

// EnvironmentReport 환경 센서 보고
type EnvironmentReport struct {
	Humidity     float64 `json:"humidity"`
	Temperature  float64 `json:"temperature"`
	DustPresence bool    `json:"dustPresence"`
}

// ParametersReport 전기 파라미터 보고 (Power가 없으면 전압 × 전류)
type ParametersReport struct {
	Voltage float64  `json:"voltage"`
	Current float64  `json:"current"`
	Power   *float64 `json:"power,omitempty"`
}

// CleaningCommand 청소 명령 (대시보드 → 서비스)
type CleaningCommand struct {
	Trigger int    `json:"trigger"`
	Method  string `json:"method"`
	PWM     int    `json:"pwm"`
}

// DeviceCommandMessage 디바이스로 발행되는 명령 (solar/{id}/command)
type DeviceCommandMessage struct {
	DeviceID  string `json:"deviceId"`
	Trigger   int    `json:"trigger"`
	Method    string `json:"method"`
	PWM       int    `json:"pwm"`
	Timestamp int64  `json:"timestamp"`
}

// ProgressReport 청소 진행 보고 (solar/{id}/progress)
type ProgressReport struct {
	Progress  float64 `json:"progress"`
	WaterUsed float64 `json:"waterUsed"`
}

// ErrorReport 디바이스 오류 보고 (solar/{id}/error)
type ErrorReport struct {
	Message string `json:"message"`
}

// StatusReport 디바이스 단계 보고 (solar/{id}/status)
type StatusReport struct {
	Status string `json:"status"`
}

// CleaningLog 청소 작업 이력 (PostgreSQL)
type CleaningLog struct {
	gorm.Model
	DeviceID     string     `gorm:"type:varchar(64);index;not null" json:"deviceId"`
	Method       string     `gorm:"type:varchar(10)" json:"method"`
	PWM          int        `json:"pwm"`
	Status       string     `gorm:"type:varchar(20);index" json:"status"`
	StartedAt    time.Time  `json:"startedAt"`
	FinishedAt   *time.Time `json:"finishedAt,omitempty"`
	WaterUsed    float64    `json:"waterUsed"`
	ErrorMessage string     `gorm:"type:text" json:"errorMessage,omitempty"`
}

func (CleaningLog) TableName() string {
	return "cleaning_logs"
}

// CleaningLog Status 값
const (
	CleaningLogStatusRunning   = "RUNNING"
	CleaningLogStatusCompleted = "COMPLETED"
	CleaningLogStatusStopped   = "STOPPED"
	CleaningLogStatusFailed    = "FAILED"
)
